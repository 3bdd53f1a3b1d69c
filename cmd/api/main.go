package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hankosign.org/internal/hankosign"
	"hankosign.org/internal/httpapi"
	"hankosign.org/internal/obs"
	"hankosign.org/internal/people"
	"hankosign.org/internal/store/pg"

	"hankosign.org/internal/assembly"
	"hankosign.org/internal/employees"
	"hankosign.org/internal/finances"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("HANKO_BUILD_COMMIT"))

	secret := os.Getenv("HANKO_SIGN_SECRET")
	if secret == "" {
		log.Fatal("HANKO_SIGN_SECRET is required")
	}

	// Postgres when a DSN is set, in-memory stores otherwise. Memory mode
	// is for local development only: nothing survives a restart.
	var (
		engine    *hankosign.Service
		directory people.Directory
		pgStore   *pg.Store
		probe     httpapi.ReadyProbe
	)
	registry := hankosign.NewRegistry()

	if dsn := os.Getenv("HANKO_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()

		engine, err = hankosign.NewService(pgStore, hankosign.WithSecret(secret))
		if err != nil {
			log.Fatalf("init engine: %v", err)
		}
		directory = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore}

		registry.Register(finances.PlanTypeKey, func(ctx context.Context, id string) (hankosign.Target, error) {
			return pgStore.GetPaymentPlan(ctx, id)
		})
		registry.Register(employees.SheetTypeKey, func(ctx context.Context, id string) (hankosign.Target, error) {
			return pgStore.GetTimeSheet(ctx, id)
		})
		registry.Register(assembly.SessionTypeKey, func(ctx context.Context, id string) (hankosign.Target, error) {
			return pgStore.GetSession(ctx, id)
		})
	} else {
		log.Println("HANKO_PG_DSN not set, using in-memory stores")
		var err error
		engine, err = hankosign.NewService(hankosign.NewMemory(), hankosign.WithSecret(secret))
		if err != nil {
			log.Fatalf("init engine: %v", err)
		}
		directory = people.NewMemoryDirectory()
	}

	ppl, err := people.NewService(directory)
	if err != nil {
		log.Fatalf("init people: %v", err)
	}

	api := httpapi.New(engine, registry, probe, version,
		httpapi.WithPeople(ppl),
		httpapi.WithDomainStatus(finances.PlanTypeKey, func(target hankosign.Target, snap hankosign.Snapshot) string {
			if plan, ok := target.(*finances.PaymentPlan); ok {
				return finances.PlanStatus(snap, plan.PayEnd, time.Now().UTC())
			}
			return finances.PlanStatus(snap, time.Time{}, time.Now().UTC())
		}),
		httpapi.WithDomainStatus(employees.SheetTypeKey, func(_ hankosign.Target, snap hankosign.Snapshot) string {
			return employees.SheetStatus(snap)
		}),
		httpapi.WithDomainStatus(assembly.SessionTypeKey, func(_ hankosign.Target, snap hankosign.Snapshot) string {
			return assembly.SessionStatus(snap)
		}),
	)

	handler := httpapi.SecurityHeaders(api.Handler())
	handler = httpapi.CORS(handler)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, 50, 25)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hankosign-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
