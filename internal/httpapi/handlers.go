package httpapi

import (
	"context"
	"net/http"
	"time"

	"hankosign.org/internal/hankosign"
	"hankosign.org/internal/obs"
	"hankosign.org/internal/people"
)

// Pinger is the readiness dependency: the Postgres store in production,
// nil in memory mode.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks backing-store readiness.
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.Ping(ctx)
}

// DomainStatus reduces a target and its snapshot into the domain
// lifecycle code (payment plan, timesheet or session state). The target
// is the registry-resolved object when a loader is registered.
type DomainStatus func(target hankosign.Target, snap hankosign.Snapshot) string

// API is the HTTP layer over the signing gateway.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	engine   *hankosign.Service
	registry *hankosign.Registry
	people   *people.Service
	statuses map[string]DomainStatus
}

// Option configures the API.
type Option func(*API)

// WithPeople enables the login endpoint.
func WithPeople(svc *people.Service) Option {
	return func(a *API) { a.people = svc }
}

// WithDomainStatus registers a domain reducer for a target type, surfaced
// in the state endpoint next to the generic snapshot.
func WithDomainStatus(typeKey string, fn DomainStatus) Option {
	return func(a *API) { a.statuses[typeKey] = fn }
}

// New wires the routes.
func New(engine *hankosign.Service, registry *hankosign.Registry, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		engine:     engine,
		registry:   registry,
		statuses:   make(map[string]DomainStatus),
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// signing surface
	a.mux.HandleFunc("/v1/signatures", a.handleSignatures)
	a.mux.HandleFunc("/v1/decisions", a.handleDecisions)
	a.mux.HandleFunc("/v1/targets/", a.handleTargetState)
	a.mux.HandleFunc("/v1/login", a.handleLogin)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware-wrapped handler.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hankosign-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "hankosign-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
