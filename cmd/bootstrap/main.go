package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"hankosign.org/internal/hankosign"
	"hankosign.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn  = flag.String("dsn", os.Getenv("HANKO_PG_DSN"), "PostgreSQL DSN")
		path = flag.String("catalog", "ops/catalog.json", "Path to the action catalog")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or HANKO_PG_DSN")
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	cat, err := hankosign.ParseCatalogJSON(raw)
	if err != nil {
		log.Fatalf("parse catalog: %v", err)
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := hankosign.ApplyCatalog(ctx, store, cat)
	if err != nil {
		log.Fatalf("apply catalog: %v", err)
	}
	log.Printf("actions: %d created, %d updated", stats.ActionsCreated, stats.ActionsUpdated)
	log.Printf("policies: %d created, %d updated", stats.PoliciesCreated, stats.PoliciesUpdated)
}
