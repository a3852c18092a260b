package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	repo "github.com/joseph-ayodele/medical-docs/internal/repository"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Index.Backend == common.IndexBackendMemory {
		log.Println("ERROR: INDEX_BACKEND is memory; nothing to check")
		log.Println("  set INDEX_BACKEND to sqlite, postgres or redis")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Opening a store pings its backend.
	store, closeStore, err := repo.OpenIndexStore(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("index store health: FAIL (%v)", err)
	}
	defer closeStore()
	log.Printf("index store health: OK (backend=%s)", cfg.Index.Backend)

	n, err := store.Len(ctx)
	if err != nil {
		log.Fatalf("counting documents: %v", err)
	}
	log.Printf("indexed documents: %d", n)
}
