package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/openai"
	"github.com/joseph-ayodele/medical-docs/internal/export"
	"github.com/joseph-ayodele/medical-docs/internal/ingest"
	repo "github.com/joseph-ayodele/medical-docs/internal/repository"
	"github.com/joseph-ayodele/medical-docs/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repo.OpenIndexStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open index store", "backend", cfg.Index.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	processor, err := core.NewFromConfig(cfg, core.Models{Completer: client, Embedder: client}, store, logger)
	if err != nil {
		logger.Error("failed to build processor", "error", err)
		os.Exit(1)
	}

	// A failed smoke test is terminal: the server still starts and reports it.
	if err := processor.Initialize(ctx); err != nil {
		logger.Error("processor initialization failed", "error", err)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}

	svc := server.NewDocumentService(processor, export.NewService(processor, logger), logger)
	grpcServer, _ := server.NewGRPCServer(svc, logger)

	var queue *ingest.Queue
	if cfg.Server.WatchDir != "" {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Server.WatchDir},
			InitialScan: true,
			SkipHidden:  true,
			Debounce:    500 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Error("failed to start watcher", "dir", cfg.Server.WatchDir, "error", err)
			os.Exit(1)
		}
		go func() {
			for err := range errs {
				logger.Warn("watcher error", "error", err)
			}
		}()

		pipeline := ingest.NewPipeline(processor, ingest.PipelineConfig{Index: true}, logger)
		queue = ingest.NewQueue(pipeline, logger,
			ingest.WithWorkers(4),
			ingest.WithQueueSize(256),
			ingest.WithProcessTimeout(3*time.Minute),
		)
		go queue.Feed(ctx, paths)
		logger.Info("watching directory", "dir", cfg.Server.WatchDir)
	}

	logger.Info("medocsd listening", "addr", addr, "index_backend", cfg.Index.Backend, "model", client.Model())
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if queue != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		queue.Shutdown(shutdownCtx)
		cancel()
	}
	grpcServer.GracefulStop()
}
