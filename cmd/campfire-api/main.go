package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/campfire/internal/adapters/http"
	"github.com/PabloGalante/campfire/internal/adapters/llm"
	"github.com/PabloGalante/campfire/internal/adapters/moderation"
	filestore "github.com/PabloGalante/campfire/internal/adapters/storage/file"
	firestorestore "github.com/PabloGalante/campfire/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/campfire/internal/adapters/storage/memory"
	"github.com/PabloGalante/campfire/internal/app/chronicle"
	"github.com/PabloGalante/campfire/internal/app/game"
	"github.com/PabloGalante/campfire/internal/config"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger().Error("campfire api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}

	// Storage: memory, file or Firestore
	var (
		states domain.StateStore
		msgLog domain.TaggedLog
	)
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return err
		}
		defer fsStore.Close()

		// 1 store, 2 views
		states = fsStore.States()
		msgLog = fsStore.Log()

	case config.StorageFile:
		log.Info("using file storage", "dir", cfg.DataDir)
		fStore, err := filestore.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		states = fStore.States()
		msgLog = fStore.Log()

	default:
		log.Info("using in-memory storage")
		states = memstore.NewStateStore()
		msgLog = memstore.NewLogStore()
	}

	// Generator and moderation: mock + blocklist for dev, Vertex otherwise
	var (
		generator domain.Generator
		moderator domain.Moderator
	)
	if cfg.UseMockLLM {
		log.Info("using mock generator and blocklist moderation", "blocklist", len(settings.Blocklist))
		generator = llm.NewMockGenerator()
		moderator = moderation.NewBlocklist(settings.Blocklist)
	} else {
		log.Info("using vertex generator", "model", cfg.ModelName, "location", cfg.GCPLocation)
		vertex, err := llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			Model:     cfg.ModelName,
			Timeout:   cfg.GenerateTimeout,
		})
		if err != nil {
			return err
		}
		generator = vertex
		moderator = llm.NewVertexModerator(vertex)
	}

	metrics := observability.NewMetrics()

	gameSvc := game.NewService(game.Deps{
		Log:       msgLog,
		States:    states,
		Generator: generator,
		Moderator: moderator,
		Metrics:   metrics,
		World:     settings.World,
		MaxTokens: settings.WindowMaxTokens,
	})
	chronicleSvc := chronicle.NewService(states, msgLog)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(gameSvc, chronicleSvc, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("campfire api listening", "port", cfg.Port, "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
