// Command askdoc answers questions about uploaded documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/ai"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/config/file"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/askdoc/internal/adapters/driving/cli"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/core/services"
	"github.com/custodia-labs/askdoc/internal/logger"
	"github.com/custodia-labs/askdoc/internal/normalisers"
	"github.com/custodia-labs/askdoc/internal/postprocessors"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, bootstrap)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stores is the persistence pair for the configured backend.
type stores struct {
	docs   driven.DocumentStore
	chunks driven.ChunkStore
	close  func()
}

func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	logger.Section("Bootstrap")
	logger.Debug("storage=%s embedding=%s llm=%s",
		settings.Storage.Backend, settings.Embedding.Provider, settings.LLM.Provider)

	st, err := openStores(ctx, settings)
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.Init(ctx, settings)
	if err != nil {
		st.close()
		return nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunker.ChunkSize)
	if err != nil {
		aiServices.Close()
		st.close()
		return nil, fmt.Errorf("building chunker: %w", err)
	}
	registry := normalisers.NewDefaultRegistry()

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		aiServices.Close()
		st.close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	return &cli.Services{
		Document: services.NewDocumentService(st.docs, st.chunks, registry),
		Ingest: services.NewIngestService(st.docs, st.chunks, registry, pipeline,
			aiServices.EmbeddingService,
			services.WithConcurrency(settings.Ingest.Concurrency),
			services.WithReadTimeout(settings.Storage.QueryTimeout),
			services.WithWriteTimeout(settings.Storage.WriteTimeout),
		),
		Retrieval: services.NewRetrievalService(st.docs, st.chunks,
			aiServices.EmbeddingService, aiServices.AnswerService,
			services.WithRetrievalSettings(settings.Retrieval),
			services.WithQueryTimeout(settings.Storage.QueryTimeout),
			services.WithPromptStore(prompts),
		),
		Settings: settingsService,
		Close: func() {
			aiServices.Close()
			st.close()
		},
	}, nil
}

func openStores(ctx context.Context, settings *domain.AppSettings) (*stores, error) {
	switch settings.Storage.Backend {
	case domain.StorageSQLite, "":
		s, err := sqlite.NewStore(settings.Storage.DataDir,
			sqlite.WithWriteTimeout(settings.Storage.WriteTimeout))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("sqlite store at %s", s.Path())
		return &stores{docs: s.DocumentStore(), chunks: s.ChunkStore(), close: closer(s.Close)}, nil

	case domain.StoragePostgres:
		s, err := postgres.New(ctx, settings.Storage.DatabaseURL,
			postgres.WithWriteTimeout(settings.Storage.WriteTimeout))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return &stores{docs: s.DocumentStore(), chunks: s.ChunkStore(), close: closer(s.Close)}, nil

	case domain.StorageMemory:
		logger.Warn("memory storage selected; documents are lost on exit")
		return &stores{
			docs:   memory.NewDocumentStore(),
			chunks: memory.NewChunkStore(),
			close:  func() {},
		}, nil

	default:
		return nil, errors.New("unknown storage backend: " + settings.Storage.Backend.String())
	}
}

func closer(fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}
}
