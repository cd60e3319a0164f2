package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/clause/internal/adapters/driven/ai"
	"github.com/custodia-labs/clause/internal/adapters/driven/archive/minio"
	"github.com/custodia-labs/clause/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/clause/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clause/internal/adapters/driven/embedding/cached"
	"github.com/custodia-labs/clause/internal/adapters/driven/partition/local"
	"github.com/custodia-labs/clause/internal/adapters/driven/partition/unstructured"
	"github.com/custodia-labs/clause/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/clause/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/clause/internal/adapters/driving/cli"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/services"
	"github.com/custodia-labs/clause/internal/logger"
	"github.com/custodia-labs/clause/internal/postprocessors"
)

// envFile is loaded from the working directory when present.
const envFile = ".env"

// buildServices wires the adapters and core services from the config file.
// Settings, tagging and run history are always available. The processing
// services are only built when the providers they need are configured; the
// commands that need them then report them as not configured.
func buildServices(ctx context.Context, configPath string) (*cli.Services, error) {
	store, err := file.NewSettingsStore(configPath, envFile)
	if err != nil {
		return nil, err
	}
	settings, err := store.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(settings.Logging.Level, settings.Logging.Format); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var closers closeStack

	db, err := sqlite.NewStore(settings.Directories.DataDir)
	if err != nil {
		return nil, err
	}
	closers.push(db.Close)

	svc := &cli.Services{
		Settings:    services.NewSettingsService(store, ai.NewConfigValidator()),
		Tagging:     services.NewTaggingService(),
		Runs:        db.RunStore(),
		AppSettings: &settings,
		Close:       closers.close,
	}

	if err := settings.ValidateProcessing(); err != nil {
		logger.Warn("processing disabled: %v", err)
		return svc, nil
	}

	if err := buildProcessing(ctx, &settings, db, svc, &closers); err != nil {
		_ = closers.close() //nolint:errcheck // already failing
		return nil, err
	}
	return svc, nil
}

func buildProcessing(
	ctx context.Context,
	settings *domain.AppSettings,
	db *sqlite.Store,
	svc *cli.Services,
	closers *closeStack,
) error {
	oracles, err := ai.NewServices(settings)
	if err != nil {
		return err
	}
	closers.push(func() error {
		oracles.Close()
		return nil
	})
	for _, w := range oracles.Warnings {
		logger.Warn("%s", w)
	}

	embedding := oracles.EmbeddingService
	if settings.Cache.Enabled {
		cache, err := redis.New(ctx, redis.ConfigFromSettings(settings.Cache))
		if err != nil {
			logger.Warn("embedding cache disabled: %v", err)
		} else {
			embedding = cached.New(embedding, cache)
			closers.push(cache.Close)
		}
	}

	partitioner, chunker, err := buildPartitioning(settings)
	if err != nil {
		return err
	}

	elements, err := jsonfile.NewStore()
	if err != nil {
		return err
	}
	prompts, err := file.NewPromptStore("")
	if err != nil {
		return err
	}

	tagging := services.NewTaggingService()
	enrichment := services.NewEnrichmentService(elements, oracles.LLMService, prompts, tagging, services.EnrichmentConfig{
		TextModel:   settings.LLM.Model,
		VisionModel: settings.LLM.VisionModel,
	})

	pipeline := services.NewPipelineService(partitioner, enrichment, chunker, elements, services.PipelineConfig{
		InputDir:  settings.Directories.InputDir,
		OutputDir: settings.Directories.OutputDir,
	})
	pipeline.SetPageInspector(local.NewInspector())
	pipeline.SetRunStore(db.RunStore())

	ingest := services.NewIngestService(elements, db.ChunkStore(), embedding)
	extraction := services.NewExtractionService(db.ChunkStore(), embedding, oracles.LLMService, prompts,
		services.ExtractionConfig{
			Threshold: settings.Retrieval.Threshold,
			Count:     settings.Retrieval.Count,
			Model:     settings.LLM.ExtractionModel,
		})

	contract := services.NewContractService(pipeline, ingest, extraction, settings.Directories.InputDir)
	if settings.Archive.Enabled {
		archive, err := minio.New(ctx, minio.ConfigFromSettings(settings.Archive))
		if err != nil {
			logger.Warn("upload archive disabled: %v", err)
		} else {
			contract.SetArchive(archive)
			closers.push(archive.Close)
		}
	}

	svc.Tagging = tagging
	svc.Pipeline = pipeline
	svc.Ingest = ingest
	svc.Extraction = extraction
	svc.Contract = contract
	return nil
}

// buildPartitioning selects the partitioner and chunk chain.
func buildPartitioning(settings *domain.AppSettings) (driven.Partitioner, driven.Chunker, error) {
	remote := unstructured.Config{
		APIKey:   settings.Partitioner.APIKey,
		APIURL:   settings.Partitioner.APIURL,
		Strategy: settings.Partitioner.Strategy,
		Timeout:  settings.Partitioner.Timeout.Std(),
	}

	var partitioner driven.Partitioner
	switch settings.Partitioner.Kind {
	case domain.PartitionerUnstructured:
		p, err := unstructured.NewPartitioner(remote)
		if err != nil {
			return nil, nil, err
		}
		partitioner = p
	default:
		partitioner = local.NewPartitioner()
	}

	var base driven.Chunker
	if settings.Chunking.Kind == domain.PartitionerUnstructured {
		c, err := unstructured.NewChunker(unstructured.ChunkConfig{
			Config:        remote,
			MaxCharacters: settings.Chunking.MaxCharacters,
			Overlap:       settings.Chunking.Overlap,
		})
		if err != nil {
			return nil, nil, err
		}
		base = c
	}

	chunker, err := postprocessors.NewChunker(settings.Chunking, base)
	if err != nil {
		return nil, nil, fmt.Errorf("building chunker: %w", err)
	}
	return partitioner, chunker, nil
}

// closeStack closes resources in reverse order of acquisition.
type closeStack []func() error

func (s *closeStack) push(fn func() error) {
	*s = append(*s, fn)
}

func (s *closeStack) close() error {
	var errs []error
	for i := len(*s) - 1; i >= 0; i-- {
		if err := (*s)[i](); err != nil {
			errs = append(errs, err)
		}
	}
	*s = nil
	return errors.Join(errs...)
}
