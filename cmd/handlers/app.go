package handlers

import (
	"context"
	"fmt"

	"newsgate/internal/compliance"
	"newsgate/internal/config"
	"newsgate/internal/core"
	"newsgate/internal/gate"
	"newsgate/internal/llm"
	"newsgate/internal/metrics"
	"newsgate/internal/orchestrate"
	"newsgate/internal/pipeline"
	"newsgate/internal/reference"
	"newsgate/internal/similarity"
)

// app bundles the wired pipeline with the resources that need closing.
type app struct {
	service  *pipeline.Service
	registry *metrics.Registry
	flusher  *metrics.Flusher
	store    *metrics.SQLiteStore
}

// buildApp wires the whole pipeline from configuration. The counter registry
// is rehydrated from the durable store before any request runs.
func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Get()

	backend, err := llm.NewGeminiBackend(ctx, cfg.AI.Gemini)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation backend: %w", err)
	}

	registry := metrics.NewRegistry()
	store, err := metrics.NewSQLiteStore(cfg.Metrics.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open counter store: %w", err)
	}
	flusher := metrics.NewFlusher(registry, store, cfg.Metrics.FlushInterval)
	if err := flusher.Rehydrate(); err != nil {
		return nil, fmt.Errorf("failed to rehydrate counters: %w", err)
	}

	orchestrator := orchestrate.New(backend, orchestrate.Options{
		PrimaryModel:    cfg.AI.Gemini.Model,
		FallbackModels:  cfg.AI.Gemini.FallbackModels,
		PrimaryAttempts: cfg.AI.Gemini.PrimaryAttempts,
		AttemptTimeout:  cfg.AI.Gemini.AttemptTimeout,
	}, orchestrate.Hooks{
		OnRetry:            func() { registry.Track("", metrics.KeyModelRetries, 1) },
		OnFallbackRecovery: func(string) { registry.Track("", metrics.KeyFallbackRecoveries, 1) },
		OnModelEmpty:       func(string) { registry.Track("", metrics.KeyModelEmptyReplies, 1) },
	})

	searcher := reference.NewRSSFeedSearcher(
		cfg.Reference.SearchFeedURL,
		cfg.Reference.TopStoriesURL,
		cfg.Reference.UserAgent,
		cfg.Reference.FetchTimeout,
	)
	acquisitor := reference.NewAcquisitor(searcher, reference.Options{
		CacheTTL:      cfg.Reference.CacheTTL,
		FetchAttempts: cfg.Reference.FetchAttempts,
		MaxConcurrent: cfg.Reference.MaxConcurrent,
		DefaultLimit:  cfg.Reference.DefaultLimit,
	})

	g := gate.New(gate.Options{
		Thresholds: similarity.Thresholds{
			TitleJaccard:  cfg.Gate.TitleJaccard,
			LeadJaccard:   cfg.Gate.LeadJaccard,
			LeadComposite: cfg.Gate.LeadComposite,
			SpanLength:    cfg.Gate.CopiedSpanLength,
			SpanStep:      cfg.Gate.CopiedSpanStep,
		},
		GroundingMinTokens: cfg.Gate.GroundingMinTokens,
		GroundingJaccard:   cfg.Gate.GroundingJaccard,
	})

	opts := pipeline.DefaultOptions()
	opts.Draft = core.Constraints{
		TitleMaxChars: cfg.Gate.TitleMaxChars,
		DraftMaxChars: cfg.Gate.DraftMaxChars,
		MediaSlotsMin: cfg.Gate.DraftSlotsMin,
		MediaSlotsMax: cfg.Gate.DraftSlotsMax,
	}
	opts.Longform = core.Constraints{
		TitleMaxChars: cfg.Gate.TitleMaxChars,
		MinSentences:  cfg.Gate.LongformMinSentence,
		MediaSlotsMin: cfg.Gate.LongformSlotsMin,
		MediaSlotsMax: cfg.Gate.LongformSlotsMax,
	}
	opts.News.TitleMaxChars = cfg.Gate.TitleMaxChars
	opts.NewsBatchSize = cfg.Gate.NewsBatchSize
	opts.ReferenceLimit = cfg.Reference.DefaultLimit
	opts.RequestTimeout = cfg.Gate.RequestTimeout

	service := pipeline.New(acquisitor, orchestrator, g, compliance.NewScanner(), registry, opts)

	return &app{service: service, registry: registry, flusher: flusher, store: store}, nil
}

// close flushes counters and releases the store.
func (a *app) close() {
	a.flusher.Close()
	_ = a.store.Close()
}
