// Package orchestrate drives generative-model calls through a model-fallback
// chain with per-attempt timeouts and bounded retry on transient failures.
package orchestrate

import (
	"context"
	"errors"
	"time"

	"newsgate/internal/llm"
	"newsgate/internal/logger"
	"newsgate/internal/retry"

	"newsgate/internal/core"
)

// Result is the outcome of one orchestrated generation. Text is empty iff
// the whole model chain was exhausted; ReasonCode then carries the last
// failure class. An empty Text is a terminal failure, never "empty success".
type Result struct {
	Text       string
	ReasonCode core.ReasonCode
	ModelUsed  string
	Latency    time.Duration
}

// Options configures the orchestrator's chain and timing.
type Options struct {
	PrimaryModel    string
	FallbackModels  []string
	PrimaryAttempts int           // attempts on the primary model (default 2)
	AttemptTimeout  time.Duration // per-attempt deadline
	BackoffBase     time.Duration // default 900ms
	BackoffStep     time.Duration // default 300ms linear growth
}

// DefaultOptions returns the observed production timing defaults.
func DefaultOptions(primary string, fallbacks []string) Options {
	return Options{
		PrimaryModel:    primary,
		FallbackModels:  fallbacks,
		PrimaryAttempts: 2,
		AttemptTimeout:  30 * time.Second,
		BackoffBase:     900 * time.Millisecond,
		BackoffStep:     300 * time.Millisecond,
	}
}

// Hooks lets the pipeline observe orchestrator transitions for counting.
// Any hook may be nil.
type Hooks struct {
	OnRetry            func()
	OnFallbackRecovery func(model string)
	OnModelEmpty       func(model string)
}

// Orchestrator wraps a Backend with the fallback chain and retry policy.
type Orchestrator struct {
	backend llm.Backend
	opts    Options
	hooks   Hooks
}

// New creates an Orchestrator. Zero option fields fall back to defaults.
func New(backend llm.Backend, opts Options, hooks Hooks) *Orchestrator {
	if opts.PrimaryAttempts < 1 {
		opts.PrimaryAttempts = 2
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 900 * time.Millisecond
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 300 * time.Millisecond
	}
	return &Orchestrator{backend: backend, opts: opts, hooks: hooks}
}

// Generate walks the model chain: primary with PrimaryAttempts tries, then
// each fallback once. Only transient failures are retried on the same model;
// anything else advances the chain immediately. Nothing is ever fabricated.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) Result {
	start := time.Now()
	lastReason := core.ReasonModelUnavailable

	chain := append([]string{o.opts.PrimaryModel}, o.opts.FallbackModels...)
	for i, model := range chain {
		attempts := 1
		if i == 0 {
			attempts = o.opts.PrimaryAttempts
		}

		text, reason := o.tryModel(ctx, model, prompt, attempts)
		if text != "" {
			if i > 0 && o.hooks.OnFallbackRecovery != nil {
				o.hooks.OnFallbackRecovery(model)
			}
			return Result{Text: text, ModelUsed: model, Latency: time.Since(start)}
		}
		lastReason = reason
		if reason == core.ReasonModelEmpty && o.hooks.OnModelEmpty != nil {
			o.hooks.OnModelEmpty(model)
		}
		if ctx.Err() != nil {
			lastReason = core.ReasonCancelled
			break
		}
		logger.Debug("model exhausted, advancing chain", "model", model, "reason", string(reason))
	}

	return Result{ReasonCode: lastReason, Latency: time.Since(start)}
}

// tryModel runs up to attempts calls against one model and classifies the
// final failure. Empty model output advances the chain without retrying.
func (o *Orchestrator) tryModel(ctx context.Context, model, prompt string, attempts int) (string, core.ReasonCode) {
	var text string
	var lastErr error

	policy := retry.Policy{
		MaxAttempts: attempts,
		Backoff:     retry.FixedLinearBackoff(o.opts.BackoffBase, o.opts.BackoffStep),
		Retryable: func(err error) bool {
			// Empty output is not transient; move to the next model.
			if errors.Is(err, llm.ErrEmptyResponse) {
				return false
			}
			return retry.IsTransient(err)
		},
	}

	err := policy.Do(ctx, func(attempt int) error {
		if attempt > 1 && o.hooks.OnRetry != nil {
			o.hooks.OnRetry()
		}
		attemptCtx, cancel := context.WithTimeout(ctx, o.opts.AttemptTimeout)
		defer cancel()

		out, callErr := o.backend.Call(attemptCtx, prompt, model)
		if callErr != nil {
			lastErr = callErr
			return callErr
		}
		text = out
		return nil
	})
	if err == nil && text != "" {
		return text, ""
	}
	if lastErr == nil {
		lastErr = err
	}
	return "", classify(lastErr)
}

func classify(err error) core.ReasonCode {
	switch {
	case err == nil:
		return core.ReasonModelUnavailable
	case errors.Is(err, llm.ErrEmptyResponse):
		return core.ReasonModelEmpty
	case errors.Is(err, context.DeadlineExceeded):
		return core.ReasonModelTimeout
	case errors.Is(err, context.Canceled):
		return core.ReasonCancelled
	default:
		return core.ReasonModelUnavailable
	}
}
