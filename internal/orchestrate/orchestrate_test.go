package orchestrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsgate/internal/core"
	"newsgate/internal/llm"
)

// scriptedBackend replays one canned outcome per call, in order, and records
// which model each call targeted.
type scriptedBackend struct {
	script []call
	models []string
}

type call struct {
	text string
	err  error
}

func (b *scriptedBackend) Call(ctx context.Context, prompt, model string) (string, error) {
	b.models = append(b.models, model)
	if len(b.script) == 0 {
		return "", errors.New("script exhausted")
	}
	next := b.script[0]
	b.script = b.script[1:]
	return next.text, next.err
}

func fastOptions() Options {
	return Options{
		PrimaryModel:    "primary",
		FallbackModels:  []string{"backup-a", "backup-b"},
		PrimaryAttempts: 2,
		AttemptTimeout:  time.Second,
		BackoffBase:     time.Millisecond,
		BackoffStep:     time.Millisecond,
	}
}

func TestGenerateFirstTrySuccess(t *testing.T) {
	backend := &scriptedBackend{script: []call{{text: "output"}}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(context.Background(), "prompt")
	if result.Text != "output" {
		t.Fatalf("text = %q, want output", result.Text)
	}
	if result.ModelUsed != "primary" {
		t.Errorf("model = %q, want primary", result.ModelUsed)
	}
	if result.ReasonCode != "" {
		t.Errorf("reason = %q, want empty on success", result.ReasonCode)
	}
	if len(backend.models) != 1 {
		t.Errorf("calls = %d, want 1", len(backend.models))
	}
}

func TestGenerateRetriesTransientOnPrimary(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: errors.New("429 rate limit exceeded")},
		{text: "second try"},
	}}
	retries := 0
	o := New(backend, fastOptions(), Hooks{OnRetry: func() { retries++ }})

	result := o.Generate(context.Background(), "prompt")
	if result.Text != "second try" {
		t.Fatalf("text = %q", result.Text)
	}
	if result.ModelUsed != "primary" {
		t.Errorf("model = %q, transient failure should stay on primary", result.ModelUsed)
	}
	if retries != 1 {
		t.Errorf("OnRetry fired %d times, want 1", retries)
	}
}

func TestGenerateEmptyResponseAdvancesWithoutRetry(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: llm.ErrEmptyResponse},
		{text: "from backup"},
	}}
	var emptied, recovered []string
	o := New(backend, fastOptions(), Hooks{
		OnModelEmpty:       func(m string) { emptied = append(emptied, m) },
		OnFallbackRecovery: func(m string) { recovered = append(recovered, m) },
	})

	result := o.Generate(context.Background(), "prompt")
	if result.Text != "from backup" || result.ModelUsed != "backup-a" {
		t.Fatalf("result = %+v, want recovery on backup-a", result)
	}
	// Empty output is not transient: one call to primary, one to backup-a.
	if len(backend.models) != 2 || backend.models[0] != "primary" || backend.models[1] != "backup-a" {
		t.Errorf("call order = %v", backend.models)
	}
	if len(emptied) != 1 || emptied[0] != "primary" {
		t.Errorf("OnModelEmpty = %v, want [primary]", emptied)
	}
	if len(recovered) != 1 || recovered[0] != "backup-a" {
		t.Errorf("OnFallbackRecovery = %v, want [backup-a]", recovered)
	}
}

func TestGenerateNonTransientErrorAdvancesImmediately(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: errors.New("invalid api key")},
		{text: "recovered"},
	}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(context.Background(), "prompt")
	if result.ModelUsed != "backup-a" {
		t.Fatalf("model = %q, want backup-a", result.ModelUsed)
	}
	if len(backend.models) != 2 {
		t.Errorf("calls = %d, want 2 (no same-model retry on a non-transient error)", len(backend.models))
	}
}

func TestGenerateChainExhausted(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: errors.New("service unavailable")}, // primary, transient: retried
		{err: errors.New("service unavailable")},
		{err: errors.New("service unavailable")}, // backup-a
		{err: errors.New("service unavailable")}, // backup-b
	}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(context.Background(), "prompt")
	if result.Text != "" {
		t.Fatalf("text = %q, want empty on exhausted chain", result.Text)
	}
	if result.ReasonCode != core.ReasonModelUnavailable {
		t.Errorf("reason = %q, want %q", result.ReasonCode, core.ReasonModelUnavailable)
	}
	if len(backend.models) != 4 {
		t.Errorf("calls = %d, want 4 (2 primary + 1 per fallback)", len(backend.models))
	}
}

func TestGenerateTimeoutClassification(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
	}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(context.Background(), "prompt")
	if result.ReasonCode != core.ReasonModelTimeout {
		t.Errorf("reason = %q, want %q", result.ReasonCode, core.ReasonModelTimeout)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &scriptedBackend{script: []call{{err: context.Canceled}}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(ctx, "prompt")
	if result.Text != "" {
		t.Fatalf("text = %q, want empty", result.Text)
	}
	if result.ReasonCode != core.ReasonCancelled {
		t.Errorf("reason = %q, want %q", result.ReasonCode, core.ReasonCancelled)
	}
}

func TestGenerateEmptyEverywhere(t *testing.T) {
	backend := &scriptedBackend{script: []call{
		{err: llm.ErrEmptyResponse},
		{err: llm.ErrEmptyResponse},
		{err: llm.ErrEmptyResponse},
	}}
	o := New(backend, fastOptions(), Hooks{})

	result := o.Generate(context.Background(), "prompt")
	if result.ReasonCode != core.ReasonModelEmpty {
		t.Errorf("reason = %q, want %q", result.ReasonCode, core.ReasonModelEmpty)
	}
	if len(backend.models) != 3 {
		t.Errorf("calls = %d, want 3 (empty output never retries a model)", len(backend.models))
	}
}
