// Package pipeline wires the reference acquisitor, generation orchestrator,
// parser, gate, compliance scanner and ops counters into the two operations
// the core exposes: batch news generation and single draft generation.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"newsgate/internal/compliance"
	"newsgate/internal/core"
	"newsgate/internal/gate"
	"newsgate/internal/logger"
	"newsgate/internal/metrics"
	"newsgate/internal/orchestrate"
	"newsgate/internal/parse"
	"newsgate/internal/reference"
)

// maxGateAttempts bounds the similarity retry loop: one initial attempt plus
// one regeneration with an amended prompt.
const maxGateAttempts = 2

// Generator is the orchestrator surface the pipeline needs; narrowed to an
// interface so tests inject scripted models.
type Generator interface {
	Generate(ctx context.Context, prompt string) orchestrate.Result
}

// Acquisitor is the reference-acquisition surface the pipeline needs.
type Acquisitor interface {
	FetchReferences(ctx context.Context, keyword string, limit int) reference.Set
	FetchBatch(ctx context.Context, keywords []string, limit int) map[string]reference.Set
}

// Options carries the pipeline's structural constraints and timing.
type Options struct {
	Draft          core.Constraints
	Longform       core.Constraints
	News           core.Constraints
	NewsBatchSize  int
	ReferenceLimit int
	RequestTimeout time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Draft:          core.Constraints{TitleMaxChars: 120, DraftMaxChars: 4000, MediaSlotsMin: 1, MediaSlotsMax: 3},
		Longform:       core.Constraints{TitleMaxChars: 120, MinSentences: 18, MediaSlotsMin: 2, MediaSlotsMax: 6},
		News:           core.Constraints{TitleMaxChars: 120, DraftMaxChars: 1200},
		NewsBatchSize:  3,
		ReferenceLimit: 5,
		RequestTimeout: 40 * time.Second,
	}
}

// Service is the reference-grounded generation gate.
type Service struct {
	acquisitor Acquisitor
	generator  Generator
	gate       *gate.Gate
	scanner    *compliance.Scanner
	registry   *metrics.Registry
	opts       Options
}

// New wires a Service. registry must not be nil; it is the injectable
// counter surface, never hidden process state.
func New(acquisitor Acquisitor, generator Generator, g *gate.Gate, scanner *compliance.Scanner, registry *metrics.Registry, opts Options) *Service {
	if opts.NewsBatchSize < 1 {
		opts.NewsBatchSize = 3
	}
	if opts.ReferenceLimit < 1 {
		opts.ReferenceLimit = 5
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 40 * time.Second
	}
	return &Service{
		acquisitor: acquisitor,
		generator:  generator,
		gate:       g,
		scanner:    scanner,
		registry:   registry,
		opts:       opts,
	}
}

// GenerateDraft produces one grounded draft or long-form artifact. The
// caller-selected reference, when present, seeds the grounding set ahead of
// auto-fetched supplements.
func (s *Service) GenerateDraft(ctx context.Context, mode core.Mode, topic string, selected *core.ReferenceArticle) (*core.ValidatedArtifact, *core.Rejection) {
	scope := metrics.ScopeMode + string(mode)
	s.registry.Track(scope, metrics.KeyRequests, 1)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	constraints := s.opts.Draft
	if mode == core.ModeLongform {
		constraints = s.opts.Longform
	}

	set := s.acquisitor.FetchReferences(ctx, topic, s.opts.ReferenceLimit)
	refs := set.Articles
	if selected != nil {
		refs = append([]core.ReferenceArticle{*selected}, refs...)
	}

	req := &core.GenerationRequest{
		ID:           uuid.NewString(),
		Mode:         mode,
		TopicSeed:    topic,
		ReferenceSet: dedupeRefs(refs),
		Constraints:  constraints,
		CreatedAt:    time.Now().UTC(),
	}

	if req.AllFallback() {
		s.registry.Track(scope, metrics.KeyGroundingBlocks, 1)
		return nil, core.Reject(core.ReasonReferenceUnavailable, true,
			core.NewIssue("reference_set", "all_fallback", "no real reference articles could be fetched for %q", topic))
	}

	var artifact *core.ValidatedArtifact
	rejection := s.runGateLoop(ctx, req, scope,
		func(amended bool) string { return buildDraftPrompt(req, amended) },
		func(doc json.RawMessage, result orchestrate.Result, retried bool) (gate.Stage, []core.Issue) {
			candidate, err := parse.DecodeDraft(doc)
			if err != nil {
				return gate.StageSchema, []core.Issue{core.NewIssue("candidate", "shape", "%v", err)}
			}
			stage, issues := s.gate.ValidateDraft(candidate, req)
			if stage != "" {
				return stage, issues
			}
			scanText := candidate.Title + "\n" + candidate.Content
			if extra := candidate.Sections.Text(); extra != "" {
				scanText += "\n" + extra
			}
			assessment := s.scanner.Assess(scanText)
			artifact = &core.ValidatedArtifact{
				ID:         uuid.NewString(),
				Mode:       mode,
				Title:      candidate.Title,
				Content:    candidate.Content,
				Sections:   candidate.Sections,
				MediaSlots: candidate.MediaSlots,
				Citation:   candidate.Citation,
				Compliance: assessment,
				ModelUsed:  result.ModelUsed,
				Retried:    retried,
				CreatedAt:  time.Now().UTC(),
			}
			return "", nil
		})
	if rejection != nil {
		return nil, rejection
	}

	if artifact.Compliance.PublishBlocked {
		s.registry.Track(scope, metrics.KeyComplianceBlocks, 1)
		return nil, core.Reject(core.ReasonComplianceBlocked, false, complianceIssues(artifact.Compliance)...)
	}

	s.registry.Track(scope, metrics.KeySuccess, 1)
	return artifact, nil
}

// GenerateNewsItems produces a batch of short items for an emotion category,
// each independently grounded. One ungrounded item rejects the whole batch.
func (s *Service) GenerateNewsItems(ctx context.Context, category string, keywords []string) ([]core.ValidatedArtifact, *core.Rejection) {
	scope := metrics.ScopeCategory + category
	s.registry.Track(scope, metrics.KeyRequests, 1)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	sets := s.acquisitor.FetchBatch(ctx, keywords, s.opts.ReferenceLimit)
	var refs []core.ReferenceArticle
	for _, set := range sets {
		refs = append(refs, set.Articles...)
	}

	req := &core.GenerationRequest{
		ID:              uuid.NewString(),
		Mode:            core.ModeNews,
		TopicSeed:       category,
		ReferenceSet:    dedupeRefs(refs),
		EmotionCategory: category,
		Constraints:     s.opts.News,
		CreatedAt:       time.Now().UTC(),
	}

	if req.AllFallback() {
		s.registry.Track(scope, metrics.KeyGroundingBlocks, 1)
		return nil, core.Reject(core.ReasonReferenceUnavailable, true,
			core.NewIssue("reference_set", "all_fallback", "no real reference articles could be fetched for category %q", category))
	}

	var items []core.NewsItemCandidate
	var modelUsed string
	var wasRetried bool
	rejection := s.runGateLoop(ctx, req, scope,
		func(amended bool) string { return buildNewsPrompt(req, s.opts.NewsBatchSize, amended) },
		func(doc json.RawMessage, result orchestrate.Result, retried bool) (gate.Stage, []core.Issue) {
			decoded, err := parse.DecodeNewsItems(doc)
			if err != nil {
				return gate.StageSchema, []core.Issue{core.NewIssue("items", "shape", "%v", err)}
			}
			stage, issues := s.gate.ValidateNewsItems(decoded, req)
			if stage != "" {
				return stage, issues
			}
			items, modelUsed, wasRetried = decoded, result.ModelUsed, retried
			return "", nil
		})
	if rejection != nil {
		return nil, rejection
	}

	now := time.Now().UTC()
	artifacts := make([]core.ValidatedArtifact, 0, len(items))
	for _, item := range items {
		assessment := s.scanner.Assess(item.Title + "\n" + item.Content)
		if assessment.PublishBlocked {
			s.registry.Track(scope, metrics.KeyComplianceBlocks, 1)
			return nil, core.Reject(core.ReasonComplianceBlocked, false, complianceIssues(assessment)...)
		}
		artifacts = append(artifacts, core.ValidatedArtifact{
			ID:         uuid.NewString(),
			Mode:       core.ModeNews,
			Title:      item.Title,
			Content:    item.Content,
			Citation:   item.Citation,
			Compliance: assessment,
			ModelUsed:  modelUsed,
			Retried:    wasRetried,
			CreatedAt:  now,
		})
	}

	s.registry.Track(scope, metrics.KeySuccess, 1)
	return artifacts, nil
}

// validateFn decodes and gates one parsed document. An empty stage means the
// candidate was accepted and the closure captured it.
type validateFn func(doc json.RawMessage, result orchestrate.Result, retried bool) (gate.Stage, []core.Issue)

// runGateLoop drives the state machine: generate → parse (with one model
// repair pass) → validate, with exactly one similarity retry. It returns nil
// when an attempt was accepted.
func (s *Service) runGateLoop(ctx context.Context, req *core.GenerationRequest, scope string, prompt func(amended bool) string, validate validateFn) *core.Rejection {
	for attempt := 1; attempt <= maxGateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return core.Reject(core.ReasonCancelled, true,
				core.NewIssue("request", "cancelled", "request context ended: %v", err))
		}

		amended := attempt > 1
		result := s.generator.Generate(ctx, prompt(amended))
		if result.Text == "" {
			if result.ReasonCode == core.ReasonModelEmpty {
				s.registry.Track(scope, metrics.KeyModelEmpty, 1)
			}
			return core.Reject(core.ReasonModelUnavailable, true,
				core.NewIssue("model", "exhausted", "model chain exhausted: %s", result.ReasonCode))
		}

		doc, ok := parse.Extract(result.Text)
		if !ok {
			doc, ok = s.repairViaModel(ctx, result.Text)
		}
		if !ok {
			s.registry.Track(scope, metrics.KeyParseFailures, 1)
			return core.Reject(core.ReasonParseBlocked, true,
				core.NewIssue("raw_output", "unparseable", "model output could not be parsed as JSON, even after repair"))
		}

		stage, issues := validate(doc, result, amended)
		switch stage {
		case "":
			return nil
		case gate.StageSimilarity:
			s.registry.Track(scope, metrics.KeySimilarityBlocks, 1)
			if attempt < maxGateAttempts {
				s.registry.Track(scope, metrics.KeyRetries, 1)
				logger.Info("similarity violation, retrying with amended prompt",
					"request", req.ID, "attempt", attempt)
				continue
			}
			rej := core.Reject(core.ReasonSimilarityBlocked, false, issues...)
			rej.Retried = true
			return rej
		case gate.StageGrounding:
			s.registry.Track(scope, metrics.KeyGroundingBlocks, 1)
			return core.Reject(groundingReason(issues), false, issues...)
		default: // schema
			s.registry.Track(scope, metrics.KeySchemaBlocks, 1)
			return core.Reject(core.ReasonSchemaInvalid, false, issues...)
		}
	}
	// Unreachable: the loop always returns.
	return core.Reject(core.ReasonModelUnavailable, true)
}

// repairViaModel is the gate-owned secondary parse path: re-prompt the model
// chain to re-emit its own output as strict JSON.
func (s *Service) repairViaModel(ctx context.Context, raw string) (json.RawMessage, bool) {
	result := s.generator.Generate(ctx, buildRepairPrompt(raw))
	if result.Text == "" {
		return nil, false
	}
	return parse.Extract(result.Text)
}

// groundingReason distinguishes out-of-scope citations from weak lexical
// grounding when mapping grounding issues to a reason code.
func groundingReason(issues []core.Issue) core.ReasonCode {
	for _, issue := range issues {
		if issue.Rule == "out_of_scope" || issue.Rule == "fallback_reference" || issue.Rule == "required" {
			return core.ReasonReferenceOutOfScope
		}
	}
	return core.ReasonGroundingWeak
}

func complianceIssues(a core.ComplianceAssessment) []core.Issue {
	issues := make([]core.Issue, 0, len(a.Flags))
	for _, flag := range a.Flags {
		issues = append(issues, core.NewIssue("content", "compliance_"+flag.Category, "%s", flag.Detail))
	}
	return issues
}

func dedupeRefs(refs []core.ReferenceArticle) []core.ReferenceArticle {
	seen := make(map[string]bool, len(refs))
	var out []core.ReferenceArticle
	for _, ref := range refs {
		key := ref.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	return out
}
