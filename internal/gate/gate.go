// Package gate is the decision core: mode-specific schema validation,
// similarity detection against the grounding references, and reference-
// grounding enforcement. The first failing stage short-circuits the rest.
package gate

import (
	"strconv"
	"strings"

	"newsgate/internal/core"
	"newsgate/internal/similarity"
)

// Stage identifies which check rejected an attempt; the pipeline maps it to
// a reason code and decides whether a retry is permitted.
type Stage string

const (
	StageSchema     Stage = "schema"
	StageSimilarity Stage = "similarity"
	StageGrounding  Stage = "grounding"
)

// Options carries the gate's tunables.
type Options struct {
	Thresholds         similarity.Thresholds
	GroundingMinTokens int     // shared tokens required for lexical grounding (default 2)
	GroundingJaccard   float64 // OR token Jaccard at least this (default 0.08)
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Thresholds:         similarity.DefaultThresholds(),
		GroundingMinTokens: 2,
		GroundingJaccard:   0.08,
	}
}

// Gate validates parsed candidates against a generation request.
type Gate struct {
	opts Options
}

// New creates a Gate.
func New(opts Options) *Gate {
	if opts.GroundingMinTokens < 1 {
		opts.GroundingMinTokens = 2
	}
	if opts.GroundingJaccard <= 0 {
		opts.GroundingJaccard = 0.08
	}
	if opts.Thresholds.SpanLength == 0 {
		opts.Thresholds = similarity.DefaultThresholds()
	}
	return &Gate{opts: opts}
}

// ValidateDraft runs the three ordered stages over a draft or longform
// candidate. A nil issue slice means the candidate passed every stage.
func (g *Gate) ValidateDraft(candidate *core.DraftCandidate, req *core.GenerationRequest) (Stage, []core.Issue) {
	if issues := g.checkDraftSchema(candidate, req); len(issues) > 0 {
		return StageSchema, issues
	}
	// Section text is artifact prose like the body; it gets the same scrutiny.
	body := candidate.Content
	if extra := candidate.Sections.Text(); extra != "" {
		body += "\n\n" + extra
	}
	if issues := g.checkSimilarity(candidate.Title, body, req); len(issues) > 0 {
		return StageSimilarity, issues
	}
	if issues := g.checkGrounding(candidate.Citation, candidate.Title+" "+body, req); len(issues) > 0 {
		return StageGrounding, issues
	}
	return "", nil
}

// ValidateNewsItems validates a batch. Every item must pass every stage; a
// single failing item rejects the whole batch. Issues are prefixed with the
// item index so callers can attribute them.
func (g *Gate) ValidateNewsItems(items []core.NewsItemCandidate, req *core.GenerationRequest) (Stage, []core.Issue) {
	if len(items) == 0 {
		return StageSchema, []core.Issue{core.NewIssue("items", "non_empty", "batch contains no items")}
	}
	for i := range items {
		if issues := g.checkNewsSchema(&items[i], req, i); len(issues) > 0 {
			return StageSchema, issues
		}
	}
	for i := range items {
		if issues := indexIssues(g.checkSimilarity(items[i].Title, items[i].Content, req), i); len(issues) > 0 {
			return StageSimilarity, issues
		}
	}
	for i := range items {
		if issues := indexIssues(g.checkGrounding(items[i].Citation, items[i].Title+" "+items[i].Content, req), i); len(issues) > 0 {
			return StageGrounding, issues
		}
	}
	return "", nil
}

func indexIssues(issues []core.Issue, index int) []core.Issue {
	for i := range issues {
		if !strings.HasPrefix(issues[i].Field, "items[") {
			issues[i].Field = itemField(index, issues[i].Field)
		}
	}
	return issues
}

func itemField(index int, field string) string {
	return "items[" + strconv.Itoa(index) + "]." + field
}
