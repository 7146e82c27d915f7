// Package core defines the domain types shared across the generation pipeline.
package core

import (
	"net/url"
	"strings"
	"time"
)

// Mode selects the structural contract a generated artifact must satisfy.
type Mode string

const (
	ModeDraft    Mode = "draft"    // short quick draft
	ModeLongform Mode = "longform" // sectioned long-form article
	ModeNews     Mode = "news"     // batch of short news items
)

// FallbackSource marks synthetic placeholder references.
const FallbackSource = "fallback"

// ReferenceArticle is a real, attributable article used as factual grounding
// and citation source. Immutable once fetched.
type ReferenceArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`                 // feed/provider identifier, "fallback" for synthetic rows
	PublishedAt time.Time `json:"published_at,omitempty"` // zero when the feed omits it
}

// Fallback reports whether the reference was synthesized because every real
// fetch failed. Fallback rows never satisfy the grounding invariant.
func (r ReferenceArticle) Fallback() bool {
	return r.Source == FallbackSource
}

// Key returns the identity key for deduplication: the normalized URL, or the
// normalized title when no URL is present.
func (r ReferenceArticle) Key() string {
	if r.URL != "" {
		return NormalizeURL(r.URL)
	}
	return strings.ToLower(strings.TrimSpace(r.Title))
}

// Constraints holds the mode-dependent structural limits enforced by the gate.
type Constraints struct {
	TitleMaxChars int `json:"title_max_chars"`
	DraftMaxChars int `json:"draft_max_chars"` // draft mode body cap
	MinSentences  int `json:"min_sentences"`   // longform only
	MediaSlotsMin int `json:"media_slots_min"`
	MediaSlotsMax int `json:"media_slots_max"`
}

// GenerationRequest carries everything the gate loop needs for one API call.
type GenerationRequest struct {
	ID              string             `json:"id"`
	Mode            Mode               `json:"mode"`
	TopicSeed       string             `json:"topic_seed"`
	ReferenceSet    []ReferenceArticle `json:"reference_set"`
	EmotionCategory string             `json:"emotion_category,omitempty"`
	Constraints     Constraints        `json:"constraints"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ReferenceByURL resolves a URL against the request's reference set using
// normalized identity comparison.
func (g *GenerationRequest) ReferenceByURL(rawURL string) (ReferenceArticle, bool) {
	want := NormalizeURL(rawURL)
	if want == "" {
		return ReferenceArticle{}, false
	}
	for _, ref := range g.ReferenceSet {
		if NormalizeURL(ref.URL) == want {
			return ref, true
		}
	}
	return ReferenceArticle{}, false
}

// AllFallback reports whether every reference in the set is synthetic. An
// empty set counts as fallback-only.
func (g *GenerationRequest) AllFallback() bool {
	for _, ref := range g.ReferenceSet {
		if !ref.Fallback() {
			return false
		}
	}
	return true
}

// GenerationAttempt records one pass through the generate→parse→validate loop.
// At most two exist per request; they live only for the duration of the loop.
type GenerationAttempt struct {
	Index        int     `json:"index"`
	Prompt       string  `json:"prompt"`
	RawModelText string  `json:"raw_model_text"`
	ModelUsed    string  `json:"model_used"`
	Issues       []Issue `json:"issues,omitempty"`
}

// Citation declares which reference an artifact is grounded on.
type Citation struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Sections holds the three named parts a longform artifact must carry.
type Sections struct {
	Core       string `json:"core"`
	DeepDive   string `json:"deep_dive"`
	Conclusion string `json:"conclusion"`
}

// Text flattens the non-empty sections into one block, so every check that
// scans artifact prose sees section text too.
func (s Sections) Text() string {
	var parts []string
	for _, part := range []string{s.Core, s.DeepDive, s.Conclusion} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n")
}

// DraftCandidate is the strict shape the parser must produce for draft and
// longform generations. Untyped model output never crosses into the gate.
type DraftCandidate struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Sections   Sections `json:"sections"`
	MediaSlots []string `json:"media_slots"`
	Citation   Citation `json:"citation"`
}

// NewsItemCandidate is one item of a batch news generation.
type NewsItemCandidate struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Citation Citation `json:"citation"`
}

// RiskLevel grades the compliance scanner outcome.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ComplianceFlag is a single matched risk category.
type ComplianceFlag struct {
	Category string    `json:"category"`
	Severity RiskLevel `json:"severity"`
	Detail   string    `json:"detail"`
}

// ComplianceAssessment is the risk scanner's verdict, attached to every
// accepted artifact. PublishBlocked is true iff any flag is high severity.
type ComplianceAssessment struct {
	RiskLevel      RiskLevel        `json:"risk_level"`
	Flags          []ComplianceFlag `json:"flags,omitempty"`
	PublishBlocked bool             `json:"publish_blocked"`
}

// ValidatedArtifact is the accepted output of the pipeline. It is produced
// only when every gate stage passes and is immutable once returned.
type ValidatedArtifact struct {
	ID         string               `json:"id"`
	Mode       Mode                 `json:"mode"`
	Title      string               `json:"title"`
	Content    string               `json:"content"`
	Sections   Sections             `json:"sections,omitempty"`
	MediaSlots []string             `json:"media_slots,omitempty"`
	Citation   Citation             `json:"citation"`
	Compliance ComplianceAssessment `json:"compliance"`
	ModelUsed  string               `json:"model_used"`
	Retried    bool                 `json:"retried"`
	CreatedAt  time.Time            `json:"created_at"`
}

// NormalizeURL canonicalizes a URL for identity comparison: lowercased host
// with default ports, "www." and trailing slashes dropped, query and fragment
// removed. Two URLs identify the same article iff their normal forms match.
func NormalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimSuffix(u.Path, "/")
	return host + path
}
