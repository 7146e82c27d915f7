package core

import "fmt"

// ReasonCode is the machine-readable cause attached to every rejection.
type ReasonCode string

const (
	ReasonSchemaInvalid        ReasonCode = "AI_DRAFT_SCHEMA_INVALID"
	ReasonSimilarityBlocked    ReasonCode = "AI_DRAFT_SIMILARITY_BLOCKED"
	ReasonParseBlocked         ReasonCode = "AI_DRAFT_PARSE_BLOCKED"
	ReasonReferenceOutOfScope  ReasonCode = "AI_NEWS_REFERENCE_OUT_OF_SCOPE"
	ReasonReferenceUnavailable ReasonCode = "AI_NEWS_REFERENCE_UNAVAILABLE"
	ReasonGroundingWeak        ReasonCode = "AI_NEWS_GROUNDING_WEAK"
	ReasonComplianceBlocked    ReasonCode = "AI_COMPLIANCE_BLOCKED"
	ReasonModelUnavailable     ReasonCode = "AI_MODEL_UNAVAILABLE"
	ReasonModelTimeout         ReasonCode = "MODEL_TIMEOUT"
	ReasonModelEmpty           ReasonCode = "MODEL_EMPTY"
	ReasonCancelled            ReasonCode = "REQUEST_CANCELLED"
)

// Issue describes one violated rule, tied to the field that broke it.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// NewIssue builds an Issue with a formatted message.
func NewIssue(field, rule, format string, args ...any) Issue {
	return Issue{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Rejection is the terminal failure result of a generation request. It is
// machine-readable; callers own any user-facing messaging.
type Rejection struct {
	Code      ReasonCode `json:"code"`
	Retryable bool       `json:"retryable"`
	Retried   bool       `json:"retried"` // true when the gate already spent its similarity retry
	Issues    []Issue    `json:"issues,omitempty"`
}

// Error implements the error interface so rejections can flow through
// error-returning call sites without losing their structure.
func (r *Rejection) Error() string {
	return fmt.Sprintf("generation rejected: %s (%d issues, retryable=%v)", r.Code, len(r.Issues), r.Retryable)
}

// Reject builds a Rejection with issues attached.
func Reject(code ReasonCode, retryable bool, issues ...Issue) *Rejection {
	return &Rejection{Code: code, Retryable: retryable, Issues: issues}
}
