// Package compliance scans accepted artifacts for publication risk. The
// scan runs after the gate and can still veto publication; its assessment is
// always attached to the artifact for the caller to act on.
package compliance

import (
	"regexp"
	"strings"

	"newsgate/internal/core"
)

// category is one fixed risk check: a set of patterns and the severity a
// match carries.
type category struct {
	name     string
	severity core.RiskLevel
	patterns []*regexp.Regexp
	detail   string
}

var categories = []category{
	{
		name:     "privacy",
		severity: core.RiskHigh,
		detail:   "possible personal data exposure",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                          // SSN-shaped
			regexp.MustCompile(`\b(?:\+?\d{1,3}[-. ])?\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`), // phone
			regexp.MustCompile(`(?i)\b(home address|residential address|lives at)\b`),
			regexp.MustCompile(`(?i)\b(passport number|social security number|national id)\b`),
		},
	},
	{
		name:     "defamation",
		severity: core.RiskHigh,
		detail:   "defamatory wording about a named party",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bis (a|an) (criminal|fraud|fraudster|liar|con artist)\b`),
			regexp.MustCompile(`(?i)\b(embezzled|defrauded|swindled)\b`),
		},
	},
	{
		name:     "medical",
		severity: core.RiskHigh,
		detail:   "absolute medical claim",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(cures|guaranteed to cure|eliminates) (cancer|diabetes|disease|illness)\b`),
			regexp.MustCompile(`(?i)\b100% (effective|safe) (treatment|cure|drug)\b`),
			regexp.MustCompile(`(?i)\bno side effects\b`),
		},
	},
	{
		name:     "financial",
		severity: core.RiskHigh,
		detail:   "guaranteed-return financial claim",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bguaranteed (returns?|profits?|gains?)\b`),
			regexp.MustCompile(`(?i)\b(risk-free|can't lose|cannot lose) invest(ment|ing)\b`),
			regexp.MustCompile(`(?i)\bdouble your money\b`),
		},
	},
	{
		name:     "violence",
		severity: core.RiskMedium,
		detail:   "violence-related terms",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(massacre|slaughter|bloodbath)\b`),
			regexp.MustCompile(`(?i)\bcalls? for violence\b`),
		},
	},
}

// quoteRe finds quoted passages long enough to look like attributed speech.
var quoteRe = regexp.MustCompile(`[“"]([^”"]{12,})[”"]`)

// attributionWords must appear near a quote for it to count as sourced.
var attributionWords = []string{"said", "says", "according to", "reported", "stated", "told", "announced"}

// Scanner runs the fixed category checks. It is stateless and safe for
// concurrent use.
type Scanner struct{}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Assess scans text and grades the result. PublishBlocked is true iff any
// flag carries high severity.
func (s *Scanner) Assess(text string) core.ComplianceAssessment {
	var flags []core.ComplianceFlag

	for _, cat := range categories {
		for _, pattern := range cat.patterns {
			if loc := pattern.FindString(text); loc != "" {
				flags = append(flags, core.ComplianceFlag{
					Category: cat.name,
					Severity: cat.severity,
					Detail:   cat.detail + ": " + truncate(loc, 60),
				})
				break
			}
		}
	}

	if flag, flagged := unattributedQuote(text); flagged {
		flags = append(flags, flag)
	}

	level := core.RiskLow
	blocked := false
	for _, f := range flags {
		switch f.Severity {
		case core.RiskHigh:
			level = core.RiskHigh
			blocked = true
		case core.RiskMedium:
			if level != core.RiskHigh {
				level = core.RiskMedium
			}
		}
	}

	return core.ComplianceAssessment{RiskLevel: level, Flags: flags, PublishBlocked: blocked}
}

// unattributedQuote is the weak factuality heuristic: quoted text with no
// attribution wording within the surrounding 160 characters.
func unattributedQuote(text string) (core.ComplianceFlag, bool) {
	for _, m := range quoteRe.FindAllStringIndex(text, -1) {
		start := m[0] - 80
		if start < 0 {
			start = 0
		}
		end := m[1] + 80
		if end > len(text) {
			end = len(text)
		}
		// Slice the original text: lowercasing first can shift byte offsets
		// for non-ASCII input.
		window := strings.ToLower(text[start:end])
		attributed := false
		for _, word := range attributionWords {
			if strings.Contains(window, word) {
				attributed = true
				break
			}
		}
		if !attributed {
			return core.ComplianceFlag{
				Category: "factual",
				Severity: core.RiskLow,
				Detail:   "quoted text without nearby source attribution",
			}, true
		}
	}
	return core.ComplianceFlag{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
