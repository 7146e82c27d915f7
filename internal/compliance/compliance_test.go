package compliance

import (
	"testing"

	"newsgate/internal/core"
)

func TestCleanTextPasses(t *testing.T) {
	s := NewScanner()
	got := s.Assess("Regulators confirmed the schedule, according to a commission spokesperson, who said the rollout stays on track.")
	if got.PublishBlocked {
		t.Fatalf("clean text blocked: %+v", got.Flags)
	}
	if got.RiskLevel != core.RiskLow {
		t.Errorf("risk level = %s, want low", got.RiskLevel)
	}
}

func TestCategoriesFire(t *testing.T) {
	s := NewScanner()
	tests := []struct {
		name     string
		text     string
		category string
		severity core.RiskLevel
	}{
		{"privacy ssn", "Her records show 123-45-6789 on file.", "privacy", core.RiskHigh},
		{"privacy address wording", "Reporters located the home address of the executive.", "privacy", core.RiskHigh},
		{"defamation", "The filing alleges he embezzled client funds.", "defamation", core.RiskHigh},
		{"medical absolute", "The supplement cures cancer within weeks.", "medical", core.RiskHigh},
		{"financial guarantee", "The fund promises guaranteed returns every quarter.", "financial", core.RiskHigh},
		{"violence", "Witnesses described the scene as a massacre.", "violence", core.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Assess(tt.text)
			flag, ok := findFlag(got.Flags, tt.category)
			if !ok {
				t.Fatalf("category %s did not fire: %+v", tt.category, got.Flags)
			}
			if flag.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", flag.Severity, tt.severity)
			}
		})
	}
}

func TestPublishBlockedOnlyOnHigh(t *testing.T) {
	s := NewScanner()

	high := s.Assess("The fund promises guaranteed returns every quarter.")
	if !high.PublishBlocked {
		t.Error("high severity flag should block publication")
	}

	medium := s.Assess("Witnesses described the scene as a massacre.")
	if medium.PublishBlocked {
		t.Error("medium severity flag should not block publication")
	}
	if medium.RiskLevel != core.RiskMedium {
		t.Errorf("risk level = %s, want medium", medium.RiskLevel)
	}
}

func TestUnattributedQuoteFlag(t *testing.T) {
	s := NewScanner()

	unattributed := s.Assess(`The memo warned that "the entire program will be shut down by March" and circulated widely.`)
	if _, ok := findFlag(unattributed.Flags, "factual"); !ok {
		t.Errorf("unattributed quote should raise a factual flag: %+v", unattributed.Flags)
	}
	if unattributed.PublishBlocked {
		t.Error("a low-severity factual flag must not block publication")
	}

	attributed := s.Assess(`The director said "the entire program will be shut down by March" during the hearing.`)
	if _, ok := findFlag(attributed.Flags, "factual"); ok {
		t.Error("attributed quote should not raise a factual flag")
	}
}

func TestQuoteAttributionWithNonASCIIText(t *testing.T) {
	s := NewScanner()

	// The 'İ' lowercases to a longer byte sequence; window offsets must track
	// the original text, not its lowercased form.
	attributed := s.Assess(`Officials in İstanbul said the plan “will be abandoned by next spring” at the briefing in İzmir.`)
	if _, ok := findFlag(attributed.Flags, "factual"); ok {
		t.Errorf("attributed quote flagged despite nearby attribution: %+v", attributed.Flags)
	}

	unattributed := s.Assess(`A memo from İstanbul claimed “the plan will be abandoned by next spring” and circulated in İzmir.`)
	if _, ok := findFlag(unattributed.Flags, "factual"); !ok {
		t.Errorf("unattributed quote not flagged: %+v", unattributed.Flags)
	}
}

func findFlag(flags []core.ComplianceFlag, category string) (core.ComplianceFlag, bool) {
	for _, f := range flags {
		if f.Category == category {
			return f, true
		}
	}
	return core.ComplianceFlag{}, false
}
