package similarity

import (
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("EU finalizes AI-Act enforcement, timeline!")
	want := []string{"eu", "finalizes", "ai", "act", "enforcement", "timeline"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	for _, tok := range Tokenize("a I x on to") {
		if len(tok) < 2 {
			t.Errorf("token %q shorter than 2 chars survived", tok)
		}
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "ai regulation timeline", "ai regulation timeline", 1.0},
		{"disjoint", "climate ocean warming", "ai regulation timeline", 0.0},
		{"empty left", "", "ai regulation", 0.0},
		{"both empty", "", "", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(TokenSet(tt.a), TokenSet(tt.b))
			if got != tt.want {
				t.Errorf("Jaccard = %v, want %v", got, tt.want)
			}
		})
	}

	// Partial overlap: {eu, finalizes, ai, act} vs {eu, delays, ai, act} → 3/5.
	got := Jaccard(TokenSet("EU finalizes AI Act"), TokenSet("EU delays AI Act"))
	if got < 0.59 || got > 0.61 {
		t.Errorf("partial Jaccard = %v, want 0.6", got)
	}
}

func TestSharedTokens(t *testing.T) {
	shared := SharedTokens(TokenSet("EU AI Act timeline"), TokenSet("the timeline for the EU act"))
	if shared != 3 { // eu, act, timeline
		t.Errorf("SharedTokens = %d, want 3", shared)
	}
}

func TestNormalizeTitle(t *testing.T) {
	a := NormalizeTitle("EU Finalizes AI Act: Enforcement Timeline!")
	b := NormalizeTitle("eu finalizes ai act enforcement timeline")
	if a != b {
		t.Errorf("normalized titles differ: %q vs %q", a, b)
	}
}

func TestHasCopiedSpan(t *testing.T) {
	reference := "The European Commission confirmed the enforcement schedule will begin in August."

	// Verbatim chunk, reflowed whitespace.
	candidate := "Officials said that the\nEuropean Commission confirmed the enforcement schedule despite doubts."
	if !HasCopiedSpan(reference, candidate, 18, 3) {
		t.Error("HasCopiedSpan missed a verbatim chunk with reflowed whitespace")
	}

	// Properly paraphrased text.
	paraphrase := "Brussels regulators signed off on when the rules take effect, starting late summer."
	if HasCopiedSpan(reference, paraphrase, 18, 3) {
		t.Error("HasCopiedSpan flagged a paraphrase")
	}

	// Too short to window.
	if HasCopiedSpan("tiny", "tiny", 18, 3) {
		t.Error("HasCopiedSpan fired below the window length")
	}
}

func TestSplitSentences(t *testing.T) {
	text := "First sentence. Second one! Third?\nFourth on a new line"
	got := SplitSentences(text)
	if len(got) != 4 {
		t.Fatalf("SplitSentences = %d units (%v), want 4", len(got), got)
	}
	if got[3] != "Fourth on a new line" {
		t.Errorf("last unit = %q", got[3])
	}
}

func TestLeadOverlapHighForDerivedLead(t *testing.T) {
	refTitle := "EU finalizes AI Act enforcement timeline"
	refSummary := "The European Commission confirmed the enforcement schedule will begin in August. Member states must appoint regulators by year end."

	// Candidate lead lifted nearly wholesale from the reference.
	candidate := "EU finalizes AI Act enforcement timeline today. The European Commission confirmed the enforcement schedule will begin in August.\n\nMember states must appoint regulators by year end according to the plan."

	score := LeadOverlap(candidate, refTitle, refSummary)
	if score < 0.44 {
		t.Errorf("LeadOverlap = %v, want >= 0.44 for a lifted lead", score)
	}

	jaccard, composite := LeadScores(candidate, refTitle, refSummary)
	if jaccard < 0.38 {
		t.Errorf("lead Jaccard = %v, want >= 0.38 for a lifted lead", jaccard)
	}
	if composite != score {
		t.Errorf("LeadScores composite %v != LeadOverlap %v", composite, score)
	}
}

func TestLeadOverlapLowForOriginalLead(t *testing.T) {
	refTitle := "EU finalizes AI Act enforcement timeline"
	refSummary := "The European Commission confirmed the enforcement schedule will begin in August."

	candidate := "Artificial intelligence oversight in Europe entered a new phase this week.\n\nRegulators now face a countdown that campaigners describe as ambitious but achievable, with several capitals racing to stand up supervision offices."

	score := LeadOverlap(candidate, refTitle, refSummary)
	if score >= 0.44 {
		t.Errorf("LeadOverlap = %v, want < 0.44 for an original lead", score)
	}
}

func TestLeadOverlapEmptyInputs(t *testing.T) {
	if got := LeadOverlap("", "t", "s"); got != 0 {
		t.Errorf("LeadOverlap with empty candidate = %v, want 0", got)
	}
	if got := LeadOverlap("some text", "", ""); got != 0 {
		t.Errorf("LeadOverlap with empty reference = %v, want 0", got)
	}
}

func TestStripWhitespaceViaSpan(t *testing.T) {
	// Same letters, different spacing/case, must match as a span.
	ref := strings.Repeat("Quantum Breakthrough ", 3)
	cand := strings.ToLower(strings.ReplaceAll(ref, " ", "\t"))
	if !HasCopiedSpan(ref, cand, 18, 3) {
		t.Error("span matching should be whitespace- and case-insensitive")
	}
}
