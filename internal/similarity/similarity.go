// Package similarity implements the heuristic plagiarism detectors the gate
// runs against every grounding reference: token-overlap scores, verbatim
// span matching, and lead-paragraph structural overlap.
package similarity

import (
	"strings"
	"unicode"
)

// Thresholds are the tunable detector limits. They are product decisions;
// the gate injects them from configuration.
type Thresholds struct {
	TitleJaccard  float64 // title token overlap limit (default 0.52)
	LeadJaccard   float64 // lead paragraph token overlap limit (default 0.38)
	LeadComposite float64 // combined lead score limit (default 0.44)
	SpanLength    int     // copied-span window, chars after whitespace strip (default 18)
	SpanStep      int     // window slide step (default 3)
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleJaccard:  0.52,
		LeadJaccard:   0.38,
		LeadComposite: 0.44,
		SpanLength:    18,
		SpanStep:      3,
	}
}

// Tokenize lowercases, strips punctuation, and drops tokens shorter than two
// characters. This is the shared tokenization for every overlap score.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) < 2 {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TokenSet builds a membership set from tokenized text.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}

// Jaccard computes set overlap between two token sets: |A∩B| / |A∪B|.
// Two empty sets score zero, not one.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// SharedTokens counts tokens present in both sets.
func SharedTokens(a, b map[string]bool) int {
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	return shared
}

// NormalizeTitle canonicalizes a title for exact-match comparison.
func NormalizeTitle(title string) string {
	return strings.Join(Tokenize(title), " ")
}

// stripWhitespace removes all whitespace and lowercases, so span matching
// survives reflowed line breaks and spacing changes.
func stripWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// HasCopiedSpan slides windows of spanLength characters over the
// whitespace-stripped reference in steps of spanStep and reports whether any
// window appears verbatim in the whitespace-stripped candidate. This catches
// lifted passages even when surrounding structure was reworded.
func HasCopiedSpan(reference, candidate string, spanLength, spanStep int) bool {
	if spanLength <= 0 {
		spanLength = 18
	}
	if spanStep <= 0 {
		spanStep = 3
	}
	ref := stripWhitespace(reference)
	cand := stripWhitespace(candidate)
	if len(ref) < spanLength || len(cand) < spanLength {
		return false
	}
	for start := 0; start+spanLength <= len(ref); start += spanStep {
		if strings.Contains(cand, ref[start:start+spanLength]) {
			return true
		}
	}
	return false
}

// SplitSentences splits text into sentence units on terminal punctuation and
// newlines. Used by the gate's sentence count rule and the lead overlap score.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '\n', '。', '！', '？':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return sentences
}

// LeadOverlap scores structural overlap between a candidate's first two
// paragraphs and a reference's title+summary. The score combines token
// Jaccard (weight 0.6) with a sentence-signature ratio (weight 0.4): the
// fraction of reference sentences whose normalized first sigLen characters
// open some candidate sentence.
func LeadOverlap(candidate, refTitle, refSummary string) float64 {
	_, composite := LeadScores(candidate, refTitle, refSummary)
	return composite
}

// LeadScores returns both the raw lead token Jaccard and the weighted
// composite, so callers can threshold the component and the combination
// independently.
func LeadScores(candidate, refTitle, refSummary string) (jaccard, composite float64) {
	lead := leadParagraphs(candidate, 2)
	if lead == "" {
		return 0, 0
	}
	refText := strings.TrimSpace(refTitle + " " + refSummary)
	if refText == "" {
		return 0, 0
	}

	jaccard = Jaccard(TokenSet(lead), TokenSet(refText))
	signature := sentenceSignatureRatio(refText, lead, 24)
	return jaccard, 0.6*jaccard + 0.4*signature
}

func leadParagraphs(text string, n int) string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
		if len(paragraphs) == n {
			break
		}
	}
	return strings.Join(paragraphs, " ")
}

// sentenceSignatureRatio compares the normalized first sigLen characters of
// each reference sentence against candidate sentence openings.
func sentenceSignatureRatio(reference, candidate string, sigLen int) float64 {
	refSentences := SplitSentences(reference)
	if len(refSentences) == 0 {
		return 0
	}
	var candSigs []string
	for _, s := range SplitSentences(candidate) {
		candSigs = append(candSigs, signature(s, sigLen))
	}
	matched := 0
	for _, rs := range refSentences {
		sig := signature(rs, sigLen)
		if sig == "" {
			continue
		}
		for _, cs := range candSigs {
			if cs == "" {
				continue
			}
			if strings.HasPrefix(cs, sig) || strings.HasPrefix(sig, cs) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(refSentences))
}

func signature(sentence string, sigLen int) string {
	stripped := stripWhitespace(sentence)
	if len(stripped) > sigLen {
		stripped = stripped[:sigLen]
	}
	if len(stripped) < 8 { // too short to be a meaningful signature
		return ""
	}
	return stripped
}
