package gate

import (
	"strings"
	"unicode/utf8"

	"newsgate/internal/core"
	"newsgate/internal/similarity"
)

// checkDraftSchema enforces the mode-dependent structural contract. Every
// violated rule yields its own issue; the stage does not stop at the first.
func (g *Gate) checkDraftSchema(candidate *core.DraftCandidate, req *core.GenerationRequest) []core.Issue {
	var issues []core.Issue
	c := req.Constraints

	issues = append(issues, checkTitle(candidate.Title, c.TitleMaxChars)...)

	if strings.TrimSpace(candidate.Content) == "" {
		issues = append(issues, core.NewIssue("content", "non_empty", "content must not be empty"))
	}

	switch req.Mode {
	case core.ModeDraft:
		if c.DraftMaxChars > 0 && utf8.RuneCountInString(candidate.Content) > c.DraftMaxChars {
			issues = append(issues, core.NewIssue("content", "max_chars",
				"content is %d chars, cap is %d", utf8.RuneCountInString(candidate.Content), c.DraftMaxChars))
		}
	case core.ModeLongform:
		if c.MinSentences > 0 {
			if got := len(similarity.SplitSentences(candidate.Content)); got < c.MinSentences {
				issues = append(issues, core.NewIssue("content", "min_sentences",
					"content has %d sentence units, minimum is %d", got, c.MinSentences))
			}
		}
		issues = append(issues, checkSections(candidate.Sections)...)
	}

	issues = append(issues, checkMediaSlots(len(candidate.MediaSlots), c.MediaSlotsMin, c.MediaSlotsMax)...)
	return issues
}

// checkNewsSchema enforces the per-item contract for batch news generation.
func (g *Gate) checkNewsSchema(item *core.NewsItemCandidate, req *core.GenerationRequest, index int) []core.Issue {
	var issues []core.Issue
	c := req.Constraints

	for _, issue := range checkTitle(item.Title, c.TitleMaxChars) {
		issue.Field = itemField(index, issue.Field)
		issues = append(issues, issue)
	}
	if strings.TrimSpace(item.Content) == "" {
		issues = append(issues, core.NewIssue(itemField(index, "content"), "non_empty", "content must not be empty"))
	} else if c.DraftMaxChars > 0 && utf8.RuneCountInString(item.Content) > c.DraftMaxChars {
		issues = append(issues, core.NewIssue(itemField(index, "content"), "max_chars",
			"content is %d chars, cap is %d", utf8.RuneCountInString(item.Content), c.DraftMaxChars))
	}
	return issues
}

func checkTitle(title string, maxChars int) []core.Issue {
	var issues []core.Issue
	if strings.TrimSpace(title) == "" {
		issues = append(issues, core.NewIssue("title", "non_empty", "title must not be empty"))
		return issues
	}
	if maxChars > 0 && utf8.RuneCountInString(title) > maxChars {
		issues = append(issues, core.NewIssue("title", "max_chars",
			"title is %d chars, cap is %d", utf8.RuneCountInString(title), maxChars))
	}
	return issues
}

func checkSections(s core.Sections) []core.Issue {
	var issues []core.Issue
	if strings.TrimSpace(s.Core) == "" {
		issues = append(issues, core.NewIssue("sections.core", "non_empty", "core section must not be empty"))
	}
	if strings.TrimSpace(s.DeepDive) == "" {
		issues = append(issues, core.NewIssue("sections.deep_dive", "non_empty", "deepDive section must not be empty"))
	}
	if strings.TrimSpace(s.Conclusion) == "" {
		issues = append(issues, core.NewIssue("sections.conclusion", "non_empty", "conclusion section must not be empty"))
	}
	return issues
}

func checkMediaSlots(count, min, max int) []core.Issue {
	if max == 0 && min == 0 {
		return nil
	}
	if count < min || count > max {
		return []core.Issue{core.NewIssue("media_slots", "count_range",
			"media slot count %d outside allowed range [%d,%d]", count, min, max)}
	}
	return nil
}
