package gate

import (
	"newsgate/internal/core"
	"newsgate/internal/similarity"
)

// checkSimilarity runs the plagiarism detectors against every reference in
// the grounding set, not only the cited one. Any single hit fails the stage.
func (g *Gate) checkSimilarity(title, content string, req *core.GenerationRequest) []core.Issue {
	t := g.opts.Thresholds
	candidateTitle := similarity.NormalizeTitle(title)
	titleTokens := similarity.TokenSet(title)

	for _, ref := range req.ReferenceSet {
		if ref.Fallback() {
			continue
		}

		if candidateTitle != "" && candidateTitle == similarity.NormalizeTitle(ref.Title) {
			return []core.Issue{core.NewIssue("title", "exact_title_match",
				"title matches reference %q verbatim", ref.Title)}
		}

		if score := similarity.Jaccard(titleTokens, similarity.TokenSet(ref.Title)); score >= t.TitleJaccard {
			return []core.Issue{core.NewIssue("title", "title_overlap",
				"title token overlap %.2f with reference %q exceeds %.2f", score, ref.Title, t.TitleJaccard)}
		}

		refText := ref.Title + " " + ref.Summary
		if similarity.HasCopiedSpan(refText, content, t.SpanLength, t.SpanStep) {
			return []core.Issue{core.NewIssue("content", "copied_span",
				"content contains a verbatim span of reference %q", ref.Title)}
		}

		leadJaccard, composite := similarity.LeadScores(content, ref.Title, ref.Summary)
		if leadJaccard >= t.LeadJaccard && composite >= t.LeadComposite {
			return []core.Issue{core.NewIssue("content", "lead_overlap",
				"lead paragraphs overlap reference %q with score %.2f (limit %.2f)", ref.Title, composite, t.LeadComposite)}
		}
	}
	return nil
}
