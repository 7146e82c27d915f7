package gate

import (
	"strings"

	"newsgate/internal/core"
	"newsgate/internal/similarity"
)

// checkGrounding enforces the reference-grounding invariant: the citation
// must resolve to an article actually present in the request's reference
// set, and the candidate text must show lexical overlap with that article.
// Citing a real URL while writing about something unrelated fails here.
func (g *Gate) checkGrounding(citation core.Citation, candidateText string, req *core.GenerationRequest) []core.Issue {
	if strings.TrimSpace(citation.URL) == "" {
		return []core.Issue{core.NewIssue("citation.url", "required", "citation URL is missing")}
	}

	ref, ok := req.ReferenceByURL(citation.URL)
	if !ok {
		return []core.Issue{core.NewIssue("citation.url", "out_of_scope",
			"cited URL %q is not in the reference set", citation.URL)}
	}
	if ref.Fallback() {
		return []core.Issue{core.NewIssue("citation.url", "fallback_reference",
			"cited reference %q is a synthetic fallback row", citation.URL)}
	}

	refTokens := similarity.TokenSet(ref.Title + " " + ref.Summary)
	candTokens := similarity.TokenSet(candidateText)
	shared := similarity.SharedTokens(refTokens, candTokens)
	jaccard := similarity.Jaccard(refTokens, candTokens)

	if shared < g.opts.GroundingMinTokens && jaccard < g.opts.GroundingJaccard {
		return []core.Issue{core.NewIssue("citation", "weak_grounding",
			"candidate shares %d tokens (jaccard %.3f) with cited reference %q; minimum is %d tokens or %.3f",
			shared, jaccard, ref.Title, g.opts.GroundingMinTokens, g.opts.GroundingJaccard)}
	}
	return nil
}
