package pipeline

import (
	"fmt"
	"strings"

	"newsgate/internal/core"
)

const draftPromptTemplate = `You are a newsroom writing assistant. Write an original %s article about the topic below, grounded ONLY in the reference articles provided. Do not copy wording from the references; restate facts in your own words.

Topic: %s

Reference articles (cite exactly one by its URL):
%s

Respond with strict JSON only, no commentary, matching this shape:
{
  "title": "original headline, at most %d characters",
  "content": "%s",
  "sections": {"core": "...", "deep_dive": "...", "conclusion": "..."},
  "media_slots": ["description of image/video slot", ...],
  "citation": {"title": "...", "url": "...", "source": "..."}
}

Structural requirements:
%s`

const newsPromptTemplate = `You are a newsroom writing assistant. Write %d short, original news items for the "%s" desk, each grounded in one of the reference articles below. Never copy reference wording; restate facts in your own words. Each item must cite the URL of the reference it is grounded on.

Reference articles:
%s

Respond with strict JSON only, no commentary:
{"items": [{"title": "...", "content": "...", "citation": {"title": "...", "url": "...", "source": "..."}}]}

Each title must be at most %d characters and each content body at most %d characters.`

// rephraseInstruction is appended to the prompt on the single similarity
// retry the gate permits.
const rephraseInstruction = `

IMPORTANT: a previous draft was rejected for being too close to the reference wording and structure. Rephrase completely: new headline, different sentence structure and paragraph order. Preserve the facts and the citation; change the words.`

const repairPromptTemplate = `The following text was supposed to be a single strict JSON document but failed to parse. Re-emit it as valid JSON only, preserving all field values. No commentary, no code fences.

%s`

func formatReferences(refs []core.ReferenceArticle) string {
	var b strings.Builder
	n := 0
	for _, ref := range refs {
		if ref.Fallback() {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   Source: %s\n   Summary: %s\n", n, ref.Title, ref.URL, ref.Source, ref.Summary)
	}
	return b.String()
}

func buildDraftPrompt(req *core.GenerationRequest, amended bool) string {
	c := req.Constraints

	var contentSpec string
	var rules []string
	modeName := "quick draft"
	if req.Mode == core.ModeLongform {
		modeName = "long-form"
		contentSpec = "full article body"
		rules = append(rules,
			fmt.Sprintf("- content must contain at least %d sentences", c.MinSentences),
			"- sections core, deep_dive and conclusion must each be non-empty")
	} else {
		contentSpec = "draft body"
		rules = append(rules, fmt.Sprintf("- content must be under %d characters", c.DraftMaxChars))
	}
	rules = append(rules, fmt.Sprintf("- media_slots must contain between %d and %d entries", c.MediaSlotsMin, c.MediaSlotsMax))

	prompt := fmt.Sprintf(draftPromptTemplate,
		modeName, req.TopicSeed, formatReferences(req.ReferenceSet),
		c.TitleMaxChars, contentSpec, strings.Join(rules, "\n"))
	if amended {
		prompt += rephraseInstruction
	}
	return prompt
}

func buildNewsPrompt(req *core.GenerationRequest, batchSize int, amended bool) string {
	prompt := fmt.Sprintf(newsPromptTemplate,
		batchSize, req.EmotionCategory, formatReferences(req.ReferenceSet),
		req.Constraints.TitleMaxChars, req.Constraints.DraftMaxChars)
	if amended {
		prompt += rephraseInstruction
	}
	return prompt
}

func buildRepairPrompt(raw string) string {
	return fmt.Sprintf(repairPromptTemplate, raw)
}
