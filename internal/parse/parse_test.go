package parse

import (
	"encoding/json"
	"testing"
)

func TestExtractDirectJSON(t *testing.T) {
	doc, ok := Extract(`{"title": "hello", "content": "world"}`)
	if !ok {
		t.Fatal("Extract failed on direct JSON")
	}
	var m map[string]string
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatalf("extracted document invalid: %v", err)
	}
	if m["title"] != "hello" {
		t.Errorf("title = %q, want hello", m["title"])
	}
}

func TestExtractFencedBlock(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"title\": \"fenced\"}\n```\nHope that helps!"
	doc, ok := Extract(raw)
	if !ok {
		t.Fatal("Extract failed on fenced block")
	}
	var m map[string]string
	_ = json.Unmarshal(doc, &m)
	if m["title"] != "fenced" {
		t.Errorf("title = %q, want fenced", m["title"])
	}
}

func TestExtractBraceSubstring(t *testing.T) {
	raw := `Sure! The draft is {"title": "embedded", "nested": {"a": 1}} as requested.`
	doc, ok := Extract(raw)
	if !ok {
		t.Fatal("Extract failed on brace substring")
	}
	var m map[string]any
	_ = json.Unmarshal(doc, &m)
	if m["title"] != "embedded" {
		t.Errorf("title = %v, want embedded", m["title"])
	}
}

func TestExtractArraySubstring(t *testing.T) {
	raw := `The items are [{"title": "one"}, {"title": "two"}] in order.`
	doc, ok := Extract(raw)
	if !ok {
		t.Fatal("Extract failed on array substring")
	}
	var items []map[string]string
	if err := json.Unmarshal(doc, &items); err != nil || len(items) != 2 {
		t.Fatalf("unexpected decode: %v items=%v", err, items)
	}
}

func TestExtractRepairsTrailingCommas(t *testing.T) {
	raw := `{"title": "x", "slots": ["a", "b",],}`
	doc, ok := Extract(raw)
	if !ok {
		t.Fatal("Extract failed on repairable trailing commas")
	}
	var m struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(doc, &m); err != nil || len(m.Slots) != 2 {
		t.Fatalf("repair produced invalid document: %v", err)
	}
}

func TestExtractRepairsSmartQuotes(t *testing.T) {
	raw := "{“title”: “smart”}"
	doc, ok := Extract(raw)
	if !ok {
		t.Fatal("Extract failed on smart quotes")
	}
	var m map[string]string
	_ = json.Unmarshal(doc, &m)
	if m["title"] != "smart" {
		t.Errorf("title = %q, want smart", m["title"])
	}
}

func TestExtractGarbageReturnsFalse(t *testing.T) {
	for _, raw := range []string{"", "no json here at all", "{broken", "just some } text {"} {
		if _, ok := Extract(raw); ok {
			t.Errorf("Extract(%q) succeeded, want failure", raw)
		}
	}
}

func TestExtractIgnoresBareScalars(t *testing.T) {
	if _, ok := Extract(`"just a string"`); ok {
		t.Error("Extract accepted a bare string document")
	}
}

func TestDecodeDraft(t *testing.T) {
	doc := json.RawMessage(`{
		"title": "T",
		"content": "C",
		"sections": {"core": "a", "deep_dive": "b", "conclusion": "c"},
		"media_slots": ["photo of the summit"],
		"citation": {"title": "Ref", "url": "https://example.com/ref", "source": "Example"}
	}`)
	candidate, err := DecodeDraft(doc)
	if err != nil {
		t.Fatalf("DecodeDraft() error: %v", err)
	}
	if candidate.Sections.DeepDive != "b" {
		t.Errorf("deep_dive = %q, want b", candidate.Sections.DeepDive)
	}
	if candidate.Citation.URL != "https://example.com/ref" {
		t.Errorf("citation url = %q", candidate.Citation.URL)
	}
}

func TestDecodeNewsItems(t *testing.T) {
	bare := json.RawMessage(`[{"title": "a", "content": "x", "citation": {"url": "https://e.com/1"}}]`)
	items, err := DecodeNewsItems(bare)
	if err != nil || len(items) != 1 {
		t.Fatalf("bare array decode failed: %v", err)
	}

	envelope := json.RawMessage(`{"items": [{"title": "a", "content": "x", "citation": {"url": "https://e.com/1"}}, {"title": "b", "content": "y", "citation": {"url": "https://e.com/2"}}]}`)
	items, err = DecodeNewsItems(envelope)
	if err != nil || len(items) != 2 {
		t.Fatalf("envelope decode failed: %v items=%d", err, len(items))
	}

	if _, err := DecodeNewsItems(json.RawMessage(`{"foo": 1}`)); err == nil {
		t.Error("DecodeNewsItems accepted a non-batch document")
	}
}
