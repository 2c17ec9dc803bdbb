package content

import "testing"

func TestResolveContentMapOnly(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"type":"Note","contentMap":{"en":"hello"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := Resolve(doc)
	if r.Text != "hello" || r.Language != "en" {
		t.Fatalf("expected hello/en, got %q/%q", r.Text, r.Language)
	}
}

func TestResolveScalarWinsOverMap(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"type":"Note","content":"A","contentMap":{"fr":"B"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := Resolve(doc)
	if r.Text != "A" {
		t.Fatalf("expected scalar content, got %q", r.Text)
	}
	if r.Language != UndeterminedLanguage {
		t.Fatalf("expected und, got %q", r.Language)
	}
}

func TestResolveEmptyDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"type":"Note"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := Resolve(doc)
	if r.Text != "" || r.Summary != "" || r.Language != UndeterminedLanguage {
		t.Fatalf("unexpected resolution %+v", r)
	}
	if got := Resolve(nil); got.Language != UndeterminedLanguage {
		t.Fatalf("nil document should resolve to und, got %+v", got)
	}
}

func TestResolveFirstEntryFollowsArrivalOrder(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"contentMap":{"it":"ciao","en":"hi","de":"hallo"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := Resolve(doc)
	if r.Text != "ciao" || r.Language != "it" {
		t.Fatalf("expected first delivered entry, got %q/%q", r.Text, r.Language)
	}
}

func TestResolveSummaryMapSuppliesLanguage(t *testing.T) {
	doc := &Document{
		Content:    "body",
		SummaryMap: LocalizedMap{{Language: "de", Text: "Spoiler"}},
	}
	r := Resolve(doc)
	if r.Text != "body" || r.Summary != "Spoiler" {
		t.Fatalf("unexpected text/summary %q/%q", r.Text, r.Summary)
	}
	if r.Language != "de" {
		t.Fatalf("expected language from summary map, got %q", r.Language)
	}
}

func TestResolveContentMapBeatsSummaryMapLanguage(t *testing.T) {
	doc := &Document{
		ContentMap: LocalizedMap{{Language: "pt", Text: "olá"}},
		SummaryMap: LocalizedMap{{Language: "es", Text: "cw"}},
	}
	if r := Resolve(doc); r.Language != "pt" {
		t.Fatalf("expected pt, got %q", r.Language)
	}
}

func TestResolveScalarSummaryIgnoresSummaryMap(t *testing.T) {
	doc := &Document{
		Summary:    "cw",
		SummaryMap: LocalizedMap{{Language: "es", Text: "aviso"}},
	}
	r := Resolve(doc)
	if r.Summary != "cw" || r.Language != UndeterminedLanguage {
		t.Fatalf("unexpected resolution %+v", r)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	doc := &Document{ContentMap: LocalizedMap{{Language: "en", Text: "a"}, {Language: "fr", Text: "b"}}}
	first := Resolve(doc)
	for i := 0; i < 10; i++ {
		if got := Resolve(doc); got != first {
			t.Fatalf("resolution changed between calls: %+v vs %+v", first, got)
		}
	}
}

func TestResolveWhitespaceScalarIsKept(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"content":"  ","contentMap":{"en":"hello"},"summary":"\n","summaryMap":{"de":"cw"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := Resolve(doc)
	if r.Text != "  " || r.Summary != "\n" || r.Language != UndeterminedLanguage {
		t.Fatalf("expected whitespace scalars to win, got %+v", r)
	}
}
