package content

// UndeterminedLanguage is the BCP 47 tag used when no language is known.
const UndeterminedLanguage = "und"

// Resolved holds the canonical values derived from a Document.
type Resolved struct {
	Text     string
	Summary  string
	Language string
}

// Resolve picks the text, summary and language of doc.
//
// A non-empty scalar field always wins over its localized map. The language
// comes from the first key of the map that supplied the text, or failing that
// the one that supplied the summary. When the scalar content is used the
// content map is not consulted at all, so a document with both "content" and
// "contentMap" resolves to UndeterminedLanguage.
func Resolve(doc *Document) Resolved {
	r := Resolved{Language: UndeterminedLanguage}
	if doc == nil {
		return r
	}

	var fromContentMap, fromSummaryMap Localized
	var usedContentMap, usedSummaryMap bool
	r.Text, fromContentMap, usedContentMap = pick(doc.Content, doc.ContentMap)
	r.Summary, fromSummaryMap, usedSummaryMap = pick(doc.Summary, doc.SummaryMap)

	switch {
	case usedContentMap:
		r.Language = fromContentMap.Language
	case usedSummaryMap:
		r.Language = fromSummaryMap.Language
	}
	return r
}

func pick(scalar string, m LocalizedMap) (string, Localized, bool) {
	if scalar != "" {
		return scalar, Localized{}, false
	}
	if first, ok := m.First(); ok {
		return first.Text, first, true
	}
	return "", Localized{}, false
}
