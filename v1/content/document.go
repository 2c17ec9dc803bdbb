package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotObject is returned by ParseDocument when the payload is valid JSON
// but not a JSON object.
var ErrNotObject = errors.New("fedit: document is not a JSON object")

// Localized is one translation of a field.
type Localized struct {
	Language string
	Text     string
}

// LocalizedMap is an ordered set of translations as delivered by the sender.
type LocalizedMap []Localized

// First returns the entry at index 0.
func (m LocalizedMap) First() (Localized, bool) {
	if len(m) == 0 {
		return Localized{}, false
	}
	return m[0], true
}

// UnmarshalJSON decodes a JSON object preserving key order. Entries whose
// value is not a string are dropped.
func (m *LocalizedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fedit: localized map must be an object, got %v", tok)
	}
	out := LocalizedMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		lang, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var text string
		if json.Unmarshal(raw, &text) != nil {
			continue
		}
		out = append(out, Localized{Language: lang, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Document is an inbound object claiming the new state of a status.
type Document struct {
	// Type holds every discriminator; JSON-LD allows a string or an array.
	Type       []string
	ID         string
	Content    string
	ContentMap LocalizedMap
	Summary    string
	SummaryMap LocalizedMap
	Sensitive  *bool
	Updated    *time.Time
}

// HasType reports whether any of the document types is in types.
func (d *Document) HasType(types ...string) bool {
	if d == nil {
		return false
	}
	for _, t := range d.Type {
		if slices.Contains(types, t) {
			return true
		}
	}
	return false
}

// ParseDocument decodes a JSON object into a Document. Fields with an
// unexpected shape are treated as absent; only malformed JSON or a non-object
// payload is an error.
func ParseDocument(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("fedit: decode document: %w", err)
	}
	if fields == nil {
		return nil, ErrNotObject
	}

	doc := &Document{}
	doc.Type = decodeTypes(fields["type"])
	decodeInto(fields["id"], &doc.ID)
	decodeInto(fields["content"], &doc.Content)
	decodeInto(fields["summary"], &doc.Summary)
	decodeInto(fields["contentMap"], &doc.ContentMap)
	decodeInto(fields["summaryMap"], &doc.SummaryMap)

	var sensitive bool
	if decodeInto(fields["sensitive"], &sensitive) {
		doc.Sensitive = &sensitive
	}
	var updated string
	if decodeInto(fields["updated"], &updated) {
		if ts, err := time.Parse(time.RFC3339, updated); err == nil {
			ts = ts.UTC()
			doc.Updated = &ts
		}
	}
	return doc, nil
}

// decodeInto unmarshals raw into v, leaving v untouched when raw is missing,
// null or of another shape.
func decodeInto[T any](raw json.RawMessage, v *T) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var tmp T
	if err := json.Unmarshal(raw, &tmp); err != nil {
		return false
	}
	*v = tmp
	return true
}

func decodeTypes(raw json.RawMessage) []string {
	var one string
	if decodeInto(raw, &one) {
		return []string{one}
	}
	var many []string
	if decodeInto(raw, &many) {
		return many
	}
	return nil
}
