// Package model holds the cached federated entities mutated by an edit.
package model

import "time"

// Account is the author of a Status. Edits only read it.
type Account struct {
	ID       int64  `gorm:"primaryKey"`
	URI      string `gorm:"uniqueIndex"`
	Username string
	// Sensitized forces every status of the account to be marked sensitive.
	Sensitized bool
}

// Status is the local copy of a remote post, identified by its URI.
type Status struct {
	ID          int64  `gorm:"primaryKey"`
	URI         string `gorm:"uniqueIndex;not null"`
	AccountID   int64  `gorm:"index"`
	Text        string
	SpoilerText string
	Sensitive   bool
	Language    string
	EditedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EditFields are the attributes an edit is allowed to change.
type EditFields struct {
	Text        string
	SpoilerText string
	Sensitive   bool
	Language    string
	EditedAt    time.Time
}

// ApplyEdit copies f onto s.
func (s *Status) ApplyEdit(f EditFields) {
	editedAt := f.EditedAt
	s.Text = f.Text
	s.SpoilerText = f.SpoilerText
	s.Sensitive = f.Sensitive
	s.Language = f.Language
	s.EditedAt = &editedAt
}

// Fields returns the editable attributes currently held by s. A nil
// EditedAt yields the zero time.
func (s *Status) Fields() EditFields {
	f := EditFields{
		Text:        s.Text,
		SpoilerText: s.SpoilerText,
		Sensitive:   s.Sensitive,
		Language:    s.Language,
	}
	if s.EditedAt != nil {
		f.EditedAt = *s.EditedAt
	}
	return f
}
