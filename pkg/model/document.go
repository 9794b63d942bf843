package model

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxDocumentTextLen = 50000
	MaxSourceLen       = 50
	MaxSourceTypeLen   = 20
)

// Document is a piece of ingested content that tasks can be linked to.
type Document struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	Summary    string    `json:"summary,omitempty"`
	Source     string    `json:"source,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewDocument struct {
	Text       string
	Summary    string
	Source     string
	SourceType string
}

func (n NewDocument) Validate() error {
	if n.Text == "" {
		return Validationf("text", "must not be empty")
	}
	if err := maxLen("text", n.Text, MaxDocumentTextLen); err != nil {
		return err
	}
	if err := maxLen("source", n.Source, MaxSourceLen); err != nil {
		return err
	}
	return maxLen("source_type", n.SourceType, MaxSourceTypeLen)
}

// Preview returns the first limit characters of text, with "..." appended
// when anything was cut.
func Preview(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// ParseID converts a decimal identifier supplied by the API layer.
func ParseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, Validationf(field, "invalid id %q", s)
	}
	return id, nil
}

// ParseIDs converts a list of decimal identifiers, failing on the first
// malformed one.
func ParseIDs(field string, ss []string) ([]int64, error) {
	ids := make([]int64, 0, len(ss))
	for _, s := range ss {
		id, err := ParseID(field, s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
