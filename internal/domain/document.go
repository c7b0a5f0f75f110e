package domain

import (
	"strings"
	"time"
)

// Document is the engine's read model of a knowledge-base entry. The CRUD
// layer owns the row; this engine only reads it and writes back embedding
// state through EmbeddedAt.
type Document struct {
	ID          string
	Content     string
	Category    string
	Department  string
	AccessScope string
	PersonIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// EmbeddedAt is nil while the document is pending (re)embedding. It is
	// set only by a successful embed and cleared whenever the owner signals
	// a content change. Doubles as an audit field.
	EmbeddedAt *time.Time
}

// Pending reports whether the document still needs an embedding.
func (d *Document) Pending() bool { return d.EmbeddedAt == nil }

// EncodePersonIDs joins person ids into the canonical comma-separated form.
// A single id encodes to itself with no trailing delimiter; an empty list
// encodes to "".
func EncodePersonIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// DecodePersonIDs splits the canonical comma-separated form back into an
// ordered list. "" decodes to an empty list.
func DecodePersonIDs(encoded string) []string {
	if encoded == "" {
		return []string{}
	}
	return strings.Split(encoded, ",")
}
