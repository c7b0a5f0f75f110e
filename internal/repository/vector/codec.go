package vector

import (
	"strconv"
	"unicode/utf8"

	"github.com/refbase-io/refbase/internal/domain"
)

// DefaultMetadataByteLimit caps each metadata field stored next to a
// vector so hashes stay small regardless of source field size.
const DefaultMetadataByteLimit = 60

// Hash field names inside a vector entry.
const (
	FieldVector      = "vector"
	FieldCategory    = "category"
	FieldDepartment  = "department"
	FieldAccessScope = "access_scope"
	FieldPersonIDs   = "person_ids"
	FieldCreatedAt   = "created_at"
)

// EncodeMetadata truncates every field value to at most limit bytes
// without splitting a UTF-8 rune. It never fails.
func EncodeMetadata(meta map[string]string, limit int) map[string]string {
	if limit <= 0 {
		limit = DefaultMetadataByteLimit
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = truncateUTF8(v, limit)
	}
	return out
}

// MetadataFromDocument builds the filterable metadata fields stored
// alongside a document's vector.
func MetadataFromDocument(doc *domain.Document) map[string]string {
	return map[string]string{
		FieldCategory:    doc.Category,
		FieldDepartment:  doc.Department,
		FieldAccessScope: doc.AccessScope,
		FieldPersonIDs:   domain.EncodePersonIDs(doc.PersonIDs),
		FieldCreatedAt:   strconv.FormatInt(doc.CreatedAt.UnixMilli(), 10),
	}
}

// truncateUTF8 cuts s at the last rune boundary at or before limit bytes.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
