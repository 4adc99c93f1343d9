// ABOUTME: Capability interfaces a caller's document type implements so the
// ABOUTME: datastore can derive index entries without knowing its shape.

package document

// RangeField is one (field, value) pair a document contributes to the
// range index. Values are compared lexicographically, never numerically.
type RangeField struct {
	Field string
	Value string
}

// Document is the capability view a datastore needs from a caller's value
// type. Every method is a pure function of the document's own state —
// callers typically implement this directly on their domain struct rather
// than wrapping it.
type Document interface {
	// IndexKeys returns the strings this document claims in the unique
	// hash index. Empty is valid and skips the uniqueness check entirely.
	IndexKeys() []string

	// Tags returns the strings this document is filed under in the
	// multi-valued tag index. The same tag may be shared by many
	// documents.
	Tags() []string

	// RangeFields returns the (field, value) pairs this document
	// contributes to the ordered range index.
	RangeFields() []RangeField

	// ViewName names at most one materialized view this document
	// belongs to, or "" for none.
	ViewName() string

	// Content is the text fed to the inverted-index tokenizer, or ""
	// to contribute nothing to full-text search.
	Content() string
}
