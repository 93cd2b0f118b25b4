package corpus

import "strings"

// Corpus is an immutable, ordered set of documents together with the names of
// the fields that are indexed.
type Corpus struct {
	docs   []Document
	fields []string
}

// New copies docs, assigning each its position as ID. The caller's slice is
// left untouched.
func New(docs []Document, textFields ...string) *Corpus {
	if len(textFields) == 0 {
		textFields = DefaultTextFields
	}
	c := &Corpus{
		docs:   make([]Document, len(docs)),
		fields: append([]string(nil), textFields...),
	}
	copy(c.docs, docs)
	for i := range c.docs {
		c.docs[i].ID = i
	}
	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Document returns the document with the given ID.
func (c *Corpus) Document(id int) (Document, bool) {
	if c == nil || id < 0 || id >= len(c.docs) {
		return Document{}, false
	}
	return c.docs[id], true
}

// Documents returns a copy of the documents in ID order.
func (c *Corpus) Documents() []Document {
	if c == nil {
		return nil
	}
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

func (c *Corpus) TextFields() []string {
	return append([]string(nil), c.fields...)
}

// Text concatenates the indexed fields of a document with single spaces.
// Missing fields contribute empty strings.
func (c *Corpus) Text(id int) string {
	doc, ok := c.Document(id)
	if !ok {
		return ""
	}
	parts := make([]string, len(c.fields))
	for i, f := range c.fields {
		parts[i] = doc.Field(f)
	}
	return strings.Join(parts, " ")
}
