// Package corpus holds the ordered document collection the index is built
// from, its on-disk JSON Lines form, and the Provider capability through which
// documents are obtained.
package corpus

import "strings"

// Text field names understood by Document.Field.
const (
	FieldURL             = "url"
	FieldTitle           = "title"
	FieldContext         = "context"
	FieldAltText         = "alt_text"
	FieldCaption         = "caption"
	FieldSource          = "source"
	FieldDetectedObjects = "detected_objects"
)

// DefaultTextFields are indexed when a corpus is created without naming any.
var DefaultTextFields = []string{FieldTitle, FieldAltText, FieldCaption}

// Document is one image record. ID is its position in the Corpus it belongs
// to and is never serialised.
type Document struct {
	ID              int            `json:"-"`
	URL             string         `json:"url"`
	Title           string         `json:"title,omitempty"`
	Context         string         `json:"context,omitempty"`
	AltText         string         `json:"alt_text,omitempty"`
	Caption         string         `json:"caption,omitempty"`
	DetectedObjects []string       `json:"detected_objects,omitempty"`
	Source          string         `json:"source,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Field returns the named field as text. Unknown names fall back to string
// values in Extra; anything else is the empty string.
func (d Document) Field(name string) string {
	switch name {
	case FieldURL:
		return d.URL
	case FieldTitle:
		return d.Title
	case FieldContext:
		return d.Context
	case FieldAltText:
		return d.AltText
	case FieldCaption:
		return d.Caption
	case FieldSource:
		return d.Source
	case FieldDetectedObjects:
		return strings.Join(d.DetectedObjects, " ")
	}
	if v, ok := d.Extra[name].(string); ok {
		return v
	}
	return ""
}
