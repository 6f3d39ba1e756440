// Package view renders records through declarative field and column descriptors.
package view

import (
	"html/template"

	"github.com/trezcool/masomo-console/core/record"
)

// Field describes one labelled value of a record card.
// Render, when set, takes full control of the presentation and bypasses the formatter.
type Field[T record.Getter] struct {
	Key      string
	Label    string
	Accessor func(T) interface{}
	Render   func(T) template.HTML
}

// Value returns the raw value of the field: Accessor when set, otherwise the Key lookup.
func (f Field[T]) Value(rec T) interface{} {
	if f.Accessor != nil {
		return f.Accessor(rec)
	}
	return rec.Get(f.Key)
}

// Column describes one column of a table. Keys must be unique within one table.
type Column[T record.Getter] struct {
	Key        string
	Label      string
	Accessor   func(T) interface{}
	RenderCell func(T) template.HTML
}

// Value returns the raw value of the column: Accessor when set, otherwise the Key lookup.
func (c Column[T]) Value(rec T) interface{} {
	if c.Accessor != nil {
		return c.Accessor(rec)
	}
	return rec.Get(c.Key)
}

// Router builds the edit and delete routes of a record. Route shapes belong to the host application.
type Router interface {
	EditURL(kind record.Kind, id string) string
	DeleteURL(kind record.Kind, id string) string
}
