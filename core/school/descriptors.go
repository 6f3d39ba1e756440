package school

import (
	"bytes"
	"context"
	"html/template"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/view"
)

// ActionsKey is the key of the Edit/Delete column.
const ActionsKey = "actions"

var actionsTmpl = template.Must(template.New("actions").Parse(
	`<a class="btn btn-edit" href="{{.Edit}}">Edit</a> <a class="btn btn-delete" href="{{.Delete}}">Delete</a>`,
))

// Fields returns the card field descriptors of kind.
func Fields(kind record.Kind) []view.Field[record.Map] {
	def := MustDef(kind)
	fields := make([]view.Field[record.Map], 0, len(def.Fields))
	for _, f := range def.Fields {
		fd := view.Field[record.Map]{Key: f.Key, Label: f.Label}
		if f.Key == def.BadgeFlag && def.BadgeFlag != "" {
			fd.Accessor = activeAccessor(f.Key)
		}
		fields = append(fields, fd)
	}
	return fields
}

// Columns returns the table column descriptors of kind. With a router, a trailing column
// carries the Edit and Delete actions of each row.
func Columns(kind record.Kind, router view.Router) []view.Column[record.Map] {
	def := MustDef(kind)
	cols := make([]view.Column[record.Map], 0, len(def.Columns)+1)
	for _, c := range def.Columns {
		col := view.Column[record.Map]{Key: c.Key, Label: c.Label}
		if c.Key == def.BadgeFlag && def.BadgeFlag != "" {
			col.Accessor = activeAccessor(c.Key)
		}
		cols = append(cols, col)
	}
	if router != nil {
		cols = append(cols, view.Column[record.Map]{
			Key:   ActionsKey,
			Label: "Actions",
			RenderCell: func(rec record.Map) template.HTML {
				id := rec.ID(kind)
				if id == "" {
					return ""
				}
				var buf bytes.Buffer
				_ = actionsTmpl.Execute(&buf, map[string]string{
					"Edit":   router.EditURL(kind, id),
					"Delete": router.DeleteURL(kind, id),
				})
				return template.HTML(buf.String())
			},
		})
	}
	return cols
}

func activeAccessor(key string) func(record.Map) interface{} {
	return func(rec record.Map) interface{} {
		v := rec.Get(key)
		if v == nil {
			return nil
		}
		return format.FormatActive(v)
	}
}

// Facets returns the filterable attributes of kind.
func Facets(kind record.Kind) []listing.Facet[record.Map] {
	def := MustDef(kind)
	facets := make([]listing.Facet[record.Map], 0, len(def.Facets))
	for _, f := range def.Facets {
		facets = append(facets, listing.Facet[record.Map]{Name: f.Name, Label: f.Label, Key: f.Key, Array: f.Array})
	}
	return facets
}

// ControllerOptions are the collaborators of a kind's list controller.
type ControllerOptions struct {
	Fetch     func(ctx context.Context, kind record.Kind) ([]record.Map, error)
	Snapshot  func(ctx context.Context, kind record.Kind, recs []record.Map) error
	Formatter format.Formatter
	Logger    core.Logger
}

// NewController returns the list controller of kind, wired with its facets and date fields.
func NewController(kind record.Kind, opts ControllerOptions) *listing.Controller[record.Map] {
	def := MustDef(kind)
	lo := listing.Options[record.Map]{
		Fetch: func(ctx context.Context) ([]record.Map, error) {
			return opts.Fetch(ctx, kind)
		},
		Facets:     Facets(kind),
		ID:         func(rec record.Map) string { return rec.ID(kind) },
		DateFields: def.Dates,
		Formatter:  opts.Formatter,
		Logger:     opts.Logger,
	}
	if opts.Snapshot != nil && record.Spec(kind).MirrorKey != "" {
		lo.Snapshot = func(ctx context.Context, recs []record.Map) error {
			return opts.Snapshot(ctx, kind, recs)
		}
	}
	return listing.New(lo)
}
