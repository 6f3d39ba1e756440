package view

import (
	"html/template"
	"strings"

	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

const unknownStatus = "unknown"

// statusFlags maps kinds whose status is a boolean flag to that flag's field.
var statusFlags = map[record.Kind]string{
	record.Subject: "active",
}

type (
	// FieldView is one rendered card line. HTML is set when the field has a Render func.
	FieldView struct {
		Key   string
		Label string
		Text  string
		HTML  template.HTML
	}

	// Card is one entity rendered as a titled panel with Edit and Delete actions.
	Card struct {
		Kind       record.Kind
		ID         string
		Title      string
		Badge      string
		BadgeClass string
		Fields     []FieldView
		EditURL    string
		DeleteURL  string
		ReadOnly   bool
	}

	CardOptions struct {
		Router    Router
		Formatter format.Formatter
		// ReadOnly hides the Edit and Delete actions (teacher dashboards).
		ReadOnly bool
	}
)

// NewCard renders rec as a Card using fields in declaration order.
func NewCard[T record.Getter](rec T, kind record.Kind, fields []Field[T], opts CardOptions) Card {
	spec := record.Spec(kind)
	_, idVal, _ := record.FirstPresent(rec, spec.IDFields()...)
	id := record.Stringify(idVal)

	badge := cardStatus(rec, kind, opts.Formatter)
	card := Card{
		Kind:       kind,
		ID:         id,
		Title:      cardTitle(rec, spec),
		Badge:      badge,
		BadgeClass: strings.ToLower(badge),
		Fields:     make([]FieldView, 0, len(fields)),
		ReadOnly:   opts.ReadOnly,
	}

	for _, f := range fields {
		fv := FieldView{Key: f.Key, Label: f.Label}
		if f.Render != nil {
			fv.HTML = f.Render(rec)
		} else {
			fv.Text = opts.Formatter.FormatStrict(f.Value(rec))
		}
		card.Fields = append(card.Fields, fv)
	}

	if !opts.ReadOnly && opts.Router != nil && id != "" {
		card.EditURL = opts.Router.EditURL(kind, id)
		card.DeleteURL = opts.Router.DeleteURL(kind, id)
	}
	return card
}

// NewCards renders every record of recs as a Card.
func NewCards[T record.Getter](recs []T, kind record.Kind, fields []Field[T], opts CardOptions) []Card {
	cards := make([]Card, 0, len(recs))
	for _, rec := range recs {
		cards = append(cards, NewCard(rec, kind, fields, opts))
	}
	return cards
}

func cardTitle(rec record.Getter, spec record.KindSpec) string {
	if name := rec.Get("name"); name != nil && record.Stringify(name) != "" {
		return record.Stringify(name)
	}
	if _, v, ok := record.FirstPresent(rec, spec.IDFields()...); ok {
		return "ID: " + record.Stringify(v)
	}
	return "ID: " + format.DefaultFallback
}

func cardStatus(rec record.Getter, kind record.Kind, f format.Formatter) string {
	if flag, ok := statusFlags[kind]; ok {
		if v := rec.Get(flag); v != nil {
			return format.FormatActive(v, unknownStatus)
		}
	}
	return f.Format(rec.Get("status"), unknownStatus)
}
