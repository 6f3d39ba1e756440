package view

import (
	"html/template"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

type testRouter struct{}

func (testRouter) EditURL(kind record.Kind, id string) string   { return "/edit/" + string(kind) + "/" + id }
func (testRouter) DeleteURL(kind record.Kind, id string) string { return "/delete/" + string(kind) + "/" + id }

var utc = format.Formatter{Location: time.UTC}

func TestNewCard(t *testing.T) {
	fields := []Field[record.Map]{
		{Key: "section", Label: "Section"},
		{Key: "subjects", Label: "Subjects"},
		{Key: "created", Label: "Created", Accessor: func(m record.Map) interface{} { return m.Get("meta").(map[string]interface{})["created"] }},
		{Key: "teacher", Label: "Class Teacher", Render: func(m record.Map) template.HTML { return "<b>T</b>" }},
		{Key: "room", Label: "Room"},
	}

	tests := []struct {
		name string
		rec  record.Map
		kind record.Kind
		opts CardOptions
		want Card
	}{
		{
			name: "named class",
			rec: record.Map{
				"c_id": "C1", "name": "Grade 5", "status": "Active", "section": "A",
				"subjects": []interface{}{"Math", "Physics"}, "meta": map[string]interface{}{"created": "2023-09-01"},
			},
			kind: record.Class,
			opts: CardOptions{Router: testRouter{}, Formatter: utc},
			want: Card{
				Kind: record.Class, ID: "C1", Title: "Grade 5", Badge: "Active", BadgeClass: "active",
				Fields: []FieldView{
					{Key: "section", Label: "Section", Text: "A"},
					{Key: "subjects", Label: "Subjects", Text: "Math, Physics"},
					{Key: "created", Label: "Created", Text: "09/01/2023"},
					{Key: "teacher", Label: "Class Teacher", HTML: "<b>T</b>"},
					{Key: "room", Label: "Room", Text: "Not Available"},
				},
				EditURL: "/edit/class/C1", DeleteURL: "/delete/class/C1",
			},
		},
		{
			name: "unnamed class falls back to alternate id",
			rec:  record.Map{"classId": "X9", "meta": map[string]interface{}{}},
			kind: record.Class,
			opts: CardOptions{Formatter: utc, ReadOnly: true},
			want: Card{
				Kind: record.Class, ID: "X9", Title: "ID: X9", Badge: "unknown", BadgeClass: "unknown",
				Fields: []FieldView{
					{Key: "section", Label: "Section", Text: "Not Available"},
					{Key: "subjects", Label: "Subjects", Text: "Not Available"},
					{Key: "created", Label: "Created", Text: "Not Available"},
					{Key: "teacher", Label: "Class Teacher", HTML: "<b>T</b>"},
					{Key: "room", Label: "Room", Text: "Not Available"},
				},
				ReadOnly: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCard(tt.rec, tt.kind, fields, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NewCard() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewCard_SubjectActiveFlag(t *testing.T) {
	card := NewCard(record.Map{"code": "MTH", "active": false}, record.Subject, nil, CardOptions{})
	assert.Equal(t, "ID: MTH", card.Title)
	assert.Equal(t, "inactive", card.Badge)
	assert.Equal(t, "inactive", card.BadgeClass)
}

func TestNewCard_BadgeClassIsLowerCased(t *testing.T) {
	card := NewCard(record.Map{"s_id": "S1", "name": "Ada", "status": "INACTIVE"}, record.Student, nil, CardOptions{})
	assert.Equal(t, "INACTIVE", card.Badge)
	assert.Equal(t, "inactive", card.BadgeClass)
}

func TestNewTable(t *testing.T) {
	columns := []Column[record.Map]{
		{Key: "s_id", Label: "ID"},
		{Key: "name", Label: "Name"},
		{Key: "full", Label: "Full", Accessor: func(m record.Map) interface{} { return m.String("name") + " (" + m.String("section") + ")" }},
		{Key: "actions", Label: "Actions", RenderCell: func(m record.Map) template.HTML {
			return template.HTML(`<a href="/edit/` + m.String("s_id") + `">Edit</a>`)
		}},
	}

	t.Run("empty", func(t *testing.T) {
		got := NewTable(nil, columns, utc, "s_id")
		assert.Equal(t, Table{Empty: true, Message: "No data to display"}, got)
	})

	t.Run("rows in order", func(t *testing.T) {
		recs := []record.Map{
			{"s_id": "S2", "name": "Bo", "section": "B"},
			{"name": "", "section": "A"},
		}
		got := NewTable(recs, columns, utc, "s_id", "id")
		want := Table{
			Headers: []HeaderCell{{"s_id", "ID"}, {"name", "Name"}, {"full", "Full"}, {"actions", "Actions"}},
			Rows: []Row{
				{Key: "S2", Cells: []Cell{{Text: "S2"}, {Text: "Bo"}, {Text: "Bo (B)"}, {HTML: `<a href="/edit/S2">Edit</a>`}}},
				{Key: "1", Cells: []Cell{{Text: "Not Available"}, {Text: "Not Available"}, {Text: " (A)"}, {HTML: `<a href="/edit/">Edit</a>`}}},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("NewTable() mismatch (-want +got):\n%s", diff)
		}
	})
}
