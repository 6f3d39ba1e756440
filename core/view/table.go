package view

import (
	"html/template"
	"strconv"

	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

// EmptyMessage is shown instead of a table when there are no records.
const EmptyMessage = "No data to display"

type (
	// Cell is one rendered table cell. HTML is set when the column has a RenderCell func.
	Cell struct {
		Text string
		HTML template.HTML
	}

	Row struct {
		Key   string
		Cells []Cell
	}

	HeaderCell struct {
		Key   string
		Label string
	}

	// Table is a list of records rendered through column descriptors.
	Table struct {
		Headers []HeaderCell
		Rows    []Row
		Empty   bool
		Message string
	}
)

// NewTable renders recs row by row. Row keys come from the first present of keyFields,
// falling back to the row position. Columns keep their declaration order.
func NewTable[T record.Getter](recs []T, columns []Column[T], f format.Formatter, keyFields ...string) Table {
	if len(recs) == 0 {
		return Table{Empty: true, Message: EmptyMessage}
	}

	tbl := Table{
		Headers: make([]HeaderCell, 0, len(columns)),
		Rows:    make([]Row, 0, len(recs)),
	}
	for _, c := range columns {
		tbl.Headers = append(tbl.Headers, HeaderCell{Key: c.Key, Label: c.Label})
	}

	for i, rec := range recs {
		row := Row{Key: rowKey(rec, i, keyFields), Cells: make([]Cell, 0, len(columns))}
		for _, c := range columns {
			if c.RenderCell != nil {
				row.Cells = append(row.Cells, Cell{HTML: c.RenderCell(rec)})
				continue
			}
			row.Cells = append(row.Cells, Cell{Text: f.Format(c.Value(rec))})
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

func rowKey(rec record.Getter, i int, keyFields []string) string {
	if _, v, ok := record.FirstPresent(rec, keyFields...); ok {
		return record.Stringify(v)
	}
	return strconv.Itoa(i)
}
