package listing

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"

	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder returns Desc for "desc" (any case) and Asc otherwise.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// SortState is the active sort. An empty Field keeps fetch order.
type SortState struct {
	Field string
	Order Order
}

type comparator struct {
	dates  map[string]bool
	fmt    format.Formatter
	collat *collate.Collator
}

// compare orders two non-null values: dates by timestamp, numbers numerically,
// strings with the collator, anything else by its string form.
func (c comparator) compare(field string, a, b interface{}) int {
	if c.dates[field] {
		ta, oka := c.fmt.ParseDate(record.Stringify(a))
		tb, okb := c.fmt.ParseDate(record.Stringify(b))
		if oka && okb {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}

	na, oka := number(a)
	nb, okb := number(b)
	if oka && okb {
		switch d := na - nb; {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
		return 0
	}

	sa, oka := a.(string)
	sb, okb := b.(string)
	if oka && okb {
		return c.collat.CompareString(sa, sb)
	}
	return c.collat.CompareString(record.Stringify(a), record.Stringify(b))
}

// sortRecords sorts recs in place (stable) by st. Null values always go last, whatever the order.
func sortRecords[T record.Getter](recs []T, st SortState, c comparator) {
	if st.Field == "" {
		return
	}
	desc := st.Order == Desc
	sort.SliceStable(recs, func(i, j int) bool {
		va := recs[i].Get(st.Field)
		vb := recs[j].Get(st.Field)

		na, nb := va == nil, vb == nil
		if na || nb {
			return !na && nb // non-null before null
		}

		rel := c.compare(st.Field, va, vb)
		if desc {
			rel = -rel
		}
		return rel < 0
	})
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}
