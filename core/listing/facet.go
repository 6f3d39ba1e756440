package listing

import (
	"sort"
	"strings"

	"github.com/trezcool/masomo-console/core/record"
)

// Facet is a filterable attribute whose distinct values are offered as filter options.
type Facet[T record.Getter] struct {
	Name  string
	Label string
	Key   string
	// Accessor overrides the Key lookup.
	Accessor func(T) interface{}
	// Array facets hold lists; a record matches when the list contains the selected value.
	Array bool
}

func (f Facet[T]) value(rec T) interface{} {
	if f.Accessor != nil {
		return f.Accessor(rec)
	}
	key := f.Key
	if key == "" {
		key = f.Name
	}
	return rec.Get(key)
}

// values returns the non-empty string values the record holds for the facet.
func (f Facet[T]) values(rec T) []string {
	v := f.value(rec)
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return nonEmpty(t)
	case []interface{}:
		vals := make([]string, 0, len(t))
		for _, e := range t {
			vals = append(vals, record.Stringify(e))
		}
		return nonEmpty(vals)
	default:
		return nonEmpty([]string{record.Stringify(v)})
	}
}

// matches reports whether rec satisfies selected; an empty selection always matches.
func (f Facet[T]) matches(rec T, selected string) bool {
	if selected == "" {
		return true
	}
	vals := f.values(rec)
	if f.Array {
		for _, v := range vals {
			if v == selected {
				return true
			}
		}
		return false
	}
	if len(vals) == 0 {
		return false
	}
	return strings.EqualFold(vals[0], selected)
}

// FacetOptions is a facet with its derived option list. Values[0] is always "" (no filter).
type FacetOptions struct {
	Name     string
	Label    string
	Values   []string
	Selected string
}

// deriveOptions collects the distinct non-empty values of the facet, sorted ascending, with "" prepended.
func deriveOptions[T record.Getter](f Facet[T], recs []T) []string {
	set := newSortedSet()
	for _, rec := range recs {
		set.Add(f.values(rec)...)
	}
	return append([]string{""}, set.Values()...)
}

// sortedSet is a set of strings kept in ascending order.
type sortedSet []string

func newSortedSet() *sortedSet {
	s := make(sortedSet, 0)
	return &s
}

// Add inserts items that are not already present.
func (s *sortedSet) Add(items ...string) {
	for _, item := range items {
		i := sort.SearchStrings(*s, item)
		if i < len(*s) && (*s)[i] == item {
			continue
		}
		*s = append(*s, "")
		copy((*s)[i+1:], (*s)[i:])
		(*s)[i] = item
	}
}

// Values returns a copy of the set's values.
func (s *sortedSet) Values() []string {
	values := make([]string, len(*s))
	copy(values, *s)
	return values
}

func nonEmpty(vals []string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
