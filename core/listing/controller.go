// Package listing holds the per-collection page logic: fetch once, derive facet options,
// filter, sort and feed the card grid or the table.
package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

var ErrUnknownFacet = errors.New("unknown facet")

// ViewMode toggles between the card grid and the table. It is never persisted.
type ViewMode string

const (
	Cards     ViewMode = "cards"
	TableMode ViewMode = "table"
)

// ParseViewMode returns TableMode for "table" and Cards otherwise.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), string(TableMode)) {
		return TableMode
	}
	return Cards
}

type (
	// Fetcher loads the full, unpaginated collection.
	Fetcher[T record.Getter] func(ctx context.Context) ([]T, error)

	// Snapshotter persists what the user has seen into the local mirror. Failures are only logged.
	Snapshotter[T record.Getter] func(ctx context.Context, recs []T) error

	Options[T record.Getter] struct {
		Fetch    Fetcher[T]
		Facets   []Facet[T]
		ID       func(T) string
		Snapshot Snapshotter[T]
		// DateFields are sorted by parsed timestamp.
		DateFields []string
		Formatter  format.Formatter
		Language   language.Tag
		Logger     core.Logger
	}

	memoKey struct {
		version uint64
		filter  string
		sort    SortState
	}

	// Controller is safe for concurrent use.
	Controller[T record.Getter] struct {
		opts Options[T]

		mu       sync.Mutex
		loaded   bool
		loading  bool
		loadErr  error
		items    []T
		version  uint64
		filters  map[string]string
		sortSt   SortState
		viewMode ViewMode
		tags     map[string]record.Tag

		memo        memoKey
		memoItems   []T
		memoValid   bool
		derivations int
	}
)

// New returns an unloaded Controller with cleared filters, no sort and the card view.
func New[T record.Getter](opts Options[T]) *Controller[T] {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger()
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	c := &Controller[T]{
		opts:     opts,
		viewMode: Cards,
		tags:     make(map[string]record.Tag),
	}
	c.filters = c.emptyFilters()
	c.sortSt = SortState{Order: Asc}
	return c
}

func (c *Controller[T]) emptyFilters() map[string]string {
	f := make(map[string]string, len(c.opts.Facets))
	for _, fct := range c.opts.Facets {
		f[fct.Name] = ""
	}
	return f
}

// Load fetches the whole collection, replacing the in-memory one. Filters and sort are kept.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	recs, err := c.opts.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.loadErr = errors.Wrap(err, "fetching collection")
		return c.loadErr
	}

	c.reconcile(recs)
	c.items = recs
	c.loaded = true
	c.loadErr = nil
	c.version++

	if c.opts.Snapshot != nil {
		if err := c.opts.Snapshot(ctx, recs); err != nil {
			c.opts.Logger.Warn(fmt.Sprintf("listing: mirror snapshot failed: %v", err), err)
		}
	}
	return nil
}

// reconcile drops settled tags and reports records that were assumed deleted but came back.
func (c *Controller[T]) reconcile(fresh []T) {
	if len(c.tags) == 0 || c.opts.ID == nil {
		return
	}
	present := make(map[string]bool, len(fresh))
	for _, rec := range fresh {
		present[c.opts.ID(rec)] = true
	}
	for id, tag := range c.tags {
		if tag == record.PendingDelete {
			continue
		}
		if tag.Assumed() && present[id] {
			c.opts.Logger.Warn(fmt.Sprintf("listing: record %q was removed locally but still exists remotely", id))
		}
		delete(c.tags, id)
	}
}

// Loaded reports whether a fetch succeeded at least once.
func (c *Controller[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Loading reports whether a fetch is in flight.
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last fetch, if it failed.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// All returns the unfiltered collection in fetch order.
func (c *Controller[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Facets returns every facet with its option list ("" first, then distinct values ascending).
func (c *Controller[T]) Facets() []FacetOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FacetOptions, 0, len(c.opts.Facets))
	for _, f := range c.opts.Facets {
		out = append(out, FacetOptions{
			Name:     f.Name,
			Label:    f.Label,
			Values:   deriveOptions(f, c.items),
			Selected: c.filters[f.Name],
		})
	}
	return out
}

// SetFilter selects value for the named facet; "" lifts the constraint.
func (c *Controller[T]) SetFilter(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.filters[name]; !ok {
		return errors.Wrapf(ErrUnknownFacet, "%q", name)
	}
	c.filters[name] = value
	return nil
}

// Filters returns a copy of the filter state.
func (c *Controller[T]) Filters() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.filters))
	for k, v := range c.filters {
		out[k] = v
	}
	return out
}

// SetSort sets the sort field and order; an empty field disables sorting.
func (c *Controller[T]) SetSort(field string, order Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if order != Desc {
		order = Asc
	}
	c.sortSt = SortState{Field: field, Order: order}
}

// Sort returns the sort state.
func (c *Controller[T]) Sort() SortState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortSt
}

// Reset clears every filter and the sort.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = c.emptyFilters()
	c.sortSt = SortState{Order: Asc}
}

func (c *Controller[T]) SetViewMode(m ViewMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewMode = m
}

func (c *Controller[T]) ViewMode() ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMode
}

// Items returns the filtered and sorted collection. The result is recomputed only when the
// collection, the filters or the sort changed since the previous call.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := memoKey{version: c.version, filter: filterKey(c.filters), sort: c.sortSt}
	if !c.memoValid || key != c.memo {
		c.memoItems = c.derive()
		c.memo = key
		c.memoValid = true
		c.derivations++
	}
	out := make([]T, len(c.memoItems))
	copy(out, c.memoItems)
	return out
}

func (c *Controller[T]) derive() []T {
	out := make([]T, 0, len(c.items))
	for _, rec := range c.items {
		if c.match(rec) {
			out = append(out, rec)
		}
	}
	sortRecords(out, c.sortSt, comparator{
		dates:  c.dateFields(),
		fmt:    c.opts.Formatter,
		collat: collate.New(c.opts.Language),
	})
	return out
}

func (c *Controller[T]) match(rec T) bool {
	for _, f := range c.opts.Facets {
		if !f.matches(rec, c.filters[f.Name]) {
			return false
		}
	}
	return true
}

func (c *Controller[T]) dateFields() map[string]bool {
	m := make(map[string]bool, len(c.opts.DateFields))
	for _, f := range c.opts.DateFields {
		m[f] = true
	}
	return m
}

// MarkPending tags id as having a delete in flight; the record stays visible.
func (c *Controller[T]) MarkPending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[id] = record.PendingDelete
}

// ClearPending drops the in-flight tag of id after a delete that removed nothing locally.
func (c *Controller[T]) ClearPending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tags[id] == record.PendingDelete {
		delete(c.tags, id)
	}
}

// Remove drops every record whose identifier equals id, without refetching, and tags id.
func (c *Controller[T]) Remove(id string, tag record.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[id] = tag
	if c.opts.ID == nil {
		return
	}
	kept := make([]T, 0, len(c.items))
	for _, rec := range c.items {
		if c.opts.ID(rec) != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) != len(c.items) {
		c.items = kept
		c.version++
	}
}

// Tags returns a copy of the reconciliation tags by identifier.
func (c *Controller[T]) Tags() map[string]record.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]record.Tag, len(c.tags))
	for k, v := range c.tags {
		out[k] = v
	}
	return out
}

func filterKey(filters map[string]string) string {
	names := make([]string, 0, len(filters))
	for k := range filters {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(filters[n])
		b.WriteByte(0)
	}
	return b.String()
}
