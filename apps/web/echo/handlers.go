package echoweb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
	"github.com/trezcool/masomo-console/core/view"
)

const filterPrefix = "f."

func title(s string) string {
	return cases.Title(language.English).String(s)
}

type (
	handlers struct {
		conf      *core.Config
		logger    core.Logger
		ws        *workspace
		mutations *mutation.Coordinator
		validator *school.Validator
		formatter format.Formatter
	}

	// page is the data every template is executed with.
	page struct {
		App   core.AppContext
		Title string
		Flash *flash
		CSRF  string
		Data  interface{}
	}

	kindLink struct {
		Plural string
		URL    string
		Loaded bool
		Count  int
	}

	dashboardData struct {
		Kinds    []kindLink
		ReadOnly bool
	}

	listData struct {
		URL        string
		Error      string
		Facets     []listing.FacetOptions
		SortFields []school.FieldDef
		Sort       listing.SortState
		ViewMode   listing.ViewMode
		Cards      []view.Card
		Table      view.Table
		Count      int
		Total      int
	}

	confirmData struct {
		Action string
		Prompt string
	}

	editData struct {
		Action string
		Back   string
		Inputs []school.FormInput
		Error  string
		Hint   string
	}
)

// router builds the console routes of a record: /<plural>/<id>/edit and /<plural>/<id>/delete.
type router struct{}

var _ view.Router = router{}

func (router) EditURL(kind record.Kind, id string) string   { return recordURL(kind, id) + "/edit" }
func (router) DeleteURL(kind record.Kind, id string) string { return recordURL(kind, id) + "/delete" }

func listURL(kind record.Kind) string {
	return "/" + record.Spec(kind).Plural
}

func recordURL(kind record.Kind, id string) string {
	return listURL(kind) + "/" + url.PathEscape(id)
}

func lower(v interface{}) string {
	return strings.ToLower(fmt.Sprint(v))
}

func (h *handlers) newPage(ctx echo.Context, title string, data interface{}) page {
	return page{
		App: core.AppContext{
			User:    contextIdentity(ctx),
			AppName: h.conf.AppName,
			Build:   h.conf.Build,
		},
		Title: title,
		Flash: popFlash(ctx),
		CSRF:  csrfToken(ctx),
		Data:  data,
	}
}

func (h *handlers) dashboard(ctx echo.Context) error {
	id := contextIdentity(ctx)
	data := dashboardData{ReadOnly: !id.IsAdmin()}
	for _, kind := range record.Kinds {
		link := kindLink{Plural: title(record.Spec(kind).Plural), URL: listURL(kind)}
		if c, ok := h.ws.loaded(kind); ok {
			link.Loaded = true
			link.Count = len(c.All())
		}
		data.Kinds = append(data.Kinds, link)
	}

	heading := "Teacher dashboard"
	if id.IsAdmin() {
		heading = "Admin dashboard"
	}
	return ctx.Render(http.StatusOK, "dashboard", h.newPage(ctx, heading, data))
}

// list shows one collection. Query parameters update the list state of the workspace:
// reset, f.<facet>, sort, order, view and refresh.
func (h *handlers) list(ctx echo.Context) error {
	kind := contextKind(ctx)
	spec := record.Spec(kind)
	c := h.ws.controller(kind)
	q := ctx.QueryParams()

	if q.Get("reset") != "" {
		c.Reset()
	}
	for key, vals := range q {
		if !strings.HasPrefix(key, filterPrefix) || len(vals) == 0 {
			continue
		}
		if err := c.SetFilter(strings.TrimPrefix(key, filterPrefix), vals[0]); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown filter.").SetInternal(err)
		}
	}
	if q.Has("sort") {
		c.SetSort(q.Get("sort"), listing.ParseOrder(q.Get("order")))
	}
	if q.Has("view") {
		c.SetViewMode(listing.ParseViewMode(q.Get("view")))
	}

	data := listData{URL: listURL(kind)}
	if !c.Loaded() || q.Get("refresh") != "" {
		if err := c.Load(ctx.Request().Context()); err != nil {
			h.logger.Warn(fmt.Sprintf("web: loading %s failed", spec.Plural), err, contextIdentity(ctx))
			data.Error = mutation.UserMessage(err, fmt.Sprintf("Could not load %s.", spec.Plural))
		}
	}

	items := c.Items()
	data.Facets = c.Facets()
	data.SortFields = school.MustDef(kind).Columns
	data.Sort = c.Sort()
	data.ViewMode = c.ViewMode()
	data.Count = len(items)
	data.Total = len(c.All())

	readOnly := !contextIdentity(ctx).IsAdmin()
	if data.ViewMode == listing.TableMode {
		var rt view.Router
		if !readOnly {
			rt = router{}
		}
		data.Table = view.NewTable(items, school.Columns(kind, rt), h.formatter, spec.IDFields()...)
	} else {
		data.Cards = view.NewCards(items, kind, school.Fields(kind), view.CardOptions{
			Router:    router{},
			Formatter: h.formatter,
			ReadOnly:  readOnly,
		})
	}
	return ctx.Render(http.StatusOK, "list", h.newPage(ctx, title(spec.Plural), data))
}

func (h *handlers) confirmDelete(ctx echo.Context) error {
	kind := contextKind(ctx)
	id, err := recordID(ctx)
	if err != nil {
		return err
	}
	data := confirmData{
		Action: router{}.DeleteURL(kind, id),
		Prompt: mutation.DeletePrompt(kind, id),
	}
	return ctx.Render(http.StatusOK, "confirm", h.newPage(ctx, "Delete "+strings.ToLower(record.Spec(kind).Label), data))
}

func (h *handlers) delete(ctx echo.Context) error {
	kind := contextKind(ctx)
	id, err := recordID(ctx)
	if err != nil {
		return err
	}

	confirm := mutation.Yes
	if ctx.FormValue("confirmed") != "yes" {
		confirm = mutation.ConfirmFunc(declined)
	}
	out := h.mutations.Delete(ctx.Request().Context(), kind, id, confirm, h.ws.controller(kind))
	if out.State != mutation.Cancelled {
		h.flash(ctx, out)
	}
	return ctx.Redirect(http.StatusSeeOther, listURL(kind))
}

func (h *handlers) flash(ctx echo.Context, out mutation.Outcome) {
	if err := setFlash(ctx, outcomeFlash(out)); err != nil {
		h.logger.Warn("web: saving the flash message failed", err)
	}
}

func (h *handlers) editForm(ctx echo.Context) error {
	kind := contextKind(ctx)
	id, err := recordID(ctx)
	if err != nil {
		return err
	}
	rec, err := h.findRecord(ctx, kind, id)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "edit", h.newPage(ctx, editTitle(kind, id), h.editData(kind, id, rec, nil, "")))
}

func (h *handlers) edit(ctx echo.Context) error {
	kind := contextKind(ctx)
	id, err := recordID(ctx)
	if err != nil {
		return err
	}
	form, err := ctx.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form.").SetInternal(err)
	}

	current, err := h.findRecord(ctx, kind, id)
	if err != nil {
		return err
	}
	c := h.ws.controller(kind)
	req := school.EditRequest(kind, current, form)
	out := h.mutations.Update(ctx.Request().Context(), kind, id, req, c)

	if out.State == mutation.Failed {
		code := http.StatusOK
		var fields map[string]string
		var verr *core.ValidationError
		if errors.As(out.Err, &verr) {
			code = http.StatusUnprocessableEntity
			fields = verr.FieldMap()
		}
		return ctx.Render(code, "edit", h.newPage(ctx, editTitle(kind, id), h.editData(kind, id, req, fields, out.Message)))
	}

	h.flash(ctx, out)
	if err := c.Load(ctx.Request().Context()); err != nil {
		h.logger.Warn(fmt.Sprintf("web: reloading %s after an update failed", record.Spec(kind).Plural), err)
	}
	return ctx.Redirect(http.StatusSeeOther, listURL(kind))
}

func (h *handlers) editData(kind record.Kind, id string, rec record.Map, fields map[string]string, msg string) editData {
	data := editData{
		Action: router{}.EditURL(kind, id),
		Back:   listURL(kind),
		Inputs: school.Form(kind, rec, fields),
		Error:  msg,
	}
	if spec := record.Spec(kind); spec.EditableID && len(spec.RenameNeeds) > 0 {
		data.Hint = fmt.Sprintf("Changing the identifier creates a new %s and requires: %s.",
			strings.ToLower(spec.Label), strings.Join(spec.RenameNeeds, ", "))
	}
	return data
}

// findRecord looks id up in the loaded collection of kind, fetching it first if needed.
func (h *handlers) findRecord(ctx echo.Context, kind record.Kind, id string) (record.Map, error) {
	c := h.ws.controller(kind)
	if !c.Loaded() {
		if err := c.Load(ctx.Request().Context()); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadGateway, mutation.UserMessage(err, "Could not load the record.")).SetInternal(err)
		}
	}
	for _, rec := range c.All() {
		if rec.ID(kind) == id {
			return rec, nil
		}
	}
	return nil, errRecordNotFound
}

func declined(context.Context, string) (bool, error) { return false, nil }

func recordID(ctx echo.Context) (string, error) {
	id, err := url.PathUnescape(ctx.Param("id"))
	if err != nil || strings.TrimSpace(id) == "" {
		return "", errHttpNotFound
	}
	return id, nil
}

func editTitle(kind record.Kind, id string) string {
	return fmt.Sprintf("Edit %s %s", strings.ToLower(record.Spec(kind).Label), id)
}
