package echoweb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-console/apps/web/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
	"github.com/trezcool/masomo-console/services/erpapi"
	"github.com/trezcool/masomo-console/services/erpapi/erpapitest"
	"github.com/trezcool/masomo-console/storage/mirror"
)

var (
	adminToken   = erpapitest.Token("A1", "Ada", core.RoleAdmin)
	teacherToken = erpapitest.Token("T9", "Tom", core.RoleTeacher)
)

type testApp struct {
	Server
	backend *erpapitest.Server
	mirror  *mirror.Mirror
}

func seed() map[record.Kind][]record.Map {
	return map[record.Kind][]record.Map{
		record.Class: {
			{"c_id": "c1", "name": "Form 1", "academic_year": "2023", "status": "active"},
			{"c_id": "c2", "name": "Form 2", "academic_year": "2022", "status": "inactive"},
		},
		record.Teacher: {{"id": "T1", "name": "Jo", "email": "jo@school.test", "qualification": "MSc", "classes": []interface{}{"c1"}}},
		record.Subject: {{"code": "PHY", "name": "Physics", "active": true}},
	}
}

func newTestApp(t *testing.T, token string) *testApp {
	t.Helper()
	backend := erpapitest.New(seed())
	t.Cleanup(backend.Close)

	conf := &core.Config{AppName: "Masomo", Build: "test", TestMode: true, DateLayout: "01/02/2006"}
	conf.Server.DisableReqLogs = true

	client, err := erpapi.NewClient(core.APIConfig{
		BaseURL:           backend.URL(),
		Timeout:           2 * time.Second,
		SessionCookieName: backend.CookieName,
		SessionCookie:     token,
	}, nil)
	require.NoError(t, err)

	mir := mirror.New(mirror.NewMemoryStore(), nil)
	coord := mutation.NewCoordinator(mutation.Options{
		API:      client,
		Mirror:   mir,
		Validate: school.NewValidator().Validate,
	})
	srv := NewServer(ServerDeps{Conf: conf, Backend: client, Mirror: mir, Mutations: coord})
	return &testApp{Server: srv, backend: backend, mirror: mir}
}

const csrfToken = "test-csrf-token"

// do sends a request; form posts carry a matching `_csrf` cookie and field unless the form sets its own.
func (app *testApp) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		if method == http.MethodPost && !form.Has("_csrf") {
			form.Set("_csrf", csrfToken)
			cookies = append(cookies, &http.Cookie{Name: "_csrf", Value: csrfToken})
		}
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	seen := map[string]bool{}
	for _, ck := range cookies {
		if ck == nil || seen[ck.Name] {
			continue
		}
		seen[ck.Name] = true
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

// sessionCookie returns the console session cookie set by rec, if any.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "masomo_session" {
			return ck
		}
	}
	return nil
}

// writes returns the requests that changed data on the backend.
func writes(reqs []erpapitest.Request) []erpapitest.Request {
	var out []erpapitest.Request
	for _, r := range reqs {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func ids(recs []record.Map, kind record.Kind) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID(kind))
	}
	return out
}

func TestPages(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		path     string
		wantCode int
		want     []string
		notWant  []string
	}{
		{name: "not signed in", path: "/", wantCode: http.StatusUnauthorized, want: []string{"Sign in through the school portal first."}},
		{name: "admin dashboard", token: adminToken, path: "/", wantCode: http.StatusOK, want: []string{"Admin dashboard", `href="/classes"`, "Ada (admin)"}},
		{name: "teacher dashboard", token: teacherToken, path: "/", wantCode: http.StatusOK, want: []string{"Teacher dashboard", "changes are made by administrators"}},
		{name: "unknown kind", token: adminToken, path: "/exams", wantCode: http.StatusNotFound, want: []string{"Page not found."}},
		{
			name: "cards", token: adminToken, path: "/classes", wantCode: http.StatusOK,
			want: []string{"Form 1", "Form 2", `href="/classes/c1/edit"`, `href="/classes/c2/delete"`, "2 of 2"},
		},
		{
			name: "teacher cards are read only", token: teacherToken, path: "/classes", wantCode: http.StatusOK,
			want: []string{"Form 1"}, notWant: []string{"btn-delete", "btn-edit"},
		},
		{
			name: "table with filter and sort", token: adminToken, path: "/classes?view=table&f.academic_year=2022&sort=name&order=desc", wantCode: http.StatusOK,
			want: []string{"<table>", "Form 2", "1 of 2", `<option value="2022" selected>`}, notWant: []string{"Form 1"},
		},
		{
			name: "teacher table has no actions", token: teacherToken, path: "/teachers?view=table", wantCode: http.StatusOK,
			want: []string{"<table>", "jo@school.test"}, notWant: []string{"Actions"},
		},
		{name: "subject badge", token: adminToken, path: "/subjects", wantCode: http.StatusOK, want: []string{"badge-active"}},
		{name: "empty collection", token: adminToken, path: "/students", wantCode: http.StatusOK, want: []string{"No data to display"}},
		{name: "teacher cannot delete", token: teacherToken, path: "/classes/c1/delete", wantCode: http.StatusForbidden, want: []string{"Only administrators"}},
		{name: "confirm delete", token: adminToken, path: "/classes/c1/delete", wantCode: http.StatusOK, want: []string{"Are you sure", `value="yes"`}},
		{name: "edit form", token: adminToken, path: "/teachers/T1/edit", wantCode: http.StatusOK, want: []string{`value="jo@school.test"`, "requires: password"}},
		{name: "edit missing record", token: adminToken, path: "/teachers/T7/edit", wantCode: http.StatusNotFound, want: []string{"Record not found."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.token)
			rec := app.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			body := rec.Body.String()
			for _, w := range tt.want {
				assert.Contains(t, body, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, body, nw)
			}
		})
	}
}

func TestList_StateIsKept(t *testing.T) {
	app := newTestApp(t, adminToken)

	rec := app.do(http.MethodGet, "/classes?f.academic_year=2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 of 2")

	// filters survive a plain visit and a refresh, until reset
	assert.Contains(t, app.do(http.MethodGet, "/classes", nil).Body.String(), "1 of 2")
	assert.Contains(t, app.do(http.MethodGet, "/classes?refresh=1", nil).Body.String(), "1 of 2")
	assert.Contains(t, app.do(http.MethodGet, "/classes?reset=1", nil).Body.String(), "2 of 2")

	rec = app.do(http.MethodGet, "/classes?f.nope=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the fetched collection is mirrored
	recs, err := app.mirror.Records(context.Background(), record.Class)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids(recs, record.Class))
}

func TestList_LoadFailure(t *testing.T) {
	app := newTestApp(t, adminToken)
	app.backend.FailOn(http.MethodGet, record.Class, "", erpapitest.Failure{Message: "Database busy"})

	rec := app.do(http.MethodGet, "/classes", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database busy")
	assert.Contains(t, rec.Body.String(), "refresh=1")
}

func TestDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		app.do(http.MethodGet, "/classes", nil)

		rec := app.do(http.MethodPost, "/classes/c1/delete", url.Values{"confirmed": {"yes"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/classes", rec.Header().Get("Location"))
		assert.Equal(t, []string{"c2"}, ids(app.backend.Records(record.Class), record.Class))

		ck := sessionCookie(rec)
		require.NotNil(t, ck)
		next := app.do(http.MethodGet, "/classes", nil, ck)
		body := next.Body.String()
		assert.Contains(t, body, "Class c1 deleted successfully.")
		assert.Contains(t, body, "1 of 1")
		assert.NotContains(t, body, "Form 1")

		// the message is shown once
		cleared := sessionCookie(next)
		require.NotNil(t, cleared)
		assert.NotContains(t, app.do(http.MethodGet, "/classes", nil, cleared).Body.String(), "deleted successfully")

		recs, err := app.mirror.Records(context.Background(), record.Class)
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, ids(recs, record.Class))
	})

	t.Run("declined", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/classes/c1/delete", url.Values{"confirmed": {"no"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Nil(t, sessionCookie(rec))
		assert.Equal(t, []string{"c1", "c2"}, ids(app.backend.Records(record.Class), record.Class))
	})

	t.Run("forged post", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/classes/c1/delete",
			url.Values{"confirmed": {"yes"}, "_csrf": {"forged"}},
			&http.Cookie{Name: "_csrf", Value: csrfToken})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, writes(app.backend.Requests()))
		assert.Equal(t, []string{"c1", "c2"}, ids(app.backend.Records(record.Class), record.Class))
	})

	t.Run("post without a token", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		req := httptest.NewRequest(http.MethodPost, "/classes/c1/delete", strings.NewReader("confirmed=yes"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"c1", "c2"}, ids(app.backend.Records(record.Class), record.Class))
	})

	t.Run("backend failure removes locally", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		app.do(http.MethodGet, "/classes", nil)
		app.backend.FailOn(http.MethodDelete, record.Class, "c2", erpapitest.Failure{Status: http.StatusInternalServerError, Message: "Database busy"})

		rec := app.do(http.MethodPost, "/classes/c2/delete", url.Values{"confirmed": {"yes"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		body := app.do(http.MethodGet, "/classes", nil, sessionCookie(rec)).Body.String()
		assert.Contains(t, body, "flash-error")
		assert.Contains(t, body, "it may reappear after a refresh")
		assert.NotContains(t, body, "Form 2")
	})
}

func TestEdit(t *testing.T) {
	teacherForm := func(id, email, password string) url.Values {
		return url.Values{"id": {id}, "name": {"Jo"}, "email": {email}, "password": {password}}
	}

	t.Run("validation", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T1", "nope", ""))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "enter a valid email address")
		assert.Contains(t, rec.Body.String(), `value="nope"`)
		assert.Empty(t, writes(app.backend.Requests()))
	})

	t.Run("update", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T1", "jo@new.test", ""))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "jo@new.test", app.backend.Records(record.Teacher)[0]["email"])

		body := app.do(http.MethodGet, "/teachers", nil, sessionCookie(rec)).Body.String()
		assert.Contains(t, body, "Teacher T1 updated successfully.")
	})

	t.Run("rename needs a password", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T2", "jo@school.test", ""))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "password is required to change the identifier")
	})

	t.Run("rename", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T2", "jo@school.test", "s3cret-pass"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, []string{"T2"}, ids(app.backend.Records(record.Teacher), record.Teacher))

		body := app.do(http.MethodGet, "/teachers", nil, sessionCookie(rec)).Body.String()
		assert.Contains(t, body, "Teacher T1 was renamed to T2.")
	})

	t.Run("rename keeps fields outside the form", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T2", "jo@school.test", "s3cret-pass"))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		recs := app.backend.Records(record.Teacher)
		require.Len(t, recs, 1)
		assert.Equal(t, "T2", recs[0]["id"])
		assert.Equal(t, "MSc", recs[0]["qualification"])
		assert.Equal(t, []interface{}{"c1"}, recs[0]["classes"])
	})

	t.Run("edit form posts a token", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		rec := app.do(http.MethodGet, "/teachers/T1/edit", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var token string
		for _, ck := range rec.Result().Cookies() {
			if ck.Name == "_csrf" {
				token = ck.Value
			}
		}
		require.NotEmpty(t, token)
		assert.Contains(t, rec.Body.String(), `name="_csrf" value="`+token+`"`)
	})

	t.Run("partial rename", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		app.backend.FailOn(http.MethodDelete, record.Teacher, "T1", erpapitest.Failure{Status: http.StatusConflict, Message: "Teacher has classes"})
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T2", "jo@school.test", "s3cret-pass"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.ElementsMatch(t, []string{"T1", "T2"}, ids(app.backend.Records(record.Teacher), record.Teacher))

		body := app.do(http.MethodGet, "/teachers", nil, sessionCookie(rec)).Body.String()
		assert.Contains(t, body, "flash-warning")
		assert.Contains(t, body, "please delete T1 manually")
	})

	t.Run("backend failure keeps the form", func(t *testing.T) {
		app := newTestApp(t, adminToken)
		app.backend.FailOn(http.MethodPut, record.Teacher, "T1", erpapitest.Failure{Status: http.StatusBadRequest, Message: "Email already used"})
		rec := app.do(http.MethodPost, "/teachers/T1/edit", teacherForm("T1", "jo@new.test", ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Email already used")
		assert.Contains(t, rec.Body.String(), `value="jo@new.test"`)
	})
}
