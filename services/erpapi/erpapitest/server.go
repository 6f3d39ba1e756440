// Package erpapitest runs an in-memory stand-in of the ERP backend for tests.
package erpapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-console/core/record"
)

const Prefix = "/api/v1"

type (
	// Failure makes a route answer with a failure envelope. A zero Status answers 200.
	Failure struct {
		Status  int
		Message string
	}

	// Request is what the fake backend received.
	Request struct {
		Method    string
		Path      string
		ID        string
		RequestID string
		Cookie    string
		Body      record.Map
	}

	failKey struct {
		method string
		kind   record.Kind
		id     string
	}

	Server struct {
		*httptest.Server
		// SessionCookie, when set, is the only session value accepted; other requests get a 401.
		SessionCookie string
		CookieName    string

		mu       sync.Mutex
		data     map[record.Kind][]record.Map
		failures map[failKey]Failure
		requests []Request
	}
)

// New starts a fake backend holding seed.
func New(seed map[record.Kind][]record.Map) *Server {
	s := &Server{
		CookieName: "token",
		data:       make(map[record.Kind][]record.Map),
		failures:   make(map[failKey]Failure),
	}
	for kind, recs := range seed {
		for _, r := range recs {
			s.data[kind] = append(s.data[kind], r.Clone())
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api := e.Group(Prefix, s.session)
	for _, kind := range record.Kinds {
		spec := record.Spec(kind)
		api.GET(spec.FetchPath, s.list(spec))
		api.DELETE(routePath(spec.DeletePath), s.remove(spec))
		api.POST(spec.CreatePath, s.create(spec))
		api.PUT(routePath(spec.UpdatePath), s.update(spec))
	}
	s.Server = httptest.NewServer(e)
	return s
}

// URL returns the API base URL to configure the client with.
func (s *Server) URL() string { return s.Server.URL + Prefix }

// FailOn makes method requests on (kind, id) fail. Use "" as id for collection routes.
func (s *Server) FailOn(method string, kind record.Kind, id string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failKey{strings.ToUpper(method), kind, id}] = f
}

// Records returns a copy of the stored collection of kind.
func (s *Server) Records(kind record.Kind) []record.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Map, 0, len(s.data[kind]))
	for _, r := range s.data[kind] {
		out = append(out, r.Clone())
	}
	return out
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Token returns an HS256 session token with the claims the backend issues.
func Token(id, name, role string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   id,
		"name": name,
		"role": role,
	})
	ss, err := tok.SignedString([]byte("erpapitest"))
	if err != nil {
		panic(err)
	}
	return ss
}

// routePath turns "/admin/class/:id" into an echo route and "/admin/subdelete?code=:id" into "/admin/subdelete".
func routePath(p string) string {
	if i := strings.Index(p, "?"); i >= 0 {
		return p[:i]
	}
	return p
}

func idOf(c echo.Context, p string) string {
	if i := strings.Index(p, "?"); i >= 0 {
		q := p[i+1:]
		return c.QueryParam(q[:strings.Index(q, "=")])
	}
	return c.Param("id")
}

func (s *Server) session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cookie string
		if ck, err := c.Cookie(s.CookieName); err == nil {
			cookie = ck.Value
		}
		if s.SessionCookie != "" && cookie != s.SessionCookie {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Not authenticated"})
		}
		c.Set("cookie", cookie)
		return next(c)
	}
}

func (s *Server) record(c echo.Context, id string, body record.Map) {
	cookie, _ := c.Get("cookie").(string)
	s.requests = append(s.requests, Request{
		Method:    c.Request().Method,
		Path:      c.Request().URL.RequestURI(),
		ID:        id,
		RequestID: c.Request().Header.Get("X-Request-ID"),
		Cookie:    cookie,
		Body:      body,
	})
}

func envelope(spec record.KindSpec, ok bool, msg string, list []record.Map) echo.Map {
	m := echo.Map{}
	if spec.Envelope == record.EnvelopeStatusSubjects {
		if ok {
			m["status"] = "success"
		} else {
			m["status"] = "error"
		}
	} else {
		m["success"] = ok
	}
	if msg != "" {
		m["message"] = msg
	}
	if list != nil {
		m[spec.ListField] = list
	}
	return m
}

func (s *Server) fail(c echo.Context, spec record.KindSpec, f Failure) error {
	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, envelope(spec, false, f.Message, nil))
}

func (s *Server) failure(method string, kind record.Kind, id string) (Failure, bool) {
	f, ok := s.failures[failKey{method, kind, id}]
	return f, ok
}

func (s *Server) indexOf(kind record.Kind, id string) int {
	for i, r := range s.data[kind] {
		if r.ID(kind) == id {
			return i
		}
	}
	return -1
}

func (s *Server) list(spec record.KindSpec) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(c, "", nil)
		if f, ok := s.failure(http.MethodGet, spec.Kind, ""); ok {
			return s.fail(c, spec, f)
		}
		list := make([]record.Map, 0, len(s.data[spec.Kind]))
		list = append(list, s.data[spec.Kind]...)
		return c.JSON(http.StatusOK, envelope(spec, true, "", list))
	}
}

func (s *Server) remove(spec record.KindSpec) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := idOf(c, spec.DeletePath)
		s.record(c, id, nil)
		if f, ok := s.failure(http.MethodDelete, spec.Kind, id); ok {
			return s.fail(c, spec, f)
		}
		i := s.indexOf(spec.Kind, id)
		if i < 0 {
			return s.fail(c, spec, Failure{Status: http.StatusNotFound, Message: spec.Label + " not found"})
		}
		s.data[spec.Kind] = append(s.data[spec.Kind][:i], s.data[spec.Kind][i+1:]...)
		return c.JSON(http.StatusOK, envelope(spec, true, spec.Label+" deleted", nil))
	}
}

func (s *Server) create(spec record.KindSpec) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		body := make(record.Map)
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return s.fail(c, spec, Failure{Status: http.StatusBadRequest, Message: "invalid body"})
		}
		id := body.ID(spec.Kind)
		s.record(c, id, body)
		if f, ok := s.failure(http.MethodPost, spec.Kind, id); ok {
			return s.fail(c, spec, f)
		}
		if id == "" || s.indexOf(spec.Kind, id) >= 0 {
			return s.fail(c, spec, Failure{Status: http.StatusConflict, Message: spec.Label + " already exists"})
		}
		s.data[spec.Kind] = append(s.data[spec.Kind], body)
		return c.JSON(http.StatusCreated, envelope(spec, true, spec.Label+" created", nil))
	}
}

func (s *Server) update(spec record.KindSpec) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := idOf(c, spec.UpdatePath)
		body := make(record.Map)
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return s.fail(c, spec, Failure{Status: http.StatusBadRequest, Message: "invalid body"})
		}
		s.record(c, id, body)
		if f, ok := s.failure(http.MethodPut, spec.Kind, id); ok {
			return s.fail(c, spec, f)
		}
		i := s.indexOf(spec.Kind, id)
		if i < 0 {
			return s.fail(c, spec, Failure{Status: http.StatusNotFound, Message: spec.Label + " not found"})
		}
		for k, v := range body {
			s.data[spec.Kind][i][k] = v
		}
		return c.JSON(http.StatusOK, envelope(spec, true, spec.Label+" updated", nil))
	}
}
