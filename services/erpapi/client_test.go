package erpapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/services/erpapi"
	"github.com/trezcool/masomo-console/services/erpapi/erpapitest"
)

func seed() map[record.Kind][]record.Map {
	return map[record.Kind][]record.Map{
		record.Class:   {{"c_id": "c1", "name": "Form 1"}, {"c_id": "c2", "name": "Form 2"}},
		record.Teacher: {{"id": "T1", "name": "Jo"}},
		record.Subject: {{"code": "PHY", "name": "Physics", "active": true}},
	}
}

func newClient(t *testing.T, srv *erpapitest.Server, session string) *erpapi.Client {
	c, err := erpapi.NewClient(core.APIConfig{
		BaseURL:           srv.URL(),
		Timeout:           2 * time.Second,
		SessionCookieName: "token",
		SessionCookie:     session,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_FetchAll(t *testing.T) {
	srv := erpapitest.New(seed())
	defer srv.Close()
	c := newClient(t, srv, "")
	ctx := context.Background()

	tests := []struct {
		kind record.Kind
		want []string
	}{
		{record.Class, []string{"c1", "c2"}},
		{record.Teacher, []string{"T1"}},
		{record.Student, []string{}},
		{record.Subject, []string{"PHY"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			recs, err := c.FetchAll(ctx, tt.kind)
			require.NoError(t, err)
			ids := make([]string, 0, len(recs))
			for _, r := range recs {
				ids = append(ids, r.ID(tt.kind))
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	recs, err := c.FetchAll(ctx, record.Subject)
	require.NoError(t, err)
	assert.Equal(t, true, recs[0]["active"])

	_, err = c.FetchAll(ctx, record.Kind("exam"))
	assert.ErrorIs(t, err, record.ErrUnknownKind)
}

func TestClient_FailureEnvelopes(t *testing.T) {
	srv := erpapitest.New(seed())
	defer srv.Close()
	srv.FailOn(http.MethodGet, record.Class, "", erpapitest.Failure{Message: "<b>Database</b> busy"})
	srv.FailOn(http.MethodGet, record.Subject, "", erpapitest.Failure{})
	srv.FailOn(http.MethodDelete, record.Teacher, "T1", erpapitest.Failure{Status: http.StatusConflict, Message: "Teacher has classes"})
	c := newClient(t, srv, "")
	ctx := context.Background()

	_, err := c.FetchAll(ctx, record.Class)
	var apiErr *erpapi.APIError
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, "Database busy", apiErr.Message)
	assert.Equal(t, http.StatusOK, apiErr.Status)

	// status/subjects style failure without message
	_, err = c.FetchAll(ctx, record.Subject)
	require.True(t, errors.As(err, &apiErr), err)
	assert.Empty(t, apiErr.UserMessage())

	err = c.Delete(ctx, record.Teacher, "T1")
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Teacher has classes", apiErr.UserMessage())
	assert.Len(t, srv.Records(record.Teacher), 1)
}

func TestClient_Mutations(t *testing.T) {
	srv := erpapitest.New(seed())
	defer srv.Close()
	c := newClient(t, srv, "")
	ctx := context.Background()

	require.NoError(t, c.Delete(ctx, record.Class, "c1"))
	assert.Equal(t, []record.Map{{"c_id": "c2", "name": "Form 2"}}, srv.Records(record.Class))

	require.NoError(t, c.Create(ctx, record.Subject, record.Map{"code": "CHE", "name": "Chemistry"}))
	require.NoError(t, c.Update(ctx, record.Subject, "CHE", record.Map{"code": "CHE", "name": "Chem"}))
	require.NoError(t, c.Delete(ctx, record.Subject, "PHY"))
	assert.Equal(t, []record.Map{{"code": "CHE", "name": "Chem"}}, srv.Records(record.Subject))

	var apiErr *erpapi.APIError
	err := c.Delete(ctx, record.Class, "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	reqs := srv.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "/api/v1/admin/class/c1", reqs[0].Path)
	assert.Equal(t, "/api/v1/admin/subupdate?code=CHE", reqs[2].Path)
	assert.Equal(t, "/api/v1/admin/subdelete?code=PHY", reqs[3].Path)
	seen := make(map[string]bool)
	for _, r := range reqs {
		assert.NotEmpty(t, r.RequestID)
		assert.False(t, seen[r.RequestID], "request ids are unique")
		seen[r.RequestID] = true
	}
}

func TestClient_Session(t *testing.T) {
	token := erpapitest.Token("A1", "Ada", "Admin")
	srv := erpapitest.New(seed())
	defer srv.Close()
	srv.SessionCookie = token
	ctx := context.Background()

	anon := newClient(t, srv, "")
	_, err := anon.FetchAll(ctx, record.Class)
	var apiErr *erpapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Not authenticated", apiErr.Message)
	_, err = anon.Identity()
	assert.ErrorIs(t, err, erpapi.ErrNoSession)

	c := newClient(t, srv, token)
	_, err = c.FetchAll(ctx, record.Class)
	require.NoError(t, err)
	reqs := srv.Requests()
	assert.Equal(t, token, reqs[len(reqs)-1].Cookie)

	id, err := c.Identity()
	require.NoError(t, err)
	assert.Equal(t, core.Identity{ID: "A1", Name: "Ada", Role: core.RoleAdmin}, id)
	assert.True(t, id.IsAdmin())
}

func TestClient_TransportError(t *testing.T) {
	srv := erpapitest.New(seed())
	c := newClient(t, srv, "")
	srv.Close()

	err := c.Delete(context.Background(), record.Student, "s1")
	var tErr *erpapi.TransportError
	require.True(t, errors.As(err, &tErr), err)
	assert.Contains(t, tErr.UserMessage(), "Could not reach the server")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := erpapi.NewClient(core.APIConfig{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestIdentityFromToken(t *testing.T) {
	_, err := erpapi.IdentityFromToken("garbage")
	assert.Error(t, err)

	id, err := erpapi.IdentityFromToken(erpapitest.Token("T9", "Tess", "teacher"))
	require.NoError(t, err)
	assert.True(t, id.IsTeacher())
}
