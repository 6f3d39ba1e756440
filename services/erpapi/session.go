package erpapi

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
)

var ErrNoSession = errors.New("no backend session")

// Claims are the claims the backend puts in its session token.
type Claims struct {
	jwt.StandardClaims
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
	IsTeacher bool   `json:"is_teacher,omitempty"`
}

// Identity returns who the session cookie belongs to.
// The token signature is the backend's business: it is read, not verified.
func (c *Client) Identity() (core.Identity, error) {
	var token string
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == c.cookieName {
			token = ck.Value
			break
		}
	}
	if token == "" {
		return core.Identity{}, ErrNoSession
	}
	return IdentityFromToken(token)
}

// IdentityFromToken reads the identity out of a backend session token.
func IdentityFromToken(token string) (core.Identity, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return core.Identity{}, errors.Wrap(err, "reading session token")
	}
	id := core.Identity{
		ID:    claims.ID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  strings.ToLower(claims.Role),
	}
	if id.ID == "" {
		id.ID = claims.Subject
	}
	switch {
	case id.Role != "":
	case claims.IsAdmin:
		id.Role = core.RoleAdmin
	case claims.IsTeacher:
		id.Role = core.RoleTeacher
	}
	return id, nil
}

// SetSession seeds the cookie jar with a session token, as if the backend had set it.
func (c *Client) SetSession(token string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: c.cookieName, Value: token, Path: "/"}})
}
