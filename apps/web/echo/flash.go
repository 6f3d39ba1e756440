package echoweb

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-console/core/mutation"
)

const sessionName = "masomo_session"

var flashLevels = []string{"success", "warning", "error"}

// flash is a one-shot message shown on the next page.
type flash struct {
	Level   string // success | warning | error
	Message string
}

// newSessionStore signs the session cookie with secret, or with a per-process random key when it is empty.
func newSessionStore(secret string) sessions.Store {
	key := []byte(secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func outcomeFlash(out mutation.Outcome) *flash {
	if out.Message == "" {
		return nil
	}
	switch out.State {
	case mutation.Succeeded:
		return &flash{Level: "success", Message: out.Message}
	case mutation.PartiallySucceeded:
		return &flash{Level: "warning", Message: out.Message}
	}
	return &flash{Level: "error", Message: out.Message}
}

func setFlash(ctx echo.Context, f *flash) error {
	if f == nil {
		return nil
	}
	sess, err := session.Get(sessionName, ctx)
	if sess == nil {
		return err
	}
	// an undecodable cookie yields a fresh session, which replaces it
	sess.AddFlash(f.Message, f.Level)
	return sess.Save(ctx.Request(), ctx.Response())
}

// popFlash returns the pending flash, if any, and clears it.
func popFlash(ctx echo.Context) *flash {
	sess, err := session.Get(sessionName, ctx)
	if err != nil || sess == nil {
		return nil
	}
	var found *flash
	for _, level := range flashLevels {
		for _, msg := range sess.Flashes(level) {
			if s, ok := msg.(string); ok && s != "" && found == nil {
				found = &flash{Level: level, Message: s}
			}
		}
	}
	if found != nil {
		_ = sess.Save(ctx.Request(), ctx.Response())
	}
	return found
}
