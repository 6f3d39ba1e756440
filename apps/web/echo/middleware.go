package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
	"github.com/trezcool/masomo-console/services/erpapi"
)

const (
	ctxIdentityKey = "identity"
	ctxKindKey     = "kind"
	ctxCSRFKey     = "csrf"
	csrfField      = "_csrf"
)

var (
	errNotSignedIn    = echo.NewHTTPError(http.StatusUnauthorized, "Sign in through the school portal first.")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "Only administrators can change records.")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "Page not found.")
	errRecordNotFound = echo.NewHTTPError(http.StatusNotFound, "Record not found. It may have been removed; try refreshing the list.")
)

// csrfMiddleware guards every form post with a double-submit token: the `_csrf` cookie must match the `_csrf` form field.
func csrfMiddleware() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     ctxCSRFKey,
		CookieName:     csrfField,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

func csrfToken(ctx echo.Context) string {
	token, _ := ctx.Get(ctxCSRFKey).(string)
	return token
}

// identityMiddleware reads who is signed in from the backend session.
func identityMiddleware(backend interface{ Identity() (core.Identity, error) }) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := backend.Identity()
			if err != nil {
				if errors.Is(err, erpapi.ErrNoSession) {
					return errNotSignedIn
				}
				return echo.NewHTTPError(http.StatusUnauthorized, errNotSignedIn.Message).SetInternal(err)
			}
			ctx.Set(ctxIdentityKey, id)
			return next(ctx)
		}
	}
}

func kindMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		kind, err := record.ParseKind(ctx.Param("kind"))
		if err != nil {
			return errHttpNotFound
		}
		// a broken catalogue is fatal
		if _, err := school.Def(kind); err != nil {
			return errors.Wrap(core.NewShutdownError("descriptor catalogue unavailable"), err.Error())
		}
		ctx.Set(ctxKindKey, kind)
		return next(ctx)
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !contextIdentity(ctx).IsAdmin() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

func contextIdentity(ctx echo.Context) core.Identity {
	id, _ := ctx.Get(ctxIdentityKey).(core.Identity)
	return id
}

func contextKind(ctx echo.Context) record.Kind {
	kind, _ := ctx.Get(ctxKindKey).(record.Kind)
	return kind
}
