package echoweb

import (
	"embed"
	"html/template"
	"io"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var pages = []string{"dashboard", "list", "confirm", "edit", "error"}

// renderer is an echo.Renderer over the embedded page templates; every page is executed
// through the shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() *renderer {
	funcs := template.FuncMap{"lower": lower}
	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		r.pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(
			templateFS,
			path.Join("templates", "layout.gohtml"),
			path.Join("templates", name+".gohtml"),
		))
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("render: unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
