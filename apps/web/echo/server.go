package echoweb

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/mutation"
	"github.com/trezcool/masomo-console/core/record"
	"github.com/trezcool/masomo-console/core/school"
)

type (
	// Backend is what the console needs from the ERP API client.
	Backend interface {
		mutation.API
		FetchAll(ctx context.Context, kind record.Kind) ([]record.Map, error)
		Identity() (core.Identity, error)
	}

	// Snapshotter keeps the local mirror of fetched collections.
	Snapshotter interface {
		Snapshot(ctx context.Context, kind record.Kind, recs []record.Map) error
	}

	ServerDeps struct {
		Conf      *core.Config
		Logger    core.Logger
		Backend   Backend
		Mirror    Snapshotter
		Mutations *mutation.Coordinator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps      ServerDeps
		app       *echo.Echo
		ws        *workspace
		formatter format.Formatter
		errors    chan error
		shutdown  chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger()
	}
	s := &server{
		deps:      deps,
		app:       echo.New(),
		formatter: format.Formatter{Layout: deps.Conf.DateLayout},
		errors:    make(chan error, 1),
		shutdown:  make(chan os.Signal, 1),
	}
	s.ws = newWorkspace(school.ControllerOptions{
		Fetch:     deps.Backend.FetchAll,
		Snapshot:  s.snapshot,
		Formatter: s.formatter,
		Logger:    deps.Logger,
	})
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) snapshot(ctx context.Context, kind record.Kind, recs []record.Map) error {
	if s.deps.Mirror == nil {
		return nil
	}
	return s.deps.Mirror.Snapshot(ctx, kind, recs)
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.RequestID())
	s.app.Use(session.Middleware(newSessionStore(conf.Server.SessionSecret)))
	s.app.Use(csrfMiddleware())

	s.app.Renderer = newRenderer()
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(conf, s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	h := &handlers{
		conf:      conf,
		logger:    s.deps.Logger,
		ws:        s.ws,
		mutations: s.deps.Mutations,
		validator: school.NewValidator(),
		formatter: s.formatter,
	}

	g := s.app.Group("", identityMiddleware(s.deps.Backend))
	g.GET("/", h.dashboard)
	g.GET("/:kind", h.list, kindMiddleware)

	admin := g.Group("/:kind/:id", kindMiddleware, adminMiddleware)
	admin.GET("/delete", h.confirmDelete)
	admin.POST("/delete", h.delete)
	admin.GET("/edit", h.editForm)
	admin.POST("/edit", h.edit)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Start() {
	s.deps.Logger.Info("server listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }

func (s *server) Close() error { return s.app.Close() }

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
