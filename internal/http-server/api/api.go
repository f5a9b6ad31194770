package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"qrpass/internal/config"
	"qrpass/internal/http-server/handlers/errors"
	"qrpass/internal/http-server/handlers/health"
	"qrpass/internal/http-server/handlers/page"
	"qrpass/internal/http-server/handlers/passes"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"qrpass/internal/http-server/middleware/authenticate"
	"qrpass/internal/http-server/middleware/reqlog"
	"qrpass/internal/http-server/middleware/timeout"
	"qrpass/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	passes.Core
	health.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) *Server {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// NewRouter builds the guest API, the guest page and the operator route.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(reqlog.New(log))
	router.Use(middleware.NoCache)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Operator-Key"},
		MaxAge:         300,
	}))
	router.Use(timeout.Timeout(conf.Redemption.RequestTimeout))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/p", page.Pass(log))
	router.Get("/healthz", health.Check(log, handler))

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Use(render.SetContentType(render.ContentTypeJSON))

		rootApi.Get("/peek", passes.Peek(log, handler))
		rootApi.Post("/check-in", passes.CheckIn(log, handler))
		rootApi.Get("/check-in", passes.UsePost(log))

		rootApi.With(authenticate.New(log, handler)).Post("/reset-pass", passes.Reset(log, handler))
	})

	return router
}

func (s *Server) Start() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
