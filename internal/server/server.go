package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/jjudge-oj/catalog/config"
	"github.com/jjudge-oj/catalog/internal/db"
	"github.com/jjudge-oj/catalog/internal/handlers"
	"github.com/jjudge-oj/catalog/internal/logger"
	"github.com/jjudge-oj/catalog/internal/mq"
	"github.com/jjudge-oj/catalog/internal/plugins"
	"github.com/jjudge-oj/catalog/internal/services"
	"github.com/jjudge-oj/catalog/internal/storage"
	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []io.Closer
}

// New wires config -> stores -> blob storage -> broker -> registry ->
// services -> router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(log)

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{}
	ok := false
	defer func() {
		if !ok {
			_ = s.closeAll()
		}
	}()

	var (
		problemRepo services.ProblemRepository
		homeworks   *services.HomeworkService
	)
	blobStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, blobStore)
	blobs := services.NewBlobService(blobStore)

	var dbConn *sql.DB
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "postgres":
		dbConn, err = db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, dbConn)
		problemRepo = store.NewProblemRepository(dbConn)
	case "memory":
		problemRepo = store.NewMemoryProblemRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	problems := services.NewProblemService(problemRepo, blobs, cfg.Catalog.PageSize)
	testcases := services.NewTestcaseService(problems)
	if dbConn != nil {
		homeworks = services.NewHomeworkService(
			store.NewHomeworkRepository(dbConn),
			store.NewStudentRepository(dbConn),
			store.NewSubmissionRepository(dbConn),
			problems,
			cfg.Catalog.ProgressWorkers,
		)
	} else {
		log.Warn("homework progress disabled without the postgres store")
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	if broker != nil {
		s.closers = append(s.closers, broker)
		problems.PublishEventsTo(broker, cfg.MQ.ProblemEventsChannel)
	}

	registry, err := plugins.LoadRegistry(cfg.Catalog.PluginRegistryFile)
	if err != nil {
		return nil, err
	}
	pluginService := services.NewPluginService(registry)

	auth := handlers.NewAuth(jwtSecret)
	httpLogger := httplog.NewLogger("catalog", httplog.Options{
		LogLevel:         logger.ParseLevel(cfg.LogLevel),
		JSON:             cfg.LogJSON,
		Concise:          true,
		MessageFieldName: "message",
		QuietDownRoutes:  []string{"/healthz", "/metrics"},
		QuietDownPeriod:  time.Minute,
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		httplog.RequestLogger(httpLogger),
		requestLoggerContext,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/problems", func(r chi.Router) {
		handlers.ProblemRouter(r, problems, testcases, auth)
	})
	router.Route("/plugins", func(r chi.Router) {
		handlers.PluginRouter(r, pluginService)
	})
	if homeworks != nil {
		router.Route("/homeworks", func(r chi.Router) {
			handlers.HomeworkRouter(r, homeworks, auth)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ok = true
	return s, nil
}

// requestLoggerContext makes the request logger reachable through
// logger.FromContext in the service layer.
func requestLoggerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogger(r.Context(), httplog.LogEntry(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	slog.Info("catalog server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done and releases backend connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeAll())
}

func (s *Server) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
