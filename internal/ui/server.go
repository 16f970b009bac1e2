// Package ui provides the explore by example web server.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/importer"
	exploreFeature "github.com/leapstack-labs/leapexplore/internal/ui/features/explore"
	"github.com/leapstack-labs/leapexplore/internal/ui/notifier"
	"github.com/leapstack-labs/leapexplore/internal/ui/pages"
	"github.com/leapstack-labs/leapexplore/internal/ui/router"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// DefaultReadHeaderTimeout is used when Config.ReadHeaderTimeout is zero.
const DefaultReadHeaderTimeout = 10 * time.Second

const sessionMaxAge = 86400 * 30 // 30 days

// Server is the main UI server.
type Server struct {
	service           *explore.Service
	importer          *importer.Importer
	sessionStore      sessions.Store
	pages             *pages.Renderer
	port              int
	watch             bool
	dev               bool
	dataDir           string
	readHeaderTimeout time.Duration
	explore           exploreFeature.Config
	logger            *slog.Logger
	notifier          *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Store             core.Store
	Port              int
	Watch             bool
	Dev               bool
	DataDir           string
	SessionSecret     string
	SessionDir        string
	ReadHeaderTimeout time.Duration
	Explore           exploreFeature.Config
	Logger            *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}

	renderer, err := pages.New()
	if err != nil {
		return nil, err
	}

	return &Server{
		service:           explore.NewService(cfg.Store, cfg.Logger),
		importer:          importer.New(cfg.Store, cfg.Logger),
		sessionStore:      NewSessionStore(cfg.SessionSecret, cfg.SessionDir),
		pages:             renderer,
		port:              cfg.Port,
		watch:             cfg.Watch,
		dev:               cfg.Dev,
		dataDir:           cfg.DataDir,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		explore:           cfg.Explore,
		logger:            cfg.Logger,
		notifier:          notifier.New(),
	}, nil
}

// NewSessionStore returns a cookie store, or a filesystem store when dir is set.
func NewSessionStore(secret, dir string) sessions.Store {
	if dir != "" {
		store := sessions.NewFilesystemStore(dir, []byte(secret))
		store.MaxLength(0)
		store.MaxAge(sessionMaxAge)
		configureSessionOptions(store.Options)
		return store
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(sessionMaxAge)
	configureSessionOptions(store.Options)
	return store
}

func configureSessionOptions(opts *sessions.Options) {
	opts.Path = "/"
	opts.HttpOnly = true
	opts.SameSite = http.SameSiteLaxMode
}

// Handler returns the HTTP handler of the server with its middleware.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, router.Deps{
		Service:      s.service,
		SessionStore: s.sessionStore,
		Pages:        s.pages,
		Notifier:     s.notifier,
		Explore:      s.explore,
		Logger:       s.logger,
	}, s.IsDev()); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d%s", s.port, exploreFeature.BasePath+"/"))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	// Start file watcher if enabled
	if s.watch && s.dataDir != "" {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the notifier published to after each re-import.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchFiles re-imports the data directory when one of its files changes.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.dataDir); err != nil {
		s.logger.Error("failed to watch data directory", "error", err)
		// Don't fail - continue without watching
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDataFileEvent(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("file changed, re-importing", "file", event.Name)
				s.reimport(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reimport loads the data directory and notifies all SSE clients.
func (s *Server) reimport(ctx context.Context) {
	res, err := s.importer.Import(ctx, s.dataDir)
	if err != nil {
		s.logger.Error("import failed", "error", err)
		return
	}
	s.logger.Info("data directory re-imported",
		"templates", res.Templates,
		"documents", res.Documents,
	)
	s.notifier.Publish(res.Templates, res.Documents)
}

func isDataFileEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".xsd", ".xml", ".yaml", ".yml":
		return true
	}
	return false
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
