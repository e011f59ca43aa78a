package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
	"github.com/blogbuild/blogbuild/internal/metrics"
)

const debounceDelay = 300 * time.Millisecond

// BuildFunc runs one complete build. It is called from a single goroutine.
type BuildFunc func(ctx context.Context) error

// Options configures a preview server.
type Options struct {
	// Addr is the listen address, e.g. "localhost:8000".
	Addr string
	// SiteDir is watched recursively for changes.
	SiteDir string
	// PublishDir is served over HTTP and excluded from watching.
	PublishDir string
	// Ignore lists further paths whose changes never trigger a rebuild.
	Ignore []string
	// RebuildEvery schedules periodic rebuilds when positive.
	RebuildEvery time.Duration
	// Registry is exposed on /metrics when set.
	Registry *prom.Registry
}

// Server serves the publish directory and rebuilds the site on change.
type Server struct {
	opts   Options
	build  BuildFunc
	status buildStatus

	rebuildReq chan struct{}
	trigger    func()

	mu   sync.Mutex
	addr string
}

// New creates a server. Nothing runs until Run is called.
func New(opts Options, build BuildFunc) *Server {
	s := &Server{opts: opts, build: build}
	s.rebuildReq, s.trigger = setupRebuildDebouncer(debounceDelay)
	return s
}

// Addr returns the bound listen address once Run has started listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run performs an initial build, starts the HTTP server, watcher and optional
// scheduler, and blocks until ctx is canceled. A failing initial build does not
// stop the server; the error is reported on every request until a build succeeds.
func (s *Server) Run(ctx context.Context) error {
	s.rebuild(ctx)

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return berrors.Integration("http", fmt.Errorf("listen %s: %w", s.opts.Addr, err))
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server stopped", logfields.Error(err))
		}
	}()
	slog.Info("Preview server listening",
		logfields.Addr(s.Addr()),
		logfields.URL("http://"+s.Addr()+"/"),
		logfields.Path(s.opts.PublishDir))

	watcher, err := s.setupFileWatcher()
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runRebuildWorker(ctx)
	}()

	var sched gocron.Scheduler
	if s.opts.RebuildEvery > 0 {
		sched, err = s.startScheduler()
		if err != nil {
			_ = srv.Close()
			return err
		}
	}

	s.watchLoop(ctx, watcher)

	slog.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	wg.Wait()
	return nil
}

// Handler serves the publish directory, /healthz and, with a registry, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.Registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("/", s.siteHandler())
	return withMiddleware(slog.Default(), mux)
}

func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.PublishDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := s.status.snapshot()
		if !st.HasGoodBuild {
			msg := "no successful build yet"
			if st.LastError != "" {
				msg = "build failed: " + st.LastError
			}
			http.Error(w, msg, http.StatusServiceUnavailable)
			return
		}
		if st.LastError != "" {
			w.Header().Set("X-Build-Error", strings.ReplaceAll(st.LastError, "\n", " "))
		}
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.status.snapshot()
	code := http.StatusOK
	if st.LastError != "" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) rebuild(ctx context.Context) {
	start := time.Now()
	err := s.build(ctx)
	s.status.record(err, time.Now())
	if err != nil {
		slog.Warn("Rebuild failed", logfields.Error(err))
		return
	}
	slog.Info("Site rebuilt", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// setupRebuildDebouncer returns the request channel and a trigger that fires
// once per burst of calls, delay after the last one.
func setupRebuildDebouncer(delay time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			requestRebuild(rebuildReq)
		})
	}
	return rebuildReq, trigger
}

func requestRebuild(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// runRebuildWorker serialises builds. Requests arriving during a build are
// coalesced into one follow-up build.
func (s *Server) runRebuildWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.rebuildReq:
			slog.Info("Change detected; rebuilding site")
			s.rebuild(ctx)
		}
	}
}

func (s *Server) startScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, berrors.InternalError("create scheduler", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.opts.RebuildEvery),
		gocron.NewTask(func() { requestRebuild(s.rebuildReq) }),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, berrors.ValidationFailed("rebuild_every", err.Error())
	}
	sched.Start()
	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", s.opts.RebuildEvery))
	return sched, nil
}

func (s *Server) setupFileWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, berrors.Integration("fsnotify", err)
	}
	if err := s.addDirsRecursive(watcher, s.opts.SiteDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleFileEvent(watcher, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *Server) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	if s.shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = s.addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	s.trigger()
}

func (s *Server) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (s.isExcluded(path) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// sqliteSidecars are the files SQLite keeps next to a database.
var sqliteSidecars = []string{"-journal", "-wal", "-shm"}

// isExcluded reports whether path is the publish directory, an ignored path,
// or inside either.
func (s *Server) isExcluded(path string) bool {
	for _, root := range append([]string{s.opts.PublishDir}, s.opts.Ignore...) {
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err == nil && (rel == "." || filepath.IsLocal(rel)) {
			return true
		}
	}
	for _, ignored := range s.opts.Ignore {
		for _, suffix := range sqliteSidecars {
			if path == ignored+suffix {
				return true
			}
		}
	}
	return false
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func (s *Server) shouldIgnoreEvent(path string) bool {
	if s.isExcluded(path) {
		return true
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
