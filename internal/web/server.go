package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/asheshgoplani/bookmark-deck/internal/deck"
	"github.com/asheshgoplani/bookmark-deck/internal/logging"
	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
)

var webLog = logging.ForComponent(logging.CompWeb)

// Config defines runtime options for the web server.
type Config struct {
	ListenAddr string
	ReadOnly   bool
	Token      string
	Deck       *deck.Deck
	// ThemeChanges carries OS theme changes, see prefs.ThemeWatcher. May be nil.
	ThemeChanges <-chan prefs.Theme
}

// Server serves the bookmark-deck JSON API and live display streams.
type Server struct {
	cfg        Config
	deck       *deck.Deck
	httpServer *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc

	osThemeMu sync.RWMutex
	osTheme   prefs.Theme

	stateSubscribersMu sync.Mutex
	stateSubscribers   map[chan struct{}]struct{}
}

// NewServer creates a new web server with routes and middleware.
func NewServer(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8430"
	}
	if cfg.Deck == nil {
		cfg.Deck = deck.New(deck.Options{})
	}

	s := &Server{
		cfg:              cfg,
		deck:             cfg.Deck,
		stateSubscribers: make(map[chan struct{}]struct{}),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/bookmarks", s.handleBookmarks)
	mux.HandleFunc("/api/bookmarks/", s.handleBookmarkByID)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/filters/suggest", s.handleSuggest)
	mux.HandleFunc("/api/sort", s.handleSort)
	mux.HandleFunc("/api/sort/toggle", s.handleSortToggle)
	mux.HandleFunc("/api/tags", s.handleTags)
	mux.HandleFunc("/api/folders", s.handleFolders)
	mux.HandleFunc("/api/views", s.handleViews)
	mux.HandleFunc("/api/views/", s.handleViewByID)
	mux.HandleFunc("/api/active-view", s.handleActiveView)
	mux.HandleFunc("/api/prefs", s.handlePrefs)
	mux.HandleFunc("/api/debug/logs", s.handleDebugLogs)
	mux.HandleFunc("/events/display", s.handleDisplayEvents)
	mux.HandleFunc("/ws/display", s.handleDisplayWS)

	handler := withRecover(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return s.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          logging.NewStdLogger(logging.CompWeb, slog.LevelWarn),
	}

	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the configured HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown or error.
// Returns nil on graceful shutdown.
func (s *Server) Start() error {
	if s.cfg.ThemeChanges != nil {
		go s.watchTheme(s.baseCtx, s.cfg.ThemeChanges)
	}
	webLog.Info("web_server_starting", slog.String("addr", s.cfg.ListenAddr), slog.Bool("read_only", s.cfg.ReadOnly))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancelBase != nil {
		// Signal long-lived handlers (SSE/WS) to stop promptly.
		s.cancelBase()
	}

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		return nil
	}

	// Long-lived connections may still block graceful shutdown.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("graceful shutdown timed out and force close failed: %w", closeErr)
		}
		return nil
	}
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"ok":        true,
		"readOnly":  s.cfg.ReadOnly,
		"bookmarks": s.deck.Engine.Snapshot().Len(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.deck.Engine.LastError(); err != nil {
		resp["hostError"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				webLog.Error("panic",
					slog.String("recover", fmt.Sprintf("%v", rec)),
					slog.String("path", r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) String() string {
	return fmt.Sprintf("web-server(addr=%s, readOnly=%t)", s.cfg.ListenAddr, s.cfg.ReadOnly)
}

// watchTheme records OS theme changes and wakes event streams.
func (s *Server) watchTheme(ctx context.Context, changes <-chan prefs.Theme) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-changes:
			if !ok {
				return
			}
			s.osThemeMu.Lock()
			s.osTheme = t
			s.osThemeMu.Unlock()
			s.notifyStateChanged()
		}
	}
}

func (s *Server) subscribeStateChanges() chan struct{} {
	ch := make(chan struct{}, 1)
	s.stateSubscribersMu.Lock()
	s.stateSubscribers[ch] = struct{}{}
	s.stateSubscribersMu.Unlock()
	return ch
}

func (s *Server) unsubscribeStateChanges(ch chan struct{}) {
	if ch == nil {
		return
	}
	s.stateSubscribersMu.Lock()
	if _, ok := s.stateSubscribers[ch]; ok {
		delete(s.stateSubscribers, ch)
		close(ch)
	}
	s.stateSubscribersMu.Unlock()
}

// notifyStateChanged wakes streams for changes the engine does not signal:
// views, the active view pointer and preferences.
func (s *Server) notifyStateChanged() {
	s.stateSubscribersMu.Lock()
	for ch := range s.stateSubscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.stateSubscribersMu.Unlock()
}
