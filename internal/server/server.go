package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/jpalmerr/racescreen/internal/screen"
	"github.com/jpalmerr/racescreen/internal/store"
	"github.com/jpalmerr/racescreen/internal/view"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// dashboardTemplate is the path of the page template inside the assets FS.
	dashboardTemplate = "assets/index.html.tmpl"
)

// Selector changes the pool the screen is polling.
type Selector interface {
	Select(poolID int) error
}

// Options configures a [Server].
type Options struct {
	// Port is the TCP port to listen on. 0 lets the OS pick one.
	Port int

	// Assets holds the dashboard template. May be nil, in which case "/"
	// is not served.
	Assets fs.FS

	// View controls title, time zone and time format of rendered views.
	View view.Options

	// CORSOrigins lists allowed origins. Empty means "*".
	CORSOrigins []string
}

// Server handles HTTP requests for the RaceScreen dashboard and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	selector   Selector
	opts       Options
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store the snapshots are read from
//   - sel: Receiver for pool selections (may be nil, selection then returns 503)
//   - opts: Listener, assets and presentation settings
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, sel Selector, opts Options, logger *slog.Logger) *Server {
	return &Server{
		store:    st,
		selector: sel,
		opts:     opts,
		logger:   logger,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if s.opts.Assets != nil {
		r.Get("/", s.handleDashboard)
	}
	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/view", s.handleView)
		r.Post("/select", s.handleSelect)
		r.Get("/sse", s.handleSSE)
		r.Get("/ws", s.handleWebSocket)
	})

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(r)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.opts.Port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// dashboardData is the template input for the dashboard page.
type dashboardData struct {
	Version uint64
	View    view.View
}

// handleDashboard renders the current view as HTML.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	tmpl, err := template.ParseFS(s.opts.Assets, dashboardTemplate)
	if err != nil {
		s.logger.Error("failed to load dashboard template", "error", err)
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	snap := s.store.Latest()
	data := dashboardData{
		Version: snap.Version,
		View:    view.Render(snap.State, s.opts.View),
	}

	// render to a buffer so a template error never leaves a partial page
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, "Dashboard render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleState returns the latest snapshot as JSON.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newStateResponse(s.store.Latest()))
}

// handleView returns the latest rendered view as JSON.
func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Latest()
	s.writeJSON(w, http.StatusOK, viewResponse{
		Version: snap.Version,
		View:    view.Render(snap.State, s.opts.View),
	})
}

// handleSelect changes the selected pool. The id is read from the pool_id
// query parameter or form field.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("pool_id")
	poolID, err := strconv.Atoi(raw)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("pool_id must be an integer, got %q", raw),
		})
		return
	}

	if s.selector == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "selection not available"})
		return
	}

	if err := s.selector.Select(poolID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, screen.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Debug("pool selected", "pool_id", poolID, "source", "http")
	s.writeJSON(w, http.StatusAccepted, selectResponse{PoolID: poolID, Status: "accepted"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleSSE streams snapshots via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before reading the initial snapshot so no update is missed
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if data, err := json.Marshal(newStateResponse(s.store.Latest())); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(newStateResponse(snap))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
