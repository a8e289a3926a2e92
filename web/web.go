// Package web provides an HTTP API for validating and running programs.
//
// The server optionally serves one program file: it can be read, saved and
// run by the API, and is reloaded when it changes on disk. Programs can also
// be sent inline with a request. Data rows and event data travel in the
// request body as JSON. Every successful run is kept as a transaction report
// that can be listed and downloaded as CSV until the server stops.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/ledger"
	"github.com/robinvdvleuten/ledgerscript/loader"
	"github.com/robinvdvleuten/ledgerscript/logger"
	"github.com/robinvdvleuten/ledgerscript/program"
	"github.com/robinvdvleuten/ledgerscript/telemetry"
)

type Server struct {
	Port         int
	Host         string
	Version      string
	CommitSHA    string
	ReadOnly     bool
	WatchEnabled bool

	// RunTimeout bounds a single run request. Zero means no limit.
	RunTimeout time.Duration

	registry *interp.Registry
	ledger   *ledger.Ledger
	log      zerolog.Logger

	mu         sync.RWMutex
	program    *program.Program // nil while the file does not parse
	programErr error
	source     []byte

	// programFile is the absolute path of the served program, if any.
	programFile string

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

func New(port int, programFile string, registry *interp.Registry) *Server {
	return NewWithVersion(port, programFile, registry, "", "")
}

func NewWithVersion(port int, programFile string, registry *interp.Registry, version, commitSHA string) *Server {
	return &Server{
		Port:        port,
		Host:        "127.0.0.1",
		Version:     version,
		CommitSHA:   commitSHA,
		registry:    registry,
		ledger:      ledger.New(),
		log:         logger.Nop(),
		programFile: programFile,
		sseClients:  make(map[chan string]struct{}),
	}
}

func (s *Server) Start(ctx context.Context) error {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("web.start %s:%d", s.Host, s.Port))
	defer timer.End()

	s.log = logger.FromContext(ctx).With().Str("component", "web").Logger()

	if s.programFile != "" {
		abs, err := filepath.Abs(s.programFile)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		s.programFile = abs

		loadTimer := timer.Child(fmt.Sprintf("web.load_program %s", filepath.Base(abs)))
		err = s.reloadProgram(ctx)
		loadTimer.End()
		if err != nil {
			return fmt.Errorf("failed to load program: %w", err)
		}

		if s.WatchEnabled {
			if err := s.startWatcher(ctx); err != nil {
				return fmt.Errorf("failed to start file watcher: %w", err)
			}
		}
	}

	setupTimer := timer.Child("web.setup_router")
	mux, err := s.setupRouter()
	setupTimer.End()

	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) setupRouter() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/version", s.handleGetVersion)
	mux.HandleFunc("GET /api/source", s.handleGetSource)
	mux.HandleFunc("PUT /api/source", s.requireWritable(s.handlePutSource))
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("GET /api/functions", s.handleGetFunctions)
	mux.HandleFunc("GET /api/templates", s.handleGetTemplates)
	mux.HandleFunc("GET /api/templates/{name}", s.handleGetTemplate)
	mux.HandleFunc("GET /api/reports", s.handleGetReports)
	mux.HandleFunc("DELETE /api/reports", s.requireWritable(s.handleClearReports))
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("GET /api/reports/{id}/csv", s.handleDownloadReport)
	mux.HandleFunc("GET /api/events", s.handleSSE)

	return mux, nil
}

// requireWritable is middleware that rejects write requests in read-only mode.
func (s *Server) requireWritable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ReadOnly {
			http.Error(w, "Server is in read-only mode", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]string{
		"version":    s.Version,
		"commit_sha": s.CommitSHA,
	})
}

// reloadProgram reads and parses the program file. A program that does not
// parse is kept as an error for the API to report; only I/O errors are
// returned. Caller must NOT hold the mutex.
func (s *Server) reloadProgram(ctx context.Context) error {
	source, err := os.ReadFile(s.programFile)
	if err != nil {
		return err
	}

	prog, parseErr := loader.ParseProgram(ctx, s.programFile, source)

	s.mu.Lock()
	s.source = source
	s.program = prog
	s.programErr = parseErr
	s.mu.Unlock()

	if parseErr != nil {
		s.log.Warn().Err(parseErr).Str("file", s.programFile).Msg("program does not parse")
	}
	return nil
}

// startWatcher watches the program file, reloading it and broadcasting an
// SSE event on every change.
func (s *Server) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(s.programFile); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.programFile, err)
	}

	go s.runWatcher(ctx, watcher)

	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	// Editors often write files in multiple steps.
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove/Rename are common in atomic saves
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}

			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx, watcher)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// handleFileChange reloads the program and renews the watch.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher) {
	if err := s.reloadProgram(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to reload program")
		return
	}

	// Re-add to catch files replaced by atomic saves.
	if err := watcher.Add(s.programFile); err != nil {
		s.log.Warn().Err(err).Str("file", s.programFile).Msg("failed to watch program")
	}

	s.broadcast("reload")
}

// handleSSE handles Server-Sent Events connections for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, clientChan)
		s.sseMu.Unlock()
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
			// Client buffer full, skip
		}
	}
}
