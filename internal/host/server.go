package host

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP surface for the host-invokable operations and event
// stream of §6. It binds a chi router to the configured address and
// provides graceful shutdown support.
type Server struct {
	router  chi.Router
	deps    *Deps
	addr    string
	httpSrv *http.Server
}

// NewServer builds a Server wiring every route of §6's operation table plus
// the /events SSE stream to deps, listening on addr.
func NewServer(deps *Deps, addr string) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/load_all_entries", deps.handleLoadAllEntries)
	r.Post("/delete_files", deps.handleDeleteFiles)
	r.Get("/find_similar_screenshots", deps.handleFindSimilar)
	r.Post("/reprocess_all_tags", deps.handleReprocessTags)
	r.Post("/compute_missing_hashes", deps.handleComputeMissingHashes)
	r.Post("/copy_image_to_clipboard", deps.handleCopyToClipboard)
	r.Post("/open_quick_search", deps.handleOpenQuickSearch)
	r.Get("/events", deps.handleEvents)

	srv := &Server{
		router: r,
		deps:   deps,
		addr:   addr,
	}
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the /events stream must not be cut off by a write deadline
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Router returns the underlying chi.Router, useful for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening for HTTP connections on the configured address. It
// blocks until the server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("host: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// complete within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
