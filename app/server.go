package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"transcription-editor/pkg/config"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/handlers"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/room"
	"transcription-editor/pkg/splitter"

	"github.com/gorilla/mux"
)

// Server represents the application server
type Server struct {
	router      *mux.Router
	roomManager *room.RoomManager
	handlers    *handlers.Handlers
	docStore    db.IDocumentStore
	config      *config.Config
	log         *slog.Logger
	http        *http.Server
}

// NewServer opens the document store named by cfg and wires the routes.
// A nil logger means slog.Default.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	units, err := splitter.ParseUnits(cfg.Editor.SelectionUnits)
	if err != nil {
		return nil, fmt.Errorf("editor config: %w", err)
	}

	docStore, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	roomManager := room.NewRoomManager(docStore, editor.Options{
		Logger:          logger,
		Units:           units,
		DefaultLanguage: cfg.Editor.DefaultLanguage,
	})

	h := handlers.NewHandlers(roomManager, logger)

	r := mux.NewRouter()
	h.Routes(r)
	r.Use(logging.RequestIDMiddleware, logging.Middleware(logger))

	return &Server{
		router:      r,
		roomManager: roomManager,
		handlers:    h,
		docStore:    docStore,
		config:      cfg,
		log:         logging.Component(logger, "server"),
	}, nil
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	// Wrap the router with a top-level CORS middleware so that
	// preflight (OPTIONS) requests are handled before mux does
	// method-based matching (which can otherwise return 405).
	return corsMiddleware(s.router)
}

// Start serves until Shutdown is called. An empty addr uses the configured one.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = s.config.GetServerAddr()
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("starting transcription editor server", "addr", addr, "db", s.config.Database.Driver)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// corsMiddleware handles CORS headers and responds to preflight requests
// at the outer layer so they don't get rejected by method-restricted routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// Reflect the origin for stricter CORS (avoids some browser issues with credentials)
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		// If the browser asked for specific headers, echo them back; otherwise allow common headers
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		}

		w.Header().Set("Access-Control-Max-Age", "600")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close stops every room and closes the document store. Unsaved edits are lost.
func (s *Server) Close() error {
	s.roomManager.Close()
	return s.docStore.Close()
}
