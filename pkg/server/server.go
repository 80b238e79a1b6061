// Package server renders the campaign dashboard as HTML and pushes state
// changes to browsers over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"novafund/pkg/config"
	"novafund/pkg/models"
	"novafund/pkg/view"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var Logger = zerolog.Nop()

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// App is the application client behind the pages.
type App interface {
	Init(ctx context.Context) error
	CreateCampaign(ctx context.Context, title, description, goalText, durationText string) error
	Contribute(ctx context.Context, campaignID uint64, amountText string) error
	Finalize(ctx context.Context, campaignID uint64) error
	Refresh(ctx context.Context) (models.Snapshot, error)
	Session() models.Session
	Snapshot() (models.Snapshot, bool)
	Notification() (models.Notification, bool)
	Subscribe() view.Subscriber
	Unsubscribe(ch view.Subscriber)
}

type Server struct {
	app        App
	config     config.ServerConfig
	metrics    http.Handler
	mux        *chi.Mux
	httpServer *http.Server
	clients    map[*websocket.Conn]bool
	mu         sync.Mutex
}

// NewServer builds the router. metrics may be nil to disable /metrics.
func NewServer(app App, cfg config.ServerConfig, metrics http.Handler) *Server {
	s := &Server{
		app:     app,
		config:  cfg,
		metrics: metrics,
		mux:     chi.NewMux(),
		clients: make(map[*websocket.Conn]bool),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.RealIP)
	s.mux.Use(zerologMiddleware)
	s.mux.Use(zerologRecoverer)

	s.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"novafund"}`))
	})
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
	s.mux.Get("/ws", s.handleWS)

	s.mux.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/", s.handleIndex)
		r.With(corsMiddleware(s.config.AllowedOrigins)).Get("/api/state", s.handleState)
	})

	// Actions wait for transaction inclusion, so they carry no server timeout.
	s.mux.Group(func(r chi.Router) {
		if s.config.RatePerMinute > 0 {
			r.Use(httprate.LimitByIP(s.config.RatePerMinute, time.Minute))
		}
		r.Post("/connect", s.handleConnect)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/campaigns", s.handleCreate)
		r.Post("/campaigns/{id}/contribute", s.handleContribute)
		r.Post("/campaigns/{id}/finalize", s.handleFinalize)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	go s.listenToApp()

	Logger.Info().Str("address", s.config.Address).Msg("Web server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down web server...")
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for client := range s.clients {
		_ = client.Close()
		delete(s.clients, client)
	}
	s.mu.Unlock()
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, s.page()); err != nil {
		Logger.Error().Err(err).Msg("Failed to render page")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.state())
}

// Domain failures already reached the notification slot; every action
// answers with a redirect back to the page.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	_ = s.app.Init(actionContext(r))
	redirectHome(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, _ = s.app.Refresh(actionContext(r))
	redirectHome(w, r)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	_ = s.app.CreateCampaign(actionContext(r),
		r.PostFormValue("title"),
		r.PostFormValue("description"),
		r.PostFormValue("goal"),
		r.PostFormValue("duration"),
	)
	redirectHome(w, r)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	_ = s.app.Contribute(actionContext(r), id, r.PostFormValue("amount"))
	redirectHome(w, r)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	_ = s.app.Finalize(actionContext(r), id)
	redirectHome(w, r)
}

func campaignID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// actionContext detaches from the request so a closed tab does not abandon
// a submitted transaction.
func actionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Send initial state before registering so broadcasts cannot interleave.
	s.mu.Lock()
	err = conn.WriteJSON(wsMessage{Type: "initial", Data: s.state()})
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToApp() {
	sub := s.app.Subscribe()
	defer s.app.Unsubscribe(sub)

	for event := range sub {
		s.broadcast(toMessage(event))
	}
}

func (s *Server) broadcast(msg wsMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
