package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ebersole/caravan/internal/handler"
	"github.com/ebersole/caravan/internal/middleware"
	"github.com/ebersole/caravan/internal/push"
	"github.com/ebersole/caravan/internal/realtime"
	"github.com/ebersole/caravan/internal/store"
)

// Config carries the knobs main resolves from the environment.
type Config struct {
	TicketSecret []byte
	SecureCookie bool
	Push         push.Config
}

type Server struct {
	db           *sql.DB
	hub          *realtime.Hub
	authH        *handler.AuthHandler
	tripH        *handler.TripHandler
	activityH    *handler.ActivityHandler
	pushH        *handler.PushHandler
	sessionStore *store.SessionStore
	tripStore    *store.TripStore
	tickets      *realtime.TicketIssuer
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	tripStore := store.NewTripStore(db)
	activityStore := store.NewActivityStore(db)
	responseStore := store.NewResponseStore(db)
	pushStore := store.NewPushStore(db)

	tickets := realtime.NewTicketIssuer(cfg.TicketSecret)

	var pushSvc *push.Service
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, tickets, cfg.SecureCookie, logger.With("component", "auth")),
		tripH:        handler.NewTripHandler(tripStore, userStore, logger.With("component", "trip")),
		activityH:    handler.NewActivityHandler(activityStore, responseStore, tripStore, userStore, hub, pushSvc, logger.With("component", "activity")),
		pushH:        pushH,
		sessionStore: sessionStore,
		tripStore:    tripStore,
		tickets:      tickets,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the realtime hub.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// WebSocket upgrade authenticates with a ticket, not the cookie
	outerMux.HandleFunc("GET /ws", realtime.HandleWebSocket(s.hub, s.tickets, s.tripStore, s.logger.With("component", "ws")))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("POST /api/ws-ticket", s.authH.WSTicket)

	// Trips and membership
	mux.HandleFunc("POST /api/trips", s.tripH.Create)
	mux.HandleFunc("GET /api/trips", s.tripH.List)
	mux.HandleFunc("GET /api/trips/{id}", s.tripH.Get)
	mux.HandleFunc("DELETE /api/trips/{id}", s.tripH.Delete)
	mux.HandleFunc("GET /api/trips/{id}/members", s.tripH.ListMembers)
	mux.HandleFunc("POST /api/trips/{id}/members", s.tripH.AddMember)
	mux.HandleFunc("DELETE /api/trips/{id}/members/{user_id}", s.tripH.RemoveMember)

	// Activities and responses
	mux.HandleFunc("POST /api/trips/{id}/activities", s.activityH.Propose)
	mux.HandleFunc("GET /api/trips/{id}/activities", s.activityH.Board)
	mux.HandleFunc("GET /api/trips/{id}/schedule", s.activityH.Schedule)
	mux.HandleFunc("GET /api/activities/{id}", s.activityH.Get)
	mux.HandleFunc("PUT /api/activities/{id}", s.activityH.Update)
	mux.HandleFunc("DELETE /api/activities/{id}", s.activityH.Delete)
	mux.HandleFunc("POST /api/activities/{id}/respond", s.activityH.Respond)

	// Web push (only when VAPID keys are configured)
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	}
}
