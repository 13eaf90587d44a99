package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ebersole/caravan/internal/auth"
	"github.com/ebersole/caravan/internal/realtime"
	"github.com/ebersole/caravan/internal/store"
)

const (
	// SessionCookieName is shared with the auth middleware.
	SessionCookieName = "caravan_session"
	sessionTTL        = 30 * 24 * time.Hour
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	tickets      *realtime.TicketIssuer
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, tickets *realtime.TicketIssuer, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		tickets:      tickets,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeStoreError(w, h.logger, "register lookup", err)
		return
	}
	if existing != nil {
		errorJSON(w, http.StatusConflict, "email already registered")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, req.Password)
	if err != nil {
		writeStoreError(w, h.logger, "create user", err)
		return
	}

	if !h.setSession(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.Authenticate(req.Email, req.Password)
	if err != nil {
		writeStoreError(w, h.logger, "authenticate", err)
		return
	}
	if user == nil {
		// Same answer for unknown email and wrong password
		errorJSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !h.setSession(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, userID int64) bool {
	sess, err := h.sessionStore.Create(userID, sessionTTL)
	if err != nil {
		writeStoreError(w, h.logger, "create session", err)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get user", err)
		return
	}
	if user == nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// WSTicket mints a short-lived ticket the client presents on the websocket
// upgrade, where the session cookie is unavailable.
func (h *AuthHandler) WSTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.Issue(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("issue ws ticket", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticket": ticket})
}
