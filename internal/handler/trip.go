package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ebersole/caravan/internal/auth"
	"github.com/ebersole/caravan/internal/model"
	"github.com/ebersole/caravan/internal/store"
)

type TripHandler struct {
	tripStore *store.TripStore
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewTripHandler(ts *store.TripStore, us *store.UserStore, logger *slog.Logger) *TripHandler {
	return &TripHandler{tripStore: ts, userStore: us, logger: logger}
}

type tripRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	trip, err := h.tripStore.Create(req.Name, req.Destination, auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "create trip", err)
		return
	}

	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.tripStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "list trips", err)
		return
	}
	if trips == nil {
		trips = []model.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

// loadForMember fetches the trip from the path and verifies membership.
// Non-members get a 404, not a 403, so trip ids leak nothing.
func (h *TripHandler) loadForMember(w http.ResponseWriter, r *http.Request) (*model.Trip, *model.TripMember, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}

	member, err := h.tripStore.GetMember(id, auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get member", err)
		return nil, nil, false
	}
	if member == nil {
		errorJSON(w, http.StatusNotFound, "trip not found")
		return nil, nil, false
	}

	trip, err := h.tripStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get trip", err)
		return nil, nil, false
	}
	if trip == nil {
		errorJSON(w, http.StatusNotFound, "trip not found")
		return nil, nil, false
	}
	return trip, member, true
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, _, ok := h.loadForMember(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	trip, member, ok := h.loadForMember(w, r)
	if !ok {
		return
	}
	if member.Role != store.RoleOwner {
		errorJSON(w, http.StatusForbidden, "only the trip owner may delete a trip")
		return
	}

	if err := h.tripStore.Delete(trip.ID); err != nil {
		writeStoreError(w, h.logger, "delete trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	trip, _, ok := h.loadForMember(w, r)
	if !ok {
		return
	}

	members, err := h.tripStore.ListMembers(trip.ID)
	if err != nil {
		writeStoreError(w, h.logger, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	Email string `json:"email"`
}

// AddMember adds an existing user to the trip by email. Owner only.
func (h *TripHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	trip, member, ok := h.loadForMember(w, r)
	if !ok {
		return
	}
	if member.Role != store.RoleOwner {
		errorJSON(w, http.StatusForbidden, "only the trip owner may add members")
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		errorJSON(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeStoreError(w, h.logger, "get user", err)
		return
	}
	if user == nil {
		errorJSON(w, http.StatusNotFound, "no user with that email")
		return
	}

	added, err := h.tripStore.AddMember(trip.ID, user.ID, store.RoleMember)
	if err != nil {
		writeStoreError(w, h.logger, "add member", err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// RemoveMember removes a member (owner removing others, or a member
// leaving). The member's responses across the trip go with them.
func (h *TripHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	trip, member, ok := h.loadForMember(w, r)
	if !ok {
		return
	}

	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if userID != member.UserID && member.Role != store.RoleOwner {
		errorJSON(w, http.StatusForbidden, "only the trip owner may remove other members")
		return
	}
	if userID == trip.OwnerID {
		errorJSON(w, http.StatusBadRequest, "the trip owner cannot be removed")
		return
	}

	if err := h.tripStore.RemoveMember(trip.ID, userID); err != nil {
		writeStoreError(w, h.logger, "remove member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
