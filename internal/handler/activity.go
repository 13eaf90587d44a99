package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ebersole/caravan/internal/auth"
	"github.com/ebersole/caravan/internal/model"
	"github.com/ebersole/caravan/internal/push"
	"github.com/ebersole/caravan/internal/realtime"
	"github.com/ebersole/caravan/internal/store"
	"github.com/ebersole/caravan/internal/view"
)

type ActivityHandler struct {
	activityStore *store.ActivityStore
	responseStore *store.ResponseStore
	tripStore     *store.TripStore
	userStore     *store.UserStore
	hub           *realtime.Hub
	pushSvc       *push.Service // nil when push is not configured
	logger        *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, rs *store.ResponseStore, ts *store.TripStore, us *store.UserStore, hub *realtime.Hub, pushSvc *push.Service, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityStore: as,
		responseStore: rs,
		tripStore:     ts,
		userStore:     us,
		hub:           hub,
		pushSvc:       pushSvc,
		logger:        logger,
	}
}

type activityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	CostCents   int64  `json:"cost_cents"`
	Capacity    *int64 `json:"capacity"`
}

func (req *activityRequest) fields(w http.ResponseWriter) (store.ActivityFields, bool) {
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "start_time must be RFC3339 format")
		return store.ActivityFields{}, false
	}

	var endTime *time.Time
	if req.EndTime != "" {
		t, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "end_time must be RFC3339 format")
			return store.ActivityFields{}, false
		}
		endTime = &t
	}

	return store.ActivityFields{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		StartTime:   startTime,
		EndTime:     endTime,
		CostCents:   req.CostCents,
		Capacity:    req.Capacity,
	}, true
}

// requireMember resolves the caller's membership in a trip, writing the
// response itself on failure.
func (h *ActivityHandler) requireMember(w http.ResponseWriter, r *http.Request, tripID int64) (*model.TripMember, bool) {
	member, err := h.tripStore.GetMember(tripID, auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get member", err)
		return nil, false
	}
	if member == nil {
		errorJSON(w, http.StatusNotFound, "trip not found")
		return nil, false
	}
	return member, true
}

// Propose creates a new activity in a trip and fans out a created event.
func (h *ActivityHandler) Propose(w http.ResponseWriter, r *http.Request) {
	tripID, err := parseIDParam(r, "id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid trip id")
		return
	}
	if _, ok := h.requireMember(w, r, tripID); !ok {
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fields, ok := req.fields(w)
	if !ok {
		return
	}

	proposerID := auth.UserID(r.Context())
	activity, err := h.activityStore.Create(tripID, proposerID, fields)
	if err != nil {
		writeStoreError(w, h.logger, "create activity", err)
		return
	}

	h.hub.Broadcast(realtime.Event{TripID: tripID, ActivityID: activity.ID, Kind: realtime.KindCreated})
	if h.pushSvc != nil {
		go h.notifyProposal(activity, proposerID)
	}

	writeJSON(w, http.StatusCreated, view.Derive(*activity, nil, proposerID))
}

func (h *ActivityHandler) notifyProposal(activity *model.Activity, proposerID int64) {
	proposer, err := h.userStore.GetByID(proposerID)
	if err != nil || proposer == nil {
		h.logger.Warn("proposer lookup for push", "user_id", proposerID, "error", err)
		return
	}
	h.pushSvc.NotifyProposal(activity, proposer.Name)
}

// Board lists every activity in a trip with participation derived for the
// caller. Declines and silence hide nothing here.
func (h *ActivityHandler) Board(w http.ResponseWriter, r *http.Request) {
	views, ok := h.tripViews(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Schedule lists only the activities the caller has accepted.
func (h *ActivityHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	views, ok := h.tripViews(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.PersonalSchedule(views))
}

func (h *ActivityHandler) tripViews(w http.ResponseWriter, r *http.Request) ([]model.ActivityView, bool) {
	tripID, err := parseIDParam(r, "id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid trip id")
		return nil, false
	}
	if _, ok := h.requireMember(w, r, tripID); !ok {
		return nil, false
	}

	activities, err := h.activityStore.ListByTrip(tripID)
	if err != nil {
		writeStoreError(w, h.logger, "list activities", err)
		return nil, false
	}
	responses, err := h.responseStore.ListByTrip(tripID)
	if err != nil {
		writeStoreError(w, h.logger, "list responses", err)
		return nil, false
	}

	return view.DeriveAll(activities, responses, auth.UserID(r.Context())), true
}

// Get returns one activity with participation derived for the caller.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	activity, _, ok := h.loadActivity(w, r)
	if !ok {
		return
	}

	responses, err := h.responseStore.ListByActivity(activity.ID)
	if err != nil {
		writeStoreError(w, h.logger, "list responses", err)
		return
	}

	writeJSON(w, http.StatusOK, view.Derive(*activity, responses, auth.UserID(r.Context())))
}

// loadActivity fetches the activity from the path and verifies the caller
// belongs to its trip. Non-members get the same 404 as a missing activity.
func (h *ActivityHandler) loadActivity(w http.ResponseWriter, r *http.Request) (*model.Activity, *model.TripMember, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}

	activity, err := h.activityStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get activity", err)
		return nil, nil, false
	}
	if activity == nil {
		errorJSON(w, http.StatusNotFound, "activity not found")
		return nil, nil, false
	}

	member, ok := h.requireMember(w, r, activity.TripID)
	if !ok {
		return nil, nil, false
	}
	return activity, member, true
}

// Update edits an activity's descriptive fields. Only the proposer or the
// trip owner may edit; responses are untouched.
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	activity, member, ok := h.loadActivity(w, r)
	if !ok {
		return
	}
	if activity.ProposerID != member.UserID && member.Role != store.RoleOwner {
		errorJSON(w, http.StatusForbidden, "only the proposer or trip owner may edit an activity")
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fields, ok := req.fields(w)
	if !ok {
		return
	}

	updated, err := h.activityStore.Update(activity.ID, fields)
	if err != nil {
		writeStoreError(w, h.logger, "update activity", err)
		return
	}

	h.hub.Broadcast(realtime.Event{TripID: activity.TripID, ActivityID: activity.ID, Kind: realtime.KindUpdated})

	responses, err := h.responseStore.ListByActivity(activity.ID)
	if err != nil {
		writeStoreError(w, h.logger, "list responses", err)
		return
	}
	writeJSON(w, http.StatusOK, view.Derive(*updated, responses, member.UserID))
}

// Delete removes an activity and its responses. Only the proposer or the
// trip owner may delete.
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	activity, member, ok := h.loadActivity(w, r)
	if !ok {
		return
	}
	if activity.ProposerID != member.UserID && member.Role != store.RoleOwner {
		errorJSON(w, http.StatusForbidden, "only the proposer or trip owner may delete an activity")
		return
	}

	if err := h.activityStore.Delete(activity.ID); err != nil {
		writeStoreError(w, h.logger, "delete activity", err)
		return
	}

	h.hub.Broadcast(realtime.Event{TripID: activity.TripID, ActivityID: activity.ID, Kind: realtime.KindDeleted})
	w.WriteHeader(http.StatusNoContent)
}

type respondRequest struct {
	Accepted *bool `json:"accepted"`
}

// Respond records the caller's accept/decline on an activity. The upsert
// is atomic per (activity, caller); repeated and rapid-fire responses all
// collapse to the last write. The fan-out kind mirrors the stance so other
// clients know a refetch is due.
func (h *ActivityHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Accepted == nil {
		errorJSON(w, http.StatusBadRequest, "accepted (true or false) is required")
		return
	}

	userID := auth.UserID(r.Context())
	if _, err := h.responseStore.Upsert(id, userID, *req.Accepted); err != nil {
		writeStoreError(w, h.logger, "upsert response", err)
		return
	}

	// Re-read after the write so the returned view reflects committed state.
	activity, err := h.activityStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get activity", err)
		return
	}
	if activity == nil {
		// Deleted between the upsert and this read
		errorJSON(w, http.StatusNotFound, "activity not found")
		return
	}
	responses, err := h.responseStore.ListByActivity(id)
	if err != nil {
		writeStoreError(w, h.logger, "list responses", err)
		return
	}

	kind := realtime.KindDeclined
	if *req.Accepted {
		kind = realtime.KindAccepted
	}
	h.hub.Broadcast(realtime.Event{TripID: activity.TripID, ActivityID: id, Kind: kind})

	writeJSON(w, http.StatusOK, view.Derive(*activity, responses, userID))
}
