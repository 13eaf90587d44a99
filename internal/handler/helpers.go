package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ebersole/caravan/internal/model"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the store error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is an internal storage failure: logged
// with context, surfaced as a retryable 500 with no detail leaked.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		errorJSON(w, http.StatusForbidden, err.Error())
	default:
		logger.Error(action, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
