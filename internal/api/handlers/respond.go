package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/promptpit/promptpit/internal/chat"
	"github.com/promptpit/promptpit/internal/experiment"
	"github.com/promptpit/promptpit/internal/judge"
	"github.com/promptpit/promptpit/internal/knowledge"
	"github.com/promptpit/promptpit/internal/modelcard"
	"github.com/promptpit/promptpit/internal/prompt"
	"github.com/promptpit/promptpit/internal/provider"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDetail emits the error body shape the frontend expects.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeErr maps service errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrNotFound),
		errors.Is(err, prompt.ErrNotFound),
		errors.Is(err, prompt.ErrVersionNotFound),
		errors.Is(err, prompt.ErrOutputNotFound),
		errors.Is(err, judge.ErrEvaluationNotFound),
		errors.Is(err, experiment.ErrNotFound),
		errors.Is(err, modelcard.ErrNotFound),
		errors.Is(err, knowledge.ErrNotFound),
		errors.Is(err, knowledge.ErrContentNotFound),
		errors.Is(err, chat.ErrSessionNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, prompt.ErrDuplicateTitle),
		errors.Is(err, experiment.ErrInvalidTransition),
		errors.Is(err, modelcard.ErrNotDraft):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, experiment.ErrInvalidConfig):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// pathID parses the {id} URL segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

// userID resolves the identification parameter, defaulting when absent.
func userID(r *http.Request) string {
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		return uid
	}
	return "default_user"
}

func decodeBody(r *http.Request, dest interface{}) error {
	return json.NewDecoder(r.Body).Decode(dest)
}
