package handlers

import (
	"net/http"
	"strconv"

	"github.com/promptpit/promptpit/internal/judge"
)

type JudgeHandler struct {
	svc *judge.Service
}

func NewJudgeHandler(svc *judge.Service) *JudgeHandler {
	return &JudgeHandler{svc: svc}
}

func (h *JudgeHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req judge.EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.OutputID == 0 {
		writeDetail(w, http.StatusBadRequest, "output_id is required")
		return
	}

	ev, err := h.svc.Evaluate(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *JudgeHandler) List(w http.ResponseWriter, r *http.Request) {
	var f judge.ListFilter
	f.OutputID, _ = strconv.ParseInt(r.URL.Query().Get("output_id"), 10, 64)
	f.PromptID, _ = strconv.ParseInt(r.URL.Query().Get("prompt_id"), 10, 64)
	f.JudgeProviderID, _ = strconv.ParseInt(r.URL.Query().Get("judge_provider_id"), 10, 64)
	f.MinScore, _ = strconv.ParseFloat(r.URL.Query().Get("min_score"), 64)
	f.MaxScore, _ = strconv.ParseFloat(r.URL.Query().Get("max_score"), 64)

	evals, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evals)
}

func (h *JudgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid evaluation id")
		return
	}
	ev, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
