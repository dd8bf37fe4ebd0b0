package handlers

import (
	"net/http"

	"github.com/promptpit/promptpit/internal/experiment"
)

type ExperimentHandler struct {
	svc *experiment.Service
}

func NewExperimentHandler(svc *experiment.Service) *ExperimentHandler {
	return &ExperimentHandler{svc: svc}
}

func (h *ExperimentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req experiment.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	e, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	f := experiment.ListFilter{
		UserID: userID(r),
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
	}
	experiments, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experiments)
}

func (h *ExperimentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	e, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExperimentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	var req experiment.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	e, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Start hands the experiment to the background worker. The response is the
// experiment still in pending state; progress is polled via Get.
func (h *ExperimentHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	e, err := h.svc.Start(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, e)
}

func (h *ExperimentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "experiment deleted"})
}

func (h *ExperimentHandler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	var req experiment.CycleRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	c, err := h.svc.CreateCycle(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ExperimentHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid experiment id")
		return
	}
	cycles, err := h.svc.ListCycles(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycles)
}
