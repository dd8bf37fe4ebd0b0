package handlers

import (
	"fmt"
	"net/http"

	"github.com/promptpit/promptpit/internal/modelcard"
)

type ModelCardHandler struct {
	svc *modelcard.Service
}

func NewModelCardHandler(svc *modelcard.Service) *ModelCardHandler {
	return &ModelCardHandler{svc: svc}
}

func (h *ModelCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req modelcard.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Title == "" {
		writeDetail(w, http.StatusBadRequest, "title is required")
		return
	}

	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ModelCardHandler) GenerateNew(w http.ResponseWriter, r *http.Request) {
	var req modelcard.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Title == "" {
		writeDetail(w, http.StatusBadRequest, "title is required")
		return
	}

	c, err := h.svc.GenerateNew(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ModelCardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.List(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *ModelCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	c, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ModelCardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	var req modelcard.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	c, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ModelCardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "model card deleted"})
}

func (h *ModelCardHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	c, err := h.svc.Generate(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ModelCardHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	c, err := h.svc.Publish(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ModelCardHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}
	c, err := h.svc.Archive(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ModelCardHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid model card id")
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != modelcard.FormatJSON && format != modelcard.FormatMarkdown {
		writeDetail(w, http.StatusBadRequest, "format must be json or markdown")
		return
	}
	payload, contentType, err := h.svc.Export(r.Context(), id, format)
	if err != nil {
		writeErr(w, err)
		return
	}

	ext := "json"
	if format == modelcard.FormatMarkdown {
		ext = "md"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=model-card-%d.%s", id, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
