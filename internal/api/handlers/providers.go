package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/provider"
)

type ProviderHandler struct {
	svc *provider.Service
}

func NewProviderHandler(svc *provider.Service) *ProviderHandler {
	return &ProviderHandler{svc: svc}
}

// providerWithModels is the body for key registration and rotation: the
// stored provider plus how many catalog models the key refresh pulled in.
func providerWithModels(p *models.Provider, refreshed int) map[string]interface{} {
	return map[string]interface{}{
		"provider":         p,
		"models_refreshed": refreshed,
	}
}

type addProviderRequest struct {
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

func (h *ProviderHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addProviderRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))
	if req.Name == "" || req.APIKey == "" {
		writeDetail(w, http.StatusBadRequest, "name and api_key are required")
		return
	}

	p, modelCount, err := h.svc.AddProvider(r.Context(), req.Name, req.APIKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, providerWithModels(p, modelCount))
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.svc.ListActive(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

func (h *ProviderHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *ProviderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid provider id")
		return
	}
	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updateKeyRequest struct {
	APIKey string `json:"api_key"`
}

// UpdateKey replaces a provider's key, addressed by provider name or numeric
// id. Validates the key against the vendor and refreshes the model catalog.
func (h *ProviderHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "id"))
	if !provider.IsSupported(name) {
		id, err := pathID(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "unknown provider: "+name)
			return
		}
		p, err := h.svc.GetByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		name = p.Name
	}
	var req updateKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.APIKey == "" {
		writeDetail(w, http.StatusBadRequest, "api_key is required")
		return
	}

	updated, modelCount, err := h.svc.UpdateAPIKey(r.Context(), name, req.APIKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providerWithModels(updated, modelCount))
}

func (h *ProviderHandler) ClearKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid provider id")
		return
	}
	p, err := h.svc.ClearAPIKey(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Deactivate is the soft delete: the key is cleared and models go
// unavailable, but prompt history referencing the provider survives.
func (h *ProviderHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid provider id")
		return
	}
	modelCount, err := h.svc.Deactivate(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "provider deactivated",
		"models_deactivated": modelCount,
	})
}

// PermanentDelete removes the provider with all dependent data and reports
// what was deleted.
func (h *ProviderHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid provider id")
		return
	}
	counts, err := h.svc.PermanentDelete(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *ProviderHandler) RefreshModels(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid provider id")
		return
	}
	refreshed, err := h.svc.RefreshModels(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": refreshed,
		"count":  len(refreshed),
	})
}

func (h *ProviderHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}
