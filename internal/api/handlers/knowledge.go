package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/knowledge"
)

type KnowledgeHandler struct {
	svc    *knowledge.Service
	upload config.UploadConfig
}

func NewKnowledgeHandler(svc *knowledge.Service, upload config.UploadConfig) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, upload: upload}
}

func (h *KnowledgeHandler) CreateBase(w http.ResponseWriter, r *http.Request) {
	var req knowledge.CreateBaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Name == "" {
		writeDetail(w, http.StatusBadRequest, "name is required")
		return
	}

	kb, err := h.svc.CreateBase(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kb)
}

func (h *KnowledgeHandler) ListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.svc.ListBases(r.Context(), userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bases)
}

func (h *KnowledgeHandler) GetBase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	kb, err := h.svc.GetBase(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

func (h *KnowledgeHandler) UpdateBase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	var req knowledge.CreateBaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	kb, err := h.svc.UpdateBase(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

func (h *KnowledgeHandler) DeleteBase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	if err := h.svc.DeleteBase(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "knowledge base deleted"})
}

// AddContent accepts either a multipart file upload or a JSON body with raw
// text. Processing is asynchronous; the response carries the pending item.
func (h *KnowledgeHandler) AddContent(w http.ResponseWriter, r *http.Request) {
	kbID, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}

	req := knowledge.AddContentRequest{KnowledgeBaseID: kbID}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.upload.MaxFileBytes); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid multipart form")
			return
		}
		req.ContentType = r.FormValue("content_type")
		req.Text = r.FormValue("text")

		if fhs := r.MultipartForm.File["file"]; len(fhs) > 0 {
			fh := fhs[0]
			if fh.Size > h.upload.MaxFileBytes {
				writeDetail(w, http.StatusBadRequest, "file exceeds the size limit")
				return
			}
			f, err := fh.Open()
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "unreadable upload")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "unreadable upload")
				return
			}
			req.Filename = fh.Filename
			req.Data = data
		}
	} else {
		var body struct {
			ContentType string `json:"content_type"`
			Text        string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		req.ContentType = body.ContentType
		req.Text = body.Text
	}

	c, err := h.svc.AddContent(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *KnowledgeHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	kbID, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	contents, err := h.svc.ListContents(r.Context(), kbID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

func (h *KnowledgeHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid content id")
		return
	}
	c, err := h.svc.GetContent(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *KnowledgeHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid content id")
		return
	}
	if err := h.svc.DeleteContent(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "content deleted"})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search returns the raw similarity matches, used by the RAG preview panel.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	kbID, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Query == "" {
		writeDetail(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Search(r.Context(), kbID, req.Query, req.TopK)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// Preview shows the assembled context block exactly as a run would inject it.
func (h *KnowledgeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	kbID, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid knowledge base id")
		return
	}
	query := r.URL.Query().Get("query")
	if query == "" {
		writeDetail(w, http.StatusBadRequest, "query is required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	context, sources, err := h.svc.RetrieveContext(r.Context(), kbID, query, topK)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"context": context,
		"sources": sources,
	})
}
