package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/promptpit/promptpit/internal/chat"
	"github.com/promptpit/promptpit/internal/config"
)

type ChatHandler struct {
	svc    *chat.Service
	upload config.UploadConfig
}

func NewChatHandler(svc *chat.Service, upload config.UploadConfig) *ChatHandler {
	return &ChatHandler{svc: svc, upload: upload}
}

func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req chat.StartRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	conv, err := h.svc.StartSession(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context(), userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// Send accepts either a JSON body or a multipart form with files and images
// riding along. When no session id is present a new session is started.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chat.SendRequest
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		req, err = h.parseSendForm(r)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if sid := chi.URLParam(r, "session_id"); sid != "" {
		req.SessionID = sid
	}
	if req.Message == "" {
		writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ProviderID == 0 || req.ModelID == 0 {
		writeDetail(w, http.StatusBadRequest, "provider_id and model_id are required")
		return
	}

	resp, err := h.svc.Send(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) parseSendForm(r *http.Request) (chat.SendRequest, error) {
	var req chat.SendRequest
	if err := r.ParseMultipartForm(h.upload.MaxFileBytes); err != nil {
		return req, fmt.Errorf("invalid multipart form: %v", err)
	}

	req.Message = r.FormValue("message")
	req.SessionID = r.FormValue("session_id")
	req.SystemPrompt = r.FormValue("system_prompt")
	req.UserID = r.FormValue("user_id")
	req.ProviderID, _ = strconv.ParseInt(r.FormValue("provider_id"), 10, 64)
	req.ModelID, _ = strconv.ParseInt(r.FormValue("model_id"), 10, 64)

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			if fh.Size > h.upload.MaxFileBytes {
				return req, fmt.Errorf("file %s exceeds the size limit", fh.Filename)
			}
			data, err := readUpload(fh)
			if err != nil {
				return req, err
			}
			req.Files = append(req.Files, chat.Attachment{Name: fh.Filename, Data: data})
		}
		for _, fh := range r.MultipartForm.File["images"] {
			if fh.Size > h.upload.MaxImageBytes {
				return req, fmt.Errorf("image %s exceeds the size limit", fh.Filename)
			}
			data, err := readUpload(fh)
			if err != nil {
				return req, err
			}
			req.Images = append(req.Images, toDataURL(fh, data))
		}
	}
	return req, nil
}
