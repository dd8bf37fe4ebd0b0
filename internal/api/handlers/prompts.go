package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/prompt"
	"github.com/promptpit/promptpit/pkg/textextract"
)

type PromptHandler struct {
	svc    *prompt.Service
	runner *prompt.Runner
	upload config.UploadConfig
}

func NewPromptHandler(svc *prompt.Service, runner *prompt.Runner, upload config.UploadConfig) *PromptHandler {
	return &PromptHandler{svc: svc, runner: runner, upload: upload}
}

func (h *PromptHandler) SupportedFileTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"extensions": textextract.SupportedExtensions(),
	})
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req prompt.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Text == "" {
		writeDetail(w, http.StatusBadRequest, "text is required")
		return
	}

	p, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	f := prompt.ListFilter{UserID: userID(r)}
	f.ProviderID, _ = strconv.ParseInt(r.URL.Query().Get("provider_id"), 10, 64)
	f.ModelID, _ = strconv.ParseInt(r.URL.Query().Get("model_id"), 10, 64)

	prompts, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (h *PromptHandler) ListWithVersions(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.svc.ListWithVersions(r.Context(), prompt.ListFilter{UserID: userID(r)})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	var req prompt.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	p, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "prompt deleted"})
}

func (h *PromptHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	p, err := h.svc.Duplicate(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Run executes a prompt. The request is multipart so files and images can
// ride along; all scalar fields come in as form values.
func (h *PromptHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRunForm(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.runner.Run(r.Context(), *req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PromptHandler) parseRunForm(r *http.Request) (*prompt.RunRequest, error) {
	if err := r.ParseMultipartForm(h.upload.MaxFileBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	req := &prompt.RunRequest{
		Text:         r.FormValue("text"),
		SystemPrompt: r.FormValue("system_prompt"),
		UserID:       r.FormValue("user_id"),
	}
	if req.Text == "" {
		// Older clients send the body under "prompt".
		req.Text = r.FormValue("prompt")
	}
	req.PromptID, _ = strconv.ParseInt(r.FormValue("prompt_id"), 10, 64)
	req.KnowledgeBaseID, _ = strconv.ParseInt(r.FormValue("knowledge_base_id"), 10, 64)
	req.RAGTopK, _ = strconv.Atoi(r.FormValue("rag_top_k"))
	req.Temperature, _ = strconv.ParseFloat(r.FormValue("temperature"), 64)
	req.MaxTokens, _ = strconv.Atoi(r.FormValue("max_tokens"))
	// File content is inlined unless the client opts out.
	req.IncludeFileContent = r.FormValue("include_file_content") != "false"
	req.FileContentPrefix = r.FormValue("file_content_prefix")

	var err error
	req.ProviderID, err = strconv.ParseInt(r.FormValue("provider_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("provider_id is required")
	}
	req.ModelID, err = strconv.ParseInt(r.FormValue("model_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("model_id is required")
	}
	if req.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			if fh.Size > h.upload.MaxFileBytes {
				return nil, fmt.Errorf("file %s exceeds the size limit", fh.Filename)
			}
			data, err := readUpload(fh)
			if err != nil {
				return nil, err
			}
			req.Files = append(req.Files, prompt.Attachment{Name: fh.Filename, Data: data})
		}
		for _, fh := range r.MultipartForm.File["images"] {
			if fh.Size > h.upload.MaxImageBytes {
				return nil, fmt.Errorf("image %s exceeds the size limit", fh.Filename)
			}
			data, err := readUpload(fh)
			if err != nil {
				return nil, err
			}
			req.Images = append(req.Images, toDataURL(fh, data))
		}
	}
	return req, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %v", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %v", fh.Filename, err)
	}
	return data, nil
}

// toDataURL packs an uploaded image into the base64 data URL form the vendor
// APIs accept.
func toDataURL(fh *multipart.FileHeader, data []byte) string {
	mediaType := fh.Header.Get("Content-Type")
	if mediaType == "" || !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/png"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (h *PromptHandler) Lock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	var req prompt.LockRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	v, err := h.svc.Lock(r.Context(), id, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type createAndLockRequest struct {
	Prompt prompt.CreateRequest `json:"prompt"`
	Lock   prompt.LockRequest   `json:"lock"`
}

func (h *PromptHandler) CreateAndLock(w http.ResponseWriter, r *http.Request) {
	var req createAndLockRequest
	if err := decodeBody(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Prompt.Text == "" {
		writeDetail(w, http.StatusBadRequest, "prompt text is required")
		return
	}

	p, v, err := h.svc.CreateAndLock(r.Context(), req.Prompt, req.Lock)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"prompt":  p,
		"version": v,
	})
}

func (h *PromptHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}

	versions, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *PromptHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	vn, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid version number")
		return
	}

	v, err := h.svc.GetVersion(r.Context(), id, vn)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	vn, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid version number")
		return
	}

	p, err := h.svc.RestoreVersion(r.Context(), id, vn)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	vn, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid version number")
		return
	}

	if err := h.svc.DeleteVersion(r.Context(), id, vn); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "version deleted"})
}

func (h *PromptHandler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	outputs, err := h.svc.ListOutputs(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outputs)
}

func (h *PromptHandler) GetOutput(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid output id")
		return
	}
	out, err := h.svc.GetOutput(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PromptHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid prompt id")
		return
	}
	bundle, err := h.svc.Export(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=prompt-%d.json", id))
	writeJSON(w, http.StatusOK, bundle)
}

func (h *PromptHandler) Import(w http.ResponseWriter, r *http.Request) {
	var bundle prompt.ExportBundle
	if err := decodeBody(r, &bundle); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid export bundle")
		return
	}

	p, err := h.svc.Import(r.Context(), userID(r), bundle)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
