package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/promptpit/promptpit/internal/config"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{MaxFileBytes: 1 << 20, MaxImageBytes: 1 << 20}
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/run", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestParseRunForm(t *testing.T) {
	h := NewPromptHandler(nil, nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"provider_id":          "1",
		"model_id":             "2",
		"text":                 "Explain TCP slow start",
		"system_prompt":        "Be brief.",
		"temperature":          "0.3",
		"max_tokens":           "500",
		"prompt_id":            "7",
		"include_file_content": "true",
		"knowledge_base_id":    "3",
		"rag_top_k":            "4",
	}, map[string][]byte{
		"notes.txt": []byte("some notes"),
	})

	got, err := h.parseRunForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ProviderID != 1 || got.ModelID != 2 {
		t.Errorf("ids = %d/%d", got.ProviderID, got.ModelID)
	}
	if got.Text != "Explain TCP slow start" || got.SystemPrompt != "Be brief." {
		t.Errorf("text fields wrong: %q / %q", got.Text, got.SystemPrompt)
	}
	if got.Temperature != 0.3 || got.MaxTokens != 500 {
		t.Errorf("sampling fields wrong: %v / %d", got.Temperature, got.MaxTokens)
	}
	if got.PromptID != 7 {
		t.Errorf("prompt_id = %d, want 7", got.PromptID)
	}
	if !got.IncludeFileContent {
		t.Error("include_file_content should be true")
	}
	if got.KnowledgeBaseID != 3 || got.RAGTopK != 4 {
		t.Errorf("rag fields wrong: %d / %d", got.KnowledgeBaseID, got.RAGTopK)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "notes.txt" || string(got.Files[0].Data) != "some notes" {
		t.Errorf("files not parsed: %+v", got.Files)
	}
}

func TestParseRunFormMissingRequired(t *testing.T) {
	h := NewPromptHandler(nil, nil, testUploadConfig())

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"no provider", map[string]string{"model_id": "2", "text": "x"}},
		{"no model", map[string]string{"provider_id": "1", "text": "x"}},
		{"no text", map[string]string{"provider_id": "1", "model_id": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, tt.fields, nil)
			if _, err := h.parseRunForm(req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseRunFormEphemeralDefaults(t *testing.T) {
	h := NewPromptHandler(nil, nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"provider_id": "1",
		"model_id":    "2",
		"text":        "hello",
	}, nil)

	got, err := h.parseRunForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PromptID != 0 {
		t.Errorf("prompt_id should default to 0 for ephemeral runs, got %d", got.PromptID)
	}
	if !got.IncludeFileContent {
		t.Error("include_file_content should default to true")
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want hello", got.Text)
	}
}

func TestParseRunFormLegacyPromptField(t *testing.T) {
	h := NewPromptHandler(nil, nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"provider_id": "1",
		"model_id":    "2",
		"prompt":      "hello",
	}, nil)

	got, err := h.parseRunForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want hello", got.Text)
	}
}

func TestParseRunFormFileContentOptOut(t *testing.T) {
	h := NewPromptHandler(nil, nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"provider_id":          "1",
		"model_id":             "2",
		"text":                 "hello",
		"include_file_content": "false",
	}, nil)

	got, err := h.parseRunForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IncludeFileContent {
		t.Error("include_file_content=false should be honored")
	}
}

func TestUserIDDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	if got := userID(req); got != "default_user" {
		t.Errorf("userID = %q, want default_user", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/prompts?user_id=alice", nil)
	if got := userID(req); got != "alice" {
		t.Errorf("userID = %q, want alice", got)
	}
}

func TestWriteDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDetail(rec, http.StatusNotFound, "prompt not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"detail":"prompt not found"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
