package handlers

import (
	"testing"
)

func TestParseSendForm(t *testing.T) {
	h := NewChatHandler(nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"message":       "summarize the attached notes",
		"session_id":    "abc-123",
		"provider_id":   "1",
		"model_id":      "2",
		"system_prompt": "Be brief.",
	}, map[string][]byte{
		"notes.txt": []byte("meeting notes"),
	})

	got, err := h.parseSendForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Message != "summarize the attached notes" {
		t.Errorf("Message = %q", got.Message)
	}
	if got.SessionID != "abc-123" {
		t.Errorf("SessionID = %q, want abc-123", got.SessionID)
	}
	if got.ProviderID != 1 || got.ModelID != 2 {
		t.Errorf("ProviderID/ModelID = %d/%d, want 1/2", got.ProviderID, got.ModelID)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "notes.txt" {
		t.Fatalf("expected one attached file, got %+v", got.Files)
	}
	if string(got.Files[0].Data) != "meeting notes" {
		t.Errorf("file data = %q", got.Files[0].Data)
	}
}

func TestParseSendFormNoSession(t *testing.T) {
	h := NewChatHandler(nil, testUploadConfig())

	req := multipartRequest(t, map[string]string{
		"message":     "hello",
		"provider_id": "1",
		"model_id":    "2",
	}, nil)

	got, err := h.parseSendForm(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SessionID != "" {
		t.Errorf("SessionID should be empty so the service starts one, got %q", got.SessionID)
	}
}
