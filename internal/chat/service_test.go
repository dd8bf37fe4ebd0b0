package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/models"
)

func newTestService(maxTurns int) *Service {
	return NewService(nil, nil, nil, config.ChatConfig{HistoryTTLHours: 1, MaxContextTurns: maxTurns})
}

func TestNewConversationGeneratesSessionID(t *testing.T) {
	conv := newConversation("", "", "be brief")

	if conv.SessionID == "" {
		t.Error("session id should be generated when absent")
	}
	if conv.UserID != "default_user" {
		t.Errorf("UserID = %q, want default_user", conv.UserID)
	}
	if conv.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt = %q", conv.SystemPrompt)
	}
}

func TestNewConversationKeepsSuppliedSessionID(t *testing.T) {
	conv := newConversation("abc-123", "alice", "")

	if conv.SessionID != "abc-123" {
		t.Errorf("SessionID = %q, want abc-123", conv.SessionID)
	}
	if conv.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", conv.UserID)
	}
}

func TestInlineDocuments(t *testing.T) {
	got := inlineDocuments("report body", "summarize this")

	want := "Content extracted from documents:\nreport body\n\nUser prompt: summarize this"
	if got != want {
		t.Errorf("inlined content = %q, want %q", got, want)
	}
}

func TestInlineDocumentsNoAttachments(t *testing.T) {
	if got := inlineDocuments("", "just chat"); got != "just chat" {
		t.Errorf("message should pass through untouched, got %q", got)
	}
}

func TestExtractAttachments(t *testing.T) {
	text, metas, err := extractAttachments([]Attachment{
		{Name: "notes.txt", Data: []byte("meeting notes")},
		{Name: "empty.txt", Data: []byte("  ")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(text, "--- notes.txt ---") || !strings.Contains(text, "meeting notes") {
		t.Errorf("extracted text missing document body: %q", text)
	}
	if strings.Contains(text, "empty.txt") {
		t.Error("blank document should not contribute text")
	}
	if len(metas) != 2 {
		t.Fatalf("expected metadata for both uploads, got %d", len(metas))
	}
	if metas[0].Name != "notes.txt" || metas[0].Size != int64(len("meeting notes")) {
		t.Errorf("unexpected metadata: %+v", metas[0])
	}
}

func TestExtractAttachmentsRejectsUnsupported(t *testing.T) {
	if _, _, err := extractAttachments([]Attachment{{Name: "tool.exe", Data: []byte{0x4d}}}); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestBuildContextIncludesSystemPrompt(t *testing.T) {
	svc := newTestService(20)
	conv := &models.ChatConversation{
		SystemPrompt: "You are terse.",
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hello"},
		},
	}

	out := svc.buildContext(conv)
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	if out[0].Role != "system" || out[0].Content != "You are terse." {
		t.Errorf("first message should be the system prompt, got %+v", out[0])
	}
	if out[1].Role != models.RoleUser || out[2].Role != models.RoleAssistant {
		t.Errorf("history order wrong: %+v", out[1:])
	}
}

func TestBuildContextNoSystemPrompt(t *testing.T) {
	svc := newTestService(20)
	conv := &models.ChatConversation{
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
	}

	out := svc.buildContext(conv)
	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
	if out[0].Role != models.RoleUser {
		t.Errorf("unexpected role %q", out[0].Role)
	}
}

func TestBuildContextTrimsOldTurns(t *testing.T) {
	svc := newTestService(2)

	var msgs []models.ChatMessage
	for i := 0; i < 10; i++ {
		msgs = append(msgs,
			models.ChatMessage{Role: models.RoleUser, Content: fmt.Sprintf("question %d", i), Timestamp: time.Now()},
			models.ChatMessage{Role: models.RoleAssistant, Content: fmt.Sprintf("answer %d", i), Timestamp: time.Now()},
		)
	}
	conv := &models.ChatConversation{SystemPrompt: "sys", Messages: msgs}

	out := svc.buildContext(conv)
	// system prompt plus the last 2 turns (4 messages)
	if len(out) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(out))
	}
	if out[1].Content != "question 8" {
		t.Errorf("oldest kept message = %q, want question 8", out[1].Content)
	}
	if out[4].Content != "answer 9" {
		t.Errorf("newest kept message = %q, want answer 9", out[4].Content)
	}
}
