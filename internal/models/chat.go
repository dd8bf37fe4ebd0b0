package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatConversation is one chat session. History lives in redis keyed by
// session id; session ids are server-issued uuids.
type ChatConversation struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	SystemPrompt string        `json:"system_prompt"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	LastUpdated  time.Time     `json:"last_updated"`
}

type ChatMessage struct {
	Role    string     `json:"role"`
	Content string     `json:"content"`
	Files   []FileMeta `json:"files,omitempty"`
	// Images are base64 data URLs forwarded to vision-capable models.
	Images    []string  `json:"images,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
