package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptpit/promptpit/internal/cache"
	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/provider"
	"github.com/promptpit/promptpit/pkg/textextract"
)

var ErrSessionNotFound = errors.New("chat session not found")

// Service keeps chat conversations in redis keyed by session id. Sessions
// expire after the configured TTL of inactivity; there is no durable chat
// store.
type Service struct {
	cache     *cache.Cache
	gateway   llm.Gateway
	providers *provider.Service

	ttl             time.Duration
	maxContextTurns int
}

func NewService(c *cache.Cache, gw llm.Gateway, providers *provider.Service, cfg config.ChatConfig) *Service {
	ttl := time.Duration(cfg.HistoryTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	turns := cfg.MaxContextTurns
	if turns <= 0 {
		turns = 20
	}
	return &Service{cache: c, gateway: gw, providers: providers, ttl: ttl, maxContextTurns: turns}
}

func sessionKey(sessionID string) string {
	return "chat:session:" + sessionID
}

type StartRequest struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	SystemPrompt string `json:"system_prompt"`
}

func newConversation(sessionID, userID, systemPrompt string) *models.ChatConversation {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if userID == "" {
		userID = "default_user"
	}
	now := time.Now().UTC()
	return &models.ChatConversation{
		SessionID:    sessionID,
		UserID:       userID,
		SystemPrompt: systemPrompt,
		Messages:     []models.ChatMessage{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
}

func (s *Service) StartSession(ctx context.Context, req StartRequest) (*models.ChatConversation, error) {
	if req.SystemPrompt == "" {
		req.SystemPrompt = "You are a helpful AI assistant."
	}

	conv := newConversation(req.SessionID, req.UserID, req.SystemPrompt)
	if err := s.cache.Set(ctx, sessionKey(conv.SessionID), conv, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return conv, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.ChatConversation, error) {
	var conv models.ChatConversation
	err := s.cache.Get(ctx, sessionKey(sessionID), &conv)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &conv, nil
}

// ListSessions returns the live sessions for a user, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]models.ChatConversation, error) {
	keys, err := s.cache.Keys(ctx, sessionKey("*"))
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatConversation, 0, len(keys))
	for _, key := range keys {
		var conv models.ChatConversation
		if err := s.cache.Get(ctx, key, &conv); err != nil {
			// expired between SCAN and GET
			if errors.Is(err, cache.ErrMiss) {
				continue
			}
			return nil, fmt.Errorf("load session %s: %w", key, err)
		}
		if userID != "" && conv.UserID != userID {
			continue
		}
		out = append(out, conv)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return s.cache.Delete(ctx, sessionKey(sessionID))
}

// Attachment is an uploaded document riding along with a chat message.
type Attachment struct {
	Name string
	Data []byte
}

type SendRequest struct {
	SessionID    string   `json:"session_id"`
	UserID       string   `json:"user_id"`
	ProviderID   int64    `json:"provider_id"`
	ModelID      int64    `json:"model_id"`
	Message      string   `json:"message"`
	SystemPrompt string   `json:"system_prompt"`
	Images       []string `json:"images,omitempty"`
	Files        []Attachment
}

type SendResponse struct {
	SessionID string             `json:"session_id"`
	Message   models.ChatMessage `json:"message"`
	Usage     models.TokenUsage  `json:"usage"`
	CostUSD   float64            `json:"cost_usd"`
	LatencyMs int64              `json:"latency_ms"`
}

const documentPrefix = "Content extracted from documents:\n"

// inlineDocuments puts extracted attachment text ahead of the message for the
// model call. The stored history keeps the raw message.
func inlineDocuments(extracted, message string) string {
	if extracted == "" {
		return message
	}
	return documentPrefix + extracted + "\n\nUser prompt: " + message
}

// extractAttachments pulls text out of the uploaded documents and records
// their metadata for the stored message.
func extractAttachments(files []Attachment) (string, []models.FileMeta, error) {
	var parts []string
	var metas []models.FileMeta
	for _, f := range files {
		if !textextract.IsSupported(f.Name) {
			return "", nil, fmt.Errorf("unsupported file type: %s", f.Name)
		}
		text, err := textextract.ExtractBytes(f.Name, f.Data)
		if err != nil {
			return "", nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- %s ---\n%s", f.Name, text))
		}
		metas = append(metas, models.FileMeta{
			Name: f.Name,
			Size: int64(len(f.Data)),
			Type: filepath.Ext(f.Name),
		})
	}
	return strings.Join(parts, "\n\n"), metas, nil
}

// Send appends the user message, calls the model with the trimmed history,
// and stores the assistant reply back into the session. A missing or unknown
// session id starts a fresh session on the spot.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	var conv *models.ChatConversation
	if req.SessionID == "" {
		conv = newConversation("", req.UserID, req.SystemPrompt)
	} else {
		var err error
		conv, err = s.GetSession(ctx, req.SessionID)
		if errors.Is(err, ErrSessionNotFound) {
			conv = newConversation(req.SessionID, req.UserID, req.SystemPrompt)
		} else if err != nil {
			return nil, err
		}
	}
	if conv.SystemPrompt == "" {
		conv.SystemPrompt = "You are a helpful AI assistant. Continue the conversation naturally."
	}

	model, err := s.providers.GetModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}
	if model.ProviderID != req.ProviderID {
		return nil, fmt.Errorf("model does not belong to specified provider")
	}
	cred, err := s.providers.Credential(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	extracted, fileMetas, err := extractAttachments(req.Files)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conv.Messages = append(conv.Messages, models.ChatMessage{
		Role:      models.RoleUser,
		Content:   req.Message,
		Files:     fileMetas,
		Images:    req.Images,
		Timestamp: now,
	})

	messages := s.buildContext(conv)
	// The model call sees document text inlined into the current turn.
	messages[len(messages)-1].Content = inlineDocuments(extracted, req.Message)
	resp, err := s.gateway.Chat(ctx, cred, llm.ChatRequest{
		Model:       model.Name,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("chat call: %w", err)
	}

	reply := models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now().UTC(),
	}
	conv.Messages = append(conv.Messages, reply)
	conv.LastUpdated = reply.Timestamp

	if err := s.cache.Set(ctx, sessionKey(conv.SessionID), conv, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	slog.Info("chat message sent",
		"session_id", conv.SessionID,
		"model", model.Name,
		"tokens", resp.TotalTokens,
	)
	return &SendResponse{
		SessionID: conv.SessionID,
		Message:   reply,
		Usage: models.TokenUsage{
			Input:  resp.InputTokens,
			Output: resp.OutputTokens,
			Total:  resp.TotalTokens,
		},
		CostUSD:   resp.CostUSD,
		LatencyMs: resp.LatencyMs,
	}, nil
}

// buildContext converts the conversation into gateway messages, keeping only
// the most recent turns so long sessions stay inside the context window.
func (s *Service) buildContext(conv *models.ChatConversation) []llm.Message {
	history := conv.Messages
	if len(history) > s.maxContextTurns*2 {
		history = history[len(history)-s.maxContextTurns*2:]
	}

	out := make([]llm.Message, 0, len(history)+1)
	if conv.SystemPrompt != "" {
		out = append(out, llm.Message{Role: "system", Content: conv.SystemPrompt})
	}
	for _, m := range history {
		out = append(out, llm.Message{
			Role:      m.Role,
			Content:   m.Content,
			ImageURLs: m.Images,
		})
	}
	return out
}
