package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ContentPending    = "pending"
	ContentProcessing = "processing"
	ContentCompleted  = "completed"
	ContentFailed     = "failed"
)

const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeDocument = "document"
	ContentTypeUnified  = "unified"
)

// KnowledgeBase is a named document collection searched for RAG context.
type KnowledgeBase struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	ContentCount int `json:"content_count" db:"-"`
}

// KnowledgeContent is one ingested item. Processing runs in the worker:
// pending -> processing -> completed or failed.
type KnowledgeContent struct {
	ID               int64     `json:"id" db:"id"`
	KnowledgeBaseID  int64     `json:"knowledge_base_id" db:"knowledge_base_id"`
	ContentType      string    `json:"content_type" db:"content_type"`
	OriginalFilename string    `json:"original_filename,omitempty" db:"original_filename"`
	Summary          string    `json:"summary,omitempty" db:"summary"`
	ProcessingStatus string    `json:"processing_status" db:"processing_status"`
	ExtractedText    string    `json:"extracted_text,omitempty" db:"extracted_text"`
	Error            string    `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// RAGSource identifies one chunk that contributed to retrieved context.
type RAGSource struct {
	ContentID  int64   `json:"content_id"`
	ChunkIndex int     `json:"chunk_index"`
	Filename   string  `json:"filename,omitempty"`
	Score      float64 `json:"score"`
}

// ContentChunk is an embedded slice of extracted text, stored in pgvector.
type ContentChunk struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ContentID       int64           `json:"content_id" db:"content_id"`
	KnowledgeBaseID int64           `json:"knowledge_base_id" db:"knowledge_base_id"`
	ChunkIndex      int             `json:"chunk_index" db:"chunk_index"`
	Content         string          `json:"content" db:"content"`
	Embedding       []float32       `json:"-" db:"embedding"`
	TokenCount      int             `json:"token_count" db:"token_count"`
	Metadata        json.RawMessage `json:"metadata,omitempty" db:"metadata"`
}
