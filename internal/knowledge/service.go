package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/embedding"
	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/provider"
	"github.com/promptpit/promptpit/internal/vectorstore"
	"github.com/promptpit/promptpit/pkg/textextract"
)

var (
	ErrNotFound        = errors.New("knowledge base not found")
	ErrContentNotFound = errors.New("content not found")
)

// Enqueuer schedules content processing onto the background worker.
type Enqueuer interface {
	EnqueueContentProcess(ctx context.Context, contentID int64) error
}

type Service struct {
	db        *pgxpool.Pool
	embedder  *embedding.Service
	store     *vectorstore.Store
	providers *provider.Service
	enqueuer  Enqueuer
}

func NewService(db *pgxpool.Pool, embedder *embedding.Service, store *vectorstore.Store, providers *provider.Service, enqueuer Enqueuer) *Service {
	return &Service{db: db, embedder: embedder, store: store, providers: providers, enqueuer: enqueuer}
}

type CreateBaseRequest struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) CreateBase(ctx context.Context, req CreateBaseRequest) (*models.KnowledgeBase, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("knowledge base name is required")
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}

	var kb models.KnowledgeBase
	err := s.db.QueryRow(ctx,
		`INSERT INTO knowledge_bases (user_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, name, description, created_at, updated_at`,
		req.UserID, req.Name, req.Description,
	).Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.Description, &kb.CreatedAt, &kb.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert knowledge base: %w", err)
	}
	return &kb, nil
}

func (s *Service) GetBase(ctx context.Context, id int64) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	err := s.db.QueryRow(ctx,
		`SELECT kb.id, kb.user_id, kb.name, kb.description, kb.created_at, kb.updated_at,
		        (SELECT COUNT(*) FROM knowledge_contents c WHERE c.knowledge_base_id = kb.id)
		 FROM knowledge_bases kb WHERE kb.id = $1`, id,
	).Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.Description, &kb.CreatedAt, &kb.UpdatedAt, &kb.ContentCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge base: %w", err)
	}
	return &kb, nil
}

func (s *Service) ListBases(ctx context.Context, userID string) ([]models.KnowledgeBase, error) {
	q := `SELECT kb.id, kb.user_id, kb.name, kb.description, kb.created_at, kb.updated_at,
	             (SELECT COUNT(*) FROM knowledge_contents c WHERE c.knowledge_base_id = kb.id)
	      FROM knowledge_bases kb`
	var args []any
	if userID != "" {
		q += " WHERE kb.user_id = $1"
		args = append(args, userID)
	}
	q += " ORDER BY kb.created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge bases: %w", err)
	}
	defer rows.Close()

	var out []models.KnowledgeBase
	for rows.Next() {
		var kb models.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.Description,
			&kb.CreatedAt, &kb.UpdatedAt, &kb.ContentCount); err != nil {
			return nil, fmt.Errorf("scan knowledge base: %w", err)
		}
		out = append(out, kb)
	}
	return out, nil
}

func (s *Service) UpdateBase(ctx context.Context, id int64, req CreateBaseRequest) (*models.KnowledgeBase, error) {
	kb, err := s.GetBase(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = kb.Name
	}

	_, err = s.db.Exec(ctx,
		"UPDATE knowledge_bases SET name = $1, description = $2, updated_at = now() WHERE id = $3",
		req.Name, req.Description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update knowledge base: %w", err)
	}
	return s.GetBase(ctx, id)
}

// DeleteBase removes a knowledge base with its contents and vectors.
func (s *Service) DeleteBase(ctx context.Context, id int64) error {
	if _, err := s.GetBase(ctx, id); err != nil {
		return err
	}
	// content_chunks cascade from knowledge_contents, which cascade from the base
	if _, err := s.db.Exec(ctx, "DELETE FROM knowledge_bases WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete knowledge base: %w", err)
	}
	return nil
}

type AddContentRequest struct {
	KnowledgeBaseID int64
	ContentType     string
	Filename        string
	Data            []byte
	Text            string // raw text content, used when no file is uploaded
}

// AddContent stores an uploaded item and enqueues it for processing. Text
// extraction, chunking, and embedding all happen in the worker; the item is
// returned immediately in pending state.
func (s *Service) AddContent(ctx context.Context, req AddContentRequest) (*models.KnowledgeContent, error) {
	if _, err := s.GetBase(ctx, req.KnowledgeBaseID); err != nil {
		return nil, err
	}

	var extracted string
	switch {
	case req.Text != "":
		if req.ContentType == "" {
			req.ContentType = models.ContentTypeText
		}
		extracted = req.Text
	case len(req.Data) > 0:
		if !textextract.IsSupported(req.Filename) {
			return nil, fmt.Errorf("unsupported file type: %s", req.Filename)
		}
		if req.ContentType == "" {
			req.ContentType = models.ContentTypeDocument
		}
		text, err := textextract.ExtractBytes(req.Filename, req.Data)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", req.Filename, err)
		}
		extracted = text
	default:
		return nil, fmt.Errorf("either a file or text content is required")
	}

	if strings.TrimSpace(extracted) == "" {
		return nil, fmt.Errorf("no text could be extracted from the content")
	}

	var c models.KnowledgeContent
	err := s.db.QueryRow(ctx,
		`INSERT INTO knowledge_contents (knowledge_base_id, content_type, original_filename, extracted_text, processing_status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, knowledge_base_id, content_type, original_filename, summary, processing_status, extracted_text, error, created_at`,
		req.KnowledgeBaseID, req.ContentType, req.Filename, extracted, models.ContentPending,
	).Scan(&c.ID, &c.KnowledgeBaseID, &c.ContentType, &c.OriginalFilename, &c.Summary,
		&c.ProcessingStatus, &c.ExtractedText, &c.Error, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}

	if err := s.enqueuer.EnqueueContentProcess(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("enqueue content processing: %w", err)
	}
	return &c, nil
}

const contentColumns = `id, knowledge_base_id, content_type, original_filename, summary,
	processing_status, extracted_text, error, created_at`

func (s *Service) GetContent(ctx context.Context, id int64) (*models.KnowledgeContent, error) {
	var c models.KnowledgeContent
	err := s.db.QueryRow(ctx,
		"SELECT "+contentColumns+" FROM knowledge_contents WHERE id = $1", id,
	).Scan(&c.ID, &c.KnowledgeBaseID, &c.ContentType, &c.OriginalFilename, &c.Summary,
		&c.ProcessingStatus, &c.ExtractedText, &c.Error, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return &c, nil
}

func (s *Service) ListContents(ctx context.Context, kbID int64) ([]models.KnowledgeContent, error) {
	if _, err := s.GetBase(ctx, kbID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+contentColumns+" FROM knowledge_contents WHERE knowledge_base_id = $1 ORDER BY created_at DESC", kbID)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var out []models.KnowledgeContent
	for rows.Next() {
		var c models.KnowledgeContent
		if err := rows.Scan(&c.ID, &c.KnowledgeBaseID, &c.ContentType, &c.OriginalFilename, &c.Summary,
			&c.ProcessingStatus, &c.ExtractedText, &c.Error, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) DeleteContent(ctx context.Context, id int64) error {
	c, err := s.GetContent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteByContent(ctx, c.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := s.db.Exec(ctx, "DELETE FROM knowledge_contents WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}
