package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/promptpit/promptpit/internal/models"
)

// SearchResult is one chunk returned from similarity search, scored by
// cosine similarity in [0,1].
type SearchResult struct {
	ChunkID    uuid.UUID       `json:"chunk_id"`
	ContentID  int64           `json:"content_id"`
	ChunkIndex int             `json:"chunk_index"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Score      float64         `json:"score"`
}

type SearchOptions struct {
	KnowledgeBaseID int64
	TopK            int
	MinScore        float64
}

// Store persists knowledge-base content chunks and their embeddings in
// Postgres via pgvector.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Upsert(ctx context.Context, chunks []models.ContentChunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		embedding := pgvector.NewVector(c.Embedding)

		_, err := tx.Exec(ctx,
			`INSERT INTO content_chunks (id, content_id, knowledge_base_id, chunk_index, content, embedding, token_count, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET content = $5, embedding = $6, token_count = $7, metadata = $8`,
			id, c.ContentID, c.KnowledgeBaseID, c.ChunkIndex, c.Content, embedding, c.TokenCount, c.Metadata,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT id, content_id, chunk_index, content, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM content_chunks
		 WHERE knowledge_base_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, opts.KnowledgeBaseID, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.ContentID, &r.ChunkIndex, &r.Content, &r.Metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if opts.MinScore > 0 && r.Score < opts.MinScore {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// DeleteByContent removes all chunks for one content item.
func (s *Store) DeleteByContent(ctx context.Context, contentID int64) error {
	_, err := s.db.Exec(ctx, "DELETE FROM content_chunks WHERE content_id = $1", contentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}
