package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/pkg/chunker"
)

// embeddingProvider is the vendor whose key funds embedding calls.
const embeddingProvider = "openai"

// ProcessContent runs the ingestion pipeline for one content item: chunk the
// extracted text, embed the chunks, and store the vectors. Called from the
// worker; the item moves pending -> processing -> completed or failed.
func (s *Service) ProcessContent(ctx context.Context, contentID int64) error {
	c, err := s.GetContent(ctx, contentID)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE knowledge_contents SET processing_status = $1, error = '' WHERE id = $2",
		models.ContentProcessing, contentID,
	); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := s.process(ctx, c); err != nil {
		s.markFailed(ctx, contentID, err)
		return err
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE knowledge_contents SET processing_status = $1 WHERE id = $2",
		models.ContentCompleted, contentID,
	); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *Service) process(ctx context.Context, c *models.KnowledgeContent) error {
	cred, err := s.providers.CredentialByName(ctx, embeddingProvider)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	chunks := chunker.Split(c.ExtractedText, chunker.DefaultOptions())
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from extracted text")
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	vectors, err := s.embedder.Embed(ctx, cred, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	rows := make([]models.ContentChunk, len(chunks))
	for i, ch := range chunks {
		rows[i] = models.ContentChunk{
			ID:              uuid.New(),
			ContentID:       c.ID,
			KnowledgeBaseID: c.KnowledgeBaseID,
			ChunkIndex:      ch.Index,
			Content:         ch.Content,
			Embedding:       vectors[i],
			TokenCount:      chunker.EstimateTokens(ch.Content),
		}
	}

	// Reprocessing replaces the old vectors instead of appending to them.
	if err := s.store.DeleteByContent(ctx, c.ID); err != nil {
		return fmt.Errorf("clear old chunks: %w", err)
	}
	if err := s.store.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	if err := s.updateSummary(ctx, c); err != nil {
		return err
	}

	slog.Info("content processed",
		"content_id", c.ID,
		"knowledge_base_id", c.KnowledgeBaseID,
		"chunks", len(rows),
	)
	return nil
}

// truncateSummary cuts text to at most limit runes, backing up to a word
// boundary. Cutting on runes keeps multi-byte text valid.
func truncateSummary(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// updateSummary stores a short preview of the extracted text. A cheap
// truncation rather than an LLM summary keeps ingestion free of chat spend.
func (s *Service) updateSummary(ctx context.Context, c *models.KnowledgeContent) error {
	summary := truncateSummary(c.ExtractedText, 280)
	if _, err := s.db.Exec(ctx,
		"UPDATE knowledge_contents SET summary = $1 WHERE id = $2", summary, c.ID,
	); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, contentID int64, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.db.Exec(ctx,
		"UPDATE knowledge_contents SET processing_status = $1, error = $2 WHERE id = $3",
		models.ContentFailed, cause.Error(), contentID,
	); err != nil {
		slog.Error("failed to mark content failed", "content_id", contentID, "error", err)
	}
}
