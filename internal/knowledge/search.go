package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/vectorstore"
)

// minRelevance filters out chunks that match the query only weakly.
const minRelevance = 0.3

// Search embeds the query and returns the closest chunks in the base.
func (s *Service) Search(ctx context.Context, kbID int64, query string, topK int) ([]vectorstore.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if _, err := s.GetBase(ctx, kbID); err != nil {
		return nil, err
	}

	cred, err := s.providers.CredentialByName(ctx, embeddingProvider)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	vec, err := s.embedder.EmbedSingle(ctx, cred, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return s.store.SimilaritySearch(ctx, vec, vectorstore.SearchOptions{
		KnowledgeBaseID: kbID,
		TopK:            topK,
		MinScore:        minRelevance,
	})
}

// RetrieveContext assembles retrieved chunks into a context block for prompt
// augmentation, with the source list for attribution.
func (s *Service) RetrieveContext(ctx context.Context, kbID int64, query string, topK int) (string, []models.RAGSource, error) {
	results, err := s.Search(ctx, kbID, query, topK)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	filenames, err := s.contentFilenames(ctx, results)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	sources := make([]models.RAGSource, 0, len(results))
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(r.Content)
		sources = append(sources, models.RAGSource{
			ContentID:  r.ContentID,
			ChunkIndex: r.ChunkIndex,
			Filename:   filenames[r.ContentID],
			Score:      r.Score,
		})
	}
	return b.String(), sources, nil
}

func (s *Service) contentFilenames(ctx context.Context, results []vectorstore.SearchResult) (map[int64]string, error) {
	ids := make([]int64, 0, len(results))
	seen := map[int64]struct{}{}
	for _, r := range results {
		if _, ok := seen[r.ContentID]; ok {
			continue
		}
		seen[r.ContentID] = struct{}{}
		ids = append(ids, r.ContentID)
	}

	rows, err := s.db.Query(ctx,
		"SELECT id, original_filename FROM knowledge_contents WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("lookup filenames: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		out[id] = name
	}
	return out, nil
}
