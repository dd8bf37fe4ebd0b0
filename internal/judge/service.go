package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/prompt"
	"github.com/promptpit/promptpit/internal/provider"
)

var ErrEvaluationNotFound = errors.New("evaluation not found")

// judgeTemperature is kept low so repeat evaluations of the same output are
// stable.
const judgeTemperature = 0.1

type Service struct {
	db        *pgxpool.Pool
	gateway   llm.Gateway
	providers *provider.Service
	prompts   *prompt.Service

	defaultScale int
	defaultModel string
}

func NewService(db *pgxpool.Pool, gw llm.Gateway, providers *provider.Service, prompts *prompt.Service, defaultScale int, defaultModel string) *Service {
	if defaultScale < 2 {
		defaultScale = 10
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &Service{db: db, gateway: gw, providers: providers, prompts: prompts, defaultScale: defaultScale, defaultModel: defaultModel}
}

type EvaluateRequest struct {
	OutputID        int64    `json:"output_id"`
	JudgeProviderID int64    `json:"judge_provider_id"`
	JudgeModelID    int64    `json:"judge_model_id"`
	Criteria        []string `json:"criteria,omitempty"`
	Scale           int      `json:"scale,omitempty"`
	JudgePrompt     string   `json:"judge_prompt,omitempty"`
	// ExplanationRequired defaults to true; when false the judge is asked
	// for a bare score and feedback may come back empty.
	ExplanationRequired *bool `json:"explanation_required,omitempty"`
}

// Evaluate scores a stored output with a judge model. Re-judging the same
// output appends a new evaluation rather than replacing the old one.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*models.Evaluation, error) {
	if req.Scale == 0 {
		req.Scale = s.defaultScale
	}

	out, err := s.prompts.GetOutput(ctx, req.OutputID)
	if err != nil {
		return nil, err
	}

	var promptText string
	if out.PromptID > 0 {
		p, err := s.prompts.GetByID(ctx, out.PromptID)
		if err != nil {
			return nil, err
		}
		promptText = p.Text
	}

	// Judge provider and model fall back to the default credential when the
	// caller does not pick one.
	modelName := s.defaultModel
	if req.JudgeModelID > 0 {
		model, err := s.providers.GetModel(ctx, req.JudgeModelID)
		if err != nil {
			return nil, err
		}
		modelName = model.Name
	}

	var cred llm.Credential
	if req.JudgeProviderID > 0 {
		cred, err = s.providers.Credential(ctx, req.JudgeProviderID)
	} else {
		cred, err = s.providers.CredentialByName(ctx, "openai")
	}
	if err != nil {
		return nil, err
	}

	explain := req.ExplanationRequired == nil || *req.ExplanationRequired
	judgePrompt := req.JudgePrompt
	if judgePrompt == "" {
		if explain {
			judgePrompt = BuildJudgePrompt(promptText, out.OutputText, req.Criteria, req.Scale)
		} else {
			judgePrompt = BuildScoreOnlyPrompt(promptText, out.OutputText, req.Criteria, req.Scale)
		}
	}

	resp, err := s.gateway.Chat(ctx, cred, llm.ChatRequest{
		Model: modelName,
		Messages: []llm.Message{
			{Role: "system", Content: "You are an impartial evaluator of AI-generated responses. Follow the requested output format exactly."},
			{Role: "user", Content: judgePrompt},
		},
		Temperature: judgeTemperature,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}

	score, feedback, err := ParseVerdict(resp.Content, req.Scale)
	if err != nil {
		return nil, fmt.Errorf("parse judge verdict: %w", err)
	}

	var criteriaJSON json.RawMessage
	if len(req.Criteria) > 0 {
		criteriaJSON, err = json.Marshal(req.Criteria)
		if err != nil {
			return nil, fmt.Errorf("marshal criteria: %w", err)
		}
	}

	var judgeProviderID, judgeModelID *int64
	if req.JudgeProviderID > 0 {
		judgeProviderID = &req.JudgeProviderID
	}
	if req.JudgeModelID > 0 {
		judgeModelID = &req.JudgeModelID
	}

	var ev models.Evaluation
	err = s.db.QueryRow(ctx,
		`INSERT INTO evaluations (output_id, judge_provider_id, judge_model_id, judge_prompt, score, feedback, criteria)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, output_id, judge_provider_id, judge_model_id, judge_prompt, score, feedback, criteria, created_at`,
		req.OutputID, judgeProviderID, judgeModelID, judgePrompt, score, feedback, criteriaJSON,
	).Scan(&ev.ID, &ev.OutputID, &ev.JudgeProviderID, &ev.JudgeModelID, &ev.JudgePrompt,
		&ev.Score, &ev.Feedback, &ev.Criteria, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}

	slog.Info("output evaluated",
		"output_id", req.OutputID,
		"judge_model", modelName,
		"score", score,
		"scale", req.Scale,
	)
	return &ev, nil
}

// BuildJudgePrompt renders the default evaluation instruction. Criteria are
// optional; with none, the judge scores overall quality.
func BuildJudgePrompt(promptText, outputText string, criteria []string, scale int) string {
	var b strings.Builder
	writeJudgeBody(&b, promptText, outputText, criteria, scale)
	fmt.Fprintf(&b, "Respond in exactly this format:\nSCORE: <number between 1 and %d>\nFEEDBACK: <concise explanation of the score>", scale)
	return b.String()
}

// BuildScoreOnlyPrompt is the variant used when the caller does not want
// written feedback.
func BuildScoreOnlyPrompt(promptText, outputText string, criteria []string, scale int) string {
	var b strings.Builder
	writeJudgeBody(&b, promptText, outputText, criteria, scale)
	fmt.Fprintf(&b, "Respond in exactly this format:\nSCORE: <number between 1 and %d>", scale)
	return b.String()
}

func writeJudgeBody(b *strings.Builder, promptText, outputText string, criteria []string, scale int) {
	fmt.Fprintf(b, "Evaluate the following AI response on a scale of 1 to %d.\n\n", scale)

	if len(criteria) > 0 {
		b.WriteString("Evaluation criteria:\n")
		for _, c := range criteria {
			fmt.Fprintf(b, "- %s\n", c)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Judge overall quality: accuracy, relevance, clarity, and completeness.\n\n")
	}

	if promptText != "" {
		fmt.Fprintf(b, "Original prompt:\n%s\n\n", promptText)
	}
	fmt.Fprintf(b, "Response to evaluate:\n%s\n\n", outputText)
}

type ListFilter struct {
	OutputID        int64
	PromptID        int64
	JudgeProviderID int64
	// Score bounds are ignored when zero; evaluation scores are never negative.
	MinScore float64
	MaxScore float64
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Evaluation, error) {
	q := `SELECT e.id, e.output_id, e.judge_provider_id, e.judge_model_id, e.judge_prompt,
	             e.score, e.feedback, e.criteria, e.created_at
	      FROM evaluations e`
	var args []any
	if f.PromptID > 0 {
		q += " JOIN outputs o ON o.id = e.output_id"
	}
	q += " WHERE 1=1"
	if f.OutputID > 0 {
		args = append(args, f.OutputID)
		q += fmt.Sprintf(" AND e.output_id = $%d", len(args))
	}
	if f.PromptID > 0 {
		args = append(args, f.PromptID)
		q += fmt.Sprintf(" AND o.prompt_id = $%d", len(args))
	}
	if f.JudgeProviderID > 0 {
		args = append(args, f.JudgeProviderID)
		q += fmt.Sprintf(" AND e.judge_provider_id = $%d", len(args))
	}
	if f.MinScore > 0 {
		args = append(args, f.MinScore)
		q += fmt.Sprintf(" AND e.score >= $%d", len(args))
	}
	if f.MaxScore > 0 {
		args = append(args, f.MaxScore)
		q += fmt.Sprintf(" AND e.score <= $%d", len(args))
	}
	q += " ORDER BY e.created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []models.Evaluation
	for rows.Next() {
		var ev models.Evaluation
		if err := rows.Scan(&ev.ID, &ev.OutputID, &ev.JudgeProviderID, &ev.JudgeModelID,
			&ev.JudgePrompt, &ev.Score, &ev.Feedback, &ev.Criteria, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Evaluation, error) {
	var ev models.Evaluation
	err := s.db.QueryRow(ctx,
		`SELECT id, output_id, judge_provider_id, judge_model_id, judge_prompt, score, feedback, criteria, created_at
		 FROM evaluations WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.OutputID, &ev.JudgeProviderID, &ev.JudgeModelID, &ev.JudgePrompt,
		&ev.Score, &ev.Feedback, &ev.Criteria, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return &ev, nil
}
