package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/promptpit/promptpit/internal/api/handlers"
	"github.com/promptpit/promptpit/internal/api/middleware"
	"github.com/promptpit/promptpit/internal/cache"
	"github.com/promptpit/promptpit/internal/chat"
	"github.com/promptpit/promptpit/internal/config"
	"github.com/promptpit/promptpit/internal/embedding"
	"github.com/promptpit/promptpit/internal/experiment"
	"github.com/promptpit/promptpit/internal/judge"
	"github.com/promptpit/promptpit/internal/knowledge"
	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/modelcard"
	"github.com/promptpit/promptpit/internal/prompt"
	"github.com/promptpit/promptpit/internal/provider"
	"github.com/promptpit/promptpit/internal/queue"
	"github.com/promptpit/promptpit/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	tasks *queue.Client
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, tasks *queue.Client) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		tasks: tasks,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(strings.Split(rt.cfg.Server.AllowedOrigins, ",")))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	gateway := llm.NewGateway(rt.cfg.LLM)
	providerSvc := provider.NewService(rt.db, gateway)
	promptSvc := prompt.NewService(rt.db)
	embedder := embedding.NewService(gateway, rt.cfg.LLM.EmbeddingModel)
	store := vectorstore.NewStore(rt.db)
	knowledgeSvc := knowledge.NewService(rt.db, embedder, store, providerSvc, rt.tasks)
	runner := prompt.NewRunner(rt.db, gateway, providerSvc, knowledgeSvc)
	judgeSvc := judge.NewService(rt.db, gateway, providerSvc, promptSvc, rt.cfg.Judge.DefaultScale, rt.cfg.Judge.DefaultModel)
	experimentSvc := experiment.NewService(rt.db, rt.tasks)
	cardSvc := modelcard.NewService(rt.db)
	chatSvc := chat.NewService(cache.NewCache(rt.redis), gateway, providerSvc, rt.cfg.Chat)

	providerH := handlers.NewProviderHandler(providerSvc)
	promptH := handlers.NewPromptHandler(promptSvc, runner, rt.cfg.Upload)
	judgeH := handlers.NewJudgeHandler(judgeSvc)
	experimentH := handlers.NewExperimentHandler(experimentSvc)
	cardH := handlers.NewModelCardHandler(cardSvc)
	knowledgeH := handlers.NewKnowledgeHandler(knowledgeSvc, rt.cfg.Upload)
	chatH := handlers.NewChatHandler(chatSvc, rt.cfg.Upload)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)
		r.Get("/supported-file-types", promptH.SupportedFileTypes)

		r.Route("/providers", func(r chi.Router) {
			r.Post("/", providerH.Add)
			r.Get("/", providerH.List)
			r.Get("/status", providerH.Status)
			r.Get("/available", providerH.Status)
			r.Get("/{id}", providerH.Get)
			r.Put("/{id}/api-key", providerH.UpdateKey)
			r.Delete("/{id}/api-key", providerH.ClearKey)
			r.Delete("/{id}", providerH.Deactivate)
			r.Delete("/{id}/permanent", providerH.PermanentDelete)
			r.Put("/{id}/refresh-models", providerH.RefreshModels)
		})

		r.Get("/models", providerH.ListModels)

		r.Post("/run", promptH.Run)

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", promptH.Create)
			r.Get("/", promptH.List)
			r.Get("/with-versions", promptH.ListWithVersions)
			r.Post("/create-and-lock", promptH.CreateAndLock)
			r.Post("/import", promptH.Import)
			r.Get("/{id}", promptH.Get)
			r.Put("/{id}", promptH.Update)
			r.Delete("/{id}", promptH.Delete)
			r.Post("/{id}/duplicate", promptH.Duplicate)
			r.Post("/{id}/lock", promptH.Lock)
			r.Get("/{id}/versions", promptH.ListVersions)
			r.Post("/{id}/versions", promptH.Lock)
			r.Get("/{id}/versions/{version}", promptH.GetVersion)
			r.Post("/{id}/versions/{version}/restore", promptH.RestoreVersion)
			r.Delete("/{id}/versions/{version}", promptH.DeleteVersion)
			r.Get("/{id}/outputs", promptH.ListOutputs)
			r.Get("/{id}/export", promptH.Export)
		})

		r.Get("/outputs/{id}", promptH.GetOutput)

		r.Post("/judge", judgeH.Evaluate)
		r.Get("/evaluations", judgeH.List)
		r.Get("/evaluations/{id}", judgeH.Get)

		r.Route("/experiments", func(r chi.Router) {
			r.Post("/", experimentH.Create)
			r.Get("/", experimentH.List)
			r.Get("/{id}", experimentH.Get)
			r.Put("/{id}", experimentH.Update)
			r.Post("/{id}/start", experimentH.Start)
			r.Delete("/{id}", experimentH.Delete)
			r.Get("/{id}/cycles", experimentH.ListCycles)
			r.Post("/{id}/cycles", experimentH.CreateCycle)
		})

		r.Route("/model-cards", func(r chi.Router) {
			r.Post("/", cardH.Create)
			r.Post("/generate", cardH.GenerateNew)
			r.Get("/", cardH.List)
			r.Get("/{id}", cardH.Get)
			r.Put("/{id}", cardH.Update)
			r.Delete("/{id}", cardH.Delete)
			r.Post("/{id}/generate", cardH.Generate)
			r.Post("/{id}/publish", cardH.Publish)
			r.Post("/{id}/archive", cardH.Archive)
			r.Post("/{id}/export", cardH.Export)
		})

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Post("/", knowledgeH.CreateBase)
			r.Get("/", knowledgeH.ListBases)
			r.Get("/{id}", knowledgeH.GetBase)
			r.Put("/{id}", knowledgeH.UpdateBase)
			r.Delete("/{id}", knowledgeH.DeleteBase)
			r.Post("/{id}/contents", knowledgeH.AddContent)
			r.Get("/{id}/contents", knowledgeH.ListContents)
			r.Post("/{id}/search", knowledgeH.Search)
			r.Get("/{id}/preview", knowledgeH.Preview)
		})

		r.Get("/contents/{id}", knowledgeH.GetContent)
		r.Delete("/contents/{id}", knowledgeH.DeleteContent)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/sessions", chatH.StartSession)
			r.Get("/sessions", chatH.ListSessions)
			r.Get("/sessions/{session_id}", chatH.GetSession)
			r.Delete("/sessions/{session_id}", chatH.DeleteSession)
			r.Post("/sessions/{session_id}/messages", chatH.Send)
			// Sessionless send: starts a session and returns its id.
			r.Post("/messages", chatH.Send)
		})
	})

	return r
}
