package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports dependency status plus entity counts, for the dashboard's
// status widget.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}

	if err := h.db.Ping(r.Context()); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = "unhealthy: " + err.Error()
	} else {
		resp["database"] = "ok"

		counts := map[string]int64{}
		for entity, table := range map[string]string{
			"providers":       "providers",
			"prompts":         "prompts",
			"experiments":     "experiments",
			"model_cards":     "model_cards",
			"knowledge_bases": "knowledge_bases",
		} {
			var n int64
			if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM "+table).Scan(&n); err == nil {
				counts[entity] = n
			}
		}
		resp["counts"] = counts
	}

	if err := h.redis.Ping(r.Context()).Err(); err != nil {
		resp["redis"] = "unhealthy: " + err.Error()
	} else {
		resp["redis"] = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
			break
		}
	}
	writeJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
}
