package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolvane/toolvane/internal/cache"
	"github.com/toolvane/toolvane/internal/metrics"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/store"
)

// ToolHandler handles HTTP requests for the tool catalog.
type ToolHandler struct {
	store   *store.Store
	cache   *cache.Cache // optional, nil without Redis
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewToolHandler creates a ToolHandler.
func NewToolHandler(st *store.Store, c *cache.Cache, recorder metrics.Recorder, logger *slog.Logger) *ToolHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ToolHandler{
		store:   st,
		cache:   c,
		metrics: recorder,
		logger:  logger,
	}
}

// List handles GET /api/tools.
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.ToolFilter{
		Category: query.Get("category"),
		Type:     query.Get("type"),
		Status:   model.ToolStatus(query.Get("status")),
		Search:   query.Get("search"),
	}

	tools, err := h.store.ListTools(r.Context(), filter)
	if err != nil {
		h.logger.Error("list tools failed", "error", err)
		writeStoreError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"data": tools, "total": len(tools)})
}

// Get handles GET /api/tools/{id}.
func (h *ToolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if h.cache != nil {
		if neg, err := h.cache.IsNegativelyCached(ctx, id); err == nil && neg {
			h.metrics.IncToolCacheHit()
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		if tool, err := h.cache.GetTool(ctx, id); err == nil {
			h.metrics.IncToolCacheHit()
			writeSuccess(w, http.StatusOK, envelope{"data": tool})
			return
		}
		h.metrics.IncToolCacheMiss()
	}

	tool, err := h.store.GetTool(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) && h.cache != nil {
			_ = h.cache.SetNegativeCache(ctx, id)
		}
		writeStoreError(w, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetTool(ctx, tool)
	}
	writeSuccess(w, http.StatusOK, envelope{"data": tool})
}

// Create handles POST /api/tools.
func (h *ToolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tool model.Tool
	if err := json.NewDecoder(r.Body).Decode(&tool); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.store.AddTool(r.Context(), &tool)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.metrics.IncToolCreated()
	h.logger.Info("tool created", "tool_id", created.ID, "name", created.Name)
	writeSuccess(w, http.StatusCreated, envelope{"tool": created})
}

// Update handles PUT /api/tools/{id}. The body is a partial document;
// absent fields keep their stored values.
func (h *ToolHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tool, err := h.store.UpdateTool(r.Context(), id, partial)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.InvalidateTool(r.Context(), id)
	}
	h.metrics.IncToolUpdated()
	writeSuccess(w, http.StatusOK, envelope{"tool": tool})
}

// Delete handles DELETE /api/tools/{id}.
func (h *ToolHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteTool(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.InvalidateTool(r.Context(), id)
	}
	h.metrics.IncToolDeleted()
	writeSuccess(w, http.StatusOK, envelope{})
}

// Trending handles GET /api/tools/trending. The list comes from the
// latest hourly snapshot; before the first run it is empty, not an
// error.
func (h *ToolHandler) Trending(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.LatestTrending(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeSuccess(w, http.StatusOK, envelope{"data": []model.RankedTool{}})
			return
		}
		writeStoreError(w, err)
		return
	}

	rows := snapshot.Tools
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]model.RankedTool, 0, len(rows))
		for _, row := range rows {
			tool, err := h.store.GetTool(r.Context(), row.ToolID)
			if err != nil {
				continue
			}
			if tool.Category == category {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	writeSuccess(w, http.StatusOK, envelope{
		"data":         rows,
		"generated_at": snapshot.GeneratedAt,
	})
}

// Recommendation policy: a category-filtered slice of the active
// catalog, capped and tagged with a fixed confidence.
const (
	recommendationLimit      = 6
	recommendationAlgorithm  = "category_based"
	recommendationConfidence = 0.85
)

// Recommend handles POST /api/recommendations. An empty category
// recommends across the whole active catalog.
func (h *ToolHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tools, err := h.store.ListTools(r.Context(), model.ToolFilter{
		Category: req.Category,
		Status:   model.ToolStatusActive,
	})
	if err != nil {
		h.logger.Error("recommendations failed", "category", req.Category, "error", err)
		writeStoreError(w, err)
		return
	}
	if len(tools) > recommendationLimit {
		tools = tools[:recommendationLimit]
	}

	writeSuccess(w, http.StatusOK, envelope{
		"tools":             tools,
		"recommendation_id": h.store.NewID("rec"),
		"algorithm":         recommendationAlgorithm,
		"confidence":        recommendationConfidence,
	})
}
