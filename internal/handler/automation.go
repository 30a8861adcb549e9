package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toolvane/toolvane/internal/automation"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/scheduler"
	"github.com/toolvane/toolvane/internal/store"
)

// AutomationHandler exposes rules, job execution, reports, and
// settings.
type AutomationHandler struct {
	store            *store.Store
	sched            *scheduler.Scheduler
	engine           *automation.Engine
	settingsDefaults model.Settings
	logger           *slog.Logger
}

// NewAutomationHandler creates an AutomationHandler.
func NewAutomationHandler(st *store.Store, sched *scheduler.Scheduler, engine *automation.Engine, defaults model.Settings, logger *slog.Logger) *AutomationHandler {
	return &AutomationHandler{
		store:            st,
		sched:            sched,
		engine:           engine,
		settingsDefaults: defaults,
		logger:           logger,
	}
}

// ListRules handles GET /api/automation/rules.
func (h *AutomationHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"rules": rules})
}

// UpdateRule handles PUT /api/automation/rules/{id}.
func (h *AutomationHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.store.UpdateRule(r.Context(), id, partial)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("automation rule updated", "rule_id", id, "enabled", rule.Enabled)
	writeSuccess(w, http.StatusOK, envelope{"rule": rule})
}

// Execute handles POST /api/automation/execute/{taskName}. The job
// runs synchronously; an unknown task name is a client error.
func (h *AutomationHandler) Execute(w http.ResponseWriter, r *http.Request) {
	taskName := chi.URLParam(r, "taskName")

	if err := h.sched.Trigger(r.Context(), taskName); err != nil {
		h.logger.Warn("task execution failed", "task", taskName, "error", err)
		writeStoreError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"result": "task " + taskName + " completed"})
}

// JobStatus handles GET /api/automation/jobs.
func (h *AutomationHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{"jobs": h.sched.Status()})
}

// ListReports handles GET /api/reports?type&limit.
func (h *AutomationHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	reports, err := h.store.ListReports(r.Context(), query.Get("type"), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"reports": reports})
}

// GenerateReport handles POST /api/reports/generate.
func (h *AutomationHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		Days int    `json:"days"`
	}
	// An empty body generates the default custom report.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Type == "" {
		req.Type = model.ReportTypeCustom
	}
	if req.Days <= 0 {
		req.Days = defaultPeriodDays
	}

	report, err := h.engine.GenerateReport(r.Context(), req.Type, req.Days)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("report generated", "report_id", report.ID, "type", report.Type)
	writeSuccess(w, http.StatusOK, envelope{"report": report})
}

// GetSettings handles GET /api/settings.
func (h *AutomationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context(), h.settingsDefaults)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"settings": settings})
}

// UpdateSettings handles PUT /api/settings.
func (h *AutomationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), h.settingsDefaults, partial)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("settings updated")
	writeSuccess(w, http.StatusOK, envelope{"settings": settings})
}
