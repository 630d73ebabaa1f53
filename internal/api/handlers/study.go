package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/api/models"
	"energy-sizing/internal/config"
	"energy-sizing/internal/model"
	"energy-sizing/internal/solver"
	"energy-sizing/internal/store"
	"energy-sizing/internal/study"
)

// StudyHandler handles study-related requests
type StudyHandler struct {
	base        config.Config
	scenarioDir string
	cache       *study.Cache
	store       *store.Store
	logger      zerolog.Logger
}

// NewStudyHandler creates a new study handler. cache and st may be nil.
func NewStudyHandler(base config.Config, scenarioDir string, cache *study.Cache, st *store.Store, logger zerolog.Logger) *StudyHandler {
	return &StudyHandler{base: base, scenarioDir: scenarioDir, cache: cache, store: st, logger: logger}
}

func errorJSON(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

// studyError maps a failed study to a response: input problems are the caller's fault.
func studyError(c *gin.Context, err error) {
	if model.IsKind(err, model.KindInput) {
		errorJSON(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}
	errorJSON(c, http.StatusInternalServerError, "STUDY_ERROR", err)
}

// RunStudy handles POST /api/v1/studies
func (h *StudyHandler) RunStudy(c *gin.Context) {
	var req models.StudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	out, err := h.run(c, req, req.Scenario, req.Overrides)
	if err != nil {
		studyError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewStudyResponse(out, req.Options.IncludeLedger))
}

// GetStudy handles GET /api/v1/studies/:id
func (h *StudyHandler) GetStudy(c *gin.Context) {
	id := c.Param("id")
	if out, ok := h.cache.Get(id); ok {
		c.JSON(http.StatusOK, models.NewStudyResponse(out, false))
		return
	}
	out, err := h.store.LoadStudy(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, models.NewStudyResponse(out, false))
}

// GetDispatch handles GET /api/v1/studies/:id/dispatch (?format=csv for a CSV download)
func (h *StudyHandler) GetDispatch(c *gin.Context) {
	id := c.Param("id")
	var ledger []study.DispatchRow
	if out, ok := h.cache.Get(id); ok {
		ledger = out.Ledger
	} else {
		rows, err := h.store.LoadDispatch(c.Request.Context(), id)
		if err != nil {
			h.lookupError(c, id, err)
			return
		}
		if rows == nil {
			// archived outcome without ledger, or unknown id
			if _, err := h.store.LoadStudy(c.Request.Context(), id); err != nil {
				h.lookupError(c, id, err)
				return
			}
		}
		ledger = rows
	}
	if ledger == nil {
		ledger = []study.DispatchRow{}
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"_dispatch.csv"))
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := study.WriteDispatchCSV(c.Writer, ledger); err != nil {
			h.logger.Error().Err(err).Str("study", id).Msg("failed to write dispatch csv")
		}
		return
	}
	c.JSON(http.StatusOK, models.DispatchResponse{ID: id, Ledger: ledger})
}

// ListStudies handles GET /api/v1/studies (?limit=N), listing archived studies
func (h *StudyHandler) ListStudies(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Errorf("limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	rows, err := h.store.ListStudies(c.Request.Context(), limit)
	if errors.Is(err, store.ErrDisabled) {
		errorJSON(c, http.StatusNotImplemented, "STORE_DISABLED", errors.New("study archive is not configured"))
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	if rows == nil {
		rows = []store.StudyRow{}
	}
	c.JSON(http.StatusOK, models.StudyListResponse{Studies: rows})
}

func (h *StudyHandler) lookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, store.ErrDisabled) || errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", fmt.Errorf("study %s not found", id))
		return
	}
	errorJSON(c, http.StatusInternalServerError, "STORE_ERROR", err)
}

// CompareStudies handles POST /api/v1/studies/compare
func (h *StudyHandler) CompareStudies(c *gin.Context) {
	var req models.CompareStudiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	byName := map[string]*analysis.Report{}
	results := map[string]models.ComparisonResult{}
	order := make([]string, 0, len(req.Variations))

	for _, variation := range req.Variations {
		if _, dup := results[variation.Name]; dup {
			errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Errorf("duplicate variation name %q", variation.Name))
			return
		}
		scenario := req.Base.Scenario
		if variation.Scenario != "" {
			scenario = variation.Scenario
		}
		base := req.Base
		base.Name = variation.Name
		out, err := h.run(c, base, scenario, req.Base.Overrides, variation.Overrides)
		if err != nil {
			studyError(c, fmt.Errorf("variation %s: %w", variation.Name, err))
			return
		}
		results[variation.Name] = models.ComparisonResult{
			Name:   variation.Name,
			ID:     out.ID,
			Status: out.Status.String(),
			Report: out.Report,
		}
		order = append(order, variation.Name)
		if out.Optimal() {
			byName[variation.Name] = out.Report
		}
	}

	comparison := make([]models.ComparisonResult, 0, len(order))
	for i, ranked := range analysis.RankBySystemLCOE(byName) {
		r := results[ranked.Name]
		r.Rank = i + 1
		r.SystemLCOE = ranked.Report.SystemLCOE
		comparison = append(comparison, r)
	}
	for _, name := range order {
		if _, ok := byName[name]; !ok {
			comparison = append(comparison, results[name])
		}
	}

	c.JSON(http.StatusOK, models.CompareStudiesResponse{Comparison: comparison})
}

// run layers config, preset and overrides, then executes and records the study.
func (h *StudyHandler) run(c *gin.Context, req models.StudyRequest, scenario string, overrides ...config.Overrides) (*study.Outcome, error) {
	cfg, err := h.buildConfig(scenario, req.Options.Backend, overrides...)
	if err != nil {
		return nil, err
	}

	var in *study.Input
	if p := req.Profiles; p != nil {
		in, err = study.NewInput(cfg, model.Profiles{Demand: p.Demand, PVYield: p.PVYield, WindYield: p.WindYield})
	} else {
		in, err = study.LoadInput(cfg)
	}
	if err != nil {
		return nil, err
	}
	in.Name = req.Name

	s, err := solver.New(cfg.SolverOptions(), h.logger)
	if err != nil {
		return nil, model.InputError("solver", "%v", err)
	}
	engine := study.New(s, cfg.AnalysisOptions(), h.logger)
	engine.Timeout = cfg.Solver.Timeout

	out, err := engine.Run(c.Request.Context(), in)
	if err != nil {
		return nil, err
	}
	h.cache.Set(out)
	if err := h.store.SaveStudy(c.Request.Context(), out); err != nil && !errors.Is(err, store.ErrDisabled) {
		h.logger.Error().Err(err).Str("study", out.ID).Msg("failed to archive study")
	}
	return out, nil
}

func (h *StudyHandler) buildConfig(scenario, backend string, overrides ...config.Overrides) (*config.Config, error) {
	cfg := h.base
	if scenario != "" {
		o, err := h.loadScenario(scenario)
		if err != nil {
			return nil, err
		}
		o.ApplyTo(&cfg)
	}
	for _, o := range overrides {
		o.ApplyTo(&cfg)
	}
	if backend != "" {
		cfg.Solver.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (h *StudyHandler) loadScenario(id string) (config.Overrides, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return config.Overrides{}, model.InputError("scenario", "invalid scenario id %q", id)
	}
	o, err := config.LoadScenario(filepath.Join(h.scenarioDir, id+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return config.Overrides{}, model.InputError("scenario", "unknown scenario %q", id)
	}
	if err != nil {
		return config.Overrides{}, model.InputError("scenario", "load %s: %v", id, err)
	}
	return o, nil
}
