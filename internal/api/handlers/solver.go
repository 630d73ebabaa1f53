package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-sizing/internal/api/models"
	"energy-sizing/internal/config"
	"energy-sizing/internal/solver"
)

// SolverHandler handles solver-related requests
type SolverHandler struct {
	opts solver.Options
}

// NewSolverHandler creates a new solver handler
func NewSolverHandler(cfg config.Config) *SolverHandler {
	return &SolverHandler{opts: cfg.SolverOptions()}
}

// ListSolvers handles GET /api/v1/solvers
func (h *SolverHandler) ListSolvers(c *gin.Context) {
	maxRows := h.opts.MaxRows
	if maxRows <= 0 {
		maxRows = solver.DefaultMaxRows
	}
	cbc := &solver.CBC{Binary: h.opts.Binary}
	backend := h.opts.Backend
	if backend == "" {
		backend = solver.BackendAuto
	}

	solvers := []models.SolverInfo{
		{
			Name:        solver.BackendSimplex,
			Description: "In-process dense simplex. Limited to short horizons (8 hours at 15-minute resolution).",
			Available:   true,
			MaxRows:     maxRows,
		},
		{
			Name:        solver.BackendCBC,
			Description: "COIN-OR CBC run as an external process on an LP file. Required for full-year studies.",
			Available:   cbc.Available(),
		},
		{
			Name:        solver.BackendAuto,
			Description: "CBC when installed, otherwise simplex for problems within its row limit.",
			Available:   true,
			MaxRows:     maxRows,
		},
	}
	for i := range solvers {
		solvers[i].Default = solvers[i].Name == backend
	}
	c.JSON(http.StatusOK, gin.H{"solvers": solvers})
}
