package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"energy-sizing/internal/api/models"
	"energy-sizing/internal/config"
)

// ScenarioHandler handles scenario preset requests
type ScenarioHandler struct {
	dir    string
	logger zerolog.Logger
}

// ScenarioDir resolves the preset directory: SCENARIO_DIR, else ./examples/scenarios.
func ScenarioDir() string {
	dir := os.Getenv("SCENARIO_DIR")
	if dir == "" {
		dir = filepath.Join("examples", "scenarios")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(dir string, logger zerolog.Logger) *ScenarioHandler {
	logger.Debug().Str("dir", dir).Msg("using scenario directory")
	return &ScenarioHandler{dir: dir, logger: logger}
}

// Dir returns the preset directory (for diagnostics)
func (h *ScenarioHandler) Dir() string { return h.dir }

// ListScenarios handles GET /api/v1/scenarios
func (h *ScenarioHandler) ListScenarios(c *gin.Context) {
	scenarios, skipped, err := config.ListScenarios(h.dir)
	if err != nil {
		h.logger.Warn().Err(err).Str("dir", h.dir).Msg("failed to read scenario directory")
		scenarios = nil
	}
	for _, e := range skipped {
		h.logger.Warn().Err(e).Msg("skipping invalid scenario file")
	}
	if scenarios == nil {
		scenarios = []config.ScenarioInfo{}
	}
	c.JSON(http.StatusOK, models.ScenarioListResponse{Scenarios: scenarios})
}
