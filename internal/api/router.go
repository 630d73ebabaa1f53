// Package api wires the HTTP handlers into a gin engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"energy-sizing/internal/api/handlers"
	"energy-sizing/internal/api/middleware"
	"energy-sizing/internal/config"
	"energy-sizing/internal/store"
	"energy-sizing/internal/study"
)

// Deps are the shared services handed to the handlers. Cache and Store may be nil.
type Deps struct {
	Config      config.Config
	ScenarioDir string
	Cache       *study.Cache
	Store       *store.Store
	Logger      zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	// Apply middleware
	router.Use(middleware.ErrorHandler(d.Logger))
	router.Use(middleware.CORS(d.Config.Server.CORSOrigins))
	router.Use(middleware.Logger(d.Logger))

	studyHandler := handlers.NewStudyHandler(d.Config, d.ScenarioDir, d.Cache, d.Store, d.Logger)
	scenarioHandler := handlers.NewScenarioHandler(d.ScenarioDir, d.Logger)
	solverHandler := handlers.NewSolverHandler(d.Config)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_studies": d.Cache.Len()})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/studies", studyHandler.ListStudies)
		api.POST("/studies", studyHandler.RunStudy)
		api.POST("/studies/compare", studyHandler.CompareStudies)
		api.GET("/studies/:id", studyHandler.GetStudy)
		api.GET("/studies/:id/dispatch", studyHandler.GetDispatch)

		api.GET("/scenarios", scenarioHandler.ListScenarios)
		api.GET("/solvers", solverHandler.ListSolvers)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
