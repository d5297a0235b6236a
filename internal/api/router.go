package api

import (
	"github.com/abcgaming/loyalty-engine/internal/api/handlers"
	"github.com/abcgaming/loyalty-engine/internal/api/middleware"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, datasets *services.DatasetService, cfg *config.Config) {
	// Initialize handlers
	datasetHandler := handlers.NewDatasetHandler(datasets, cfg.MaxUploadBytes)
	scoreHandler := handlers.NewScoreHandler(datasets, cfg.LeaderboardSize)
	chartHandler := handlers.NewChartHandler(datasets)
	bonusHandler := handlers.NewBonusHandler(datasets, cfg.BonusPoolDefault)
	exportHandler := handlers.NewExportHandler(datasets, cfg.LeaderboardSize)

	uploadLimiter := services.NewUploadRateLimiter(cfg.UploadRatePerMin, cfg.UploadBurst)

	// Read endpoints
	group.GET("/datasets", datasetHandler.ListDatasets)
	group.GET("/datasets/:id", datasetHandler.GetDataset)
	group.GET("/datasets/:id/records", datasetHandler.GetRecords)
	group.GET("/datasets/:id/scores/:player_id", scoreHandler.GetPlayerScore)
	group.GET("/datasets/:id/leaderboard", scoreHandler.GetLeaderboard)
	group.GET("/datasets/:id/months", scoreHandler.GetMonths)
	group.GET("/datasets/:id/stats", scoreHandler.GetStats)

	// Chart endpoints
	group.GET("/datasets/:id/charts/points-histogram", chartHandler.GetPointsHistogram)
	group.GET("/datasets/:id/charts/top-players", chartHandler.GetTopPlayers)
	group.GET("/datasets/:id/charts/correlation", chartHandler.GetCorrelation)

	// Bonus runs
	group.GET("/datasets/:id/bonus", bonusHandler.ListBonusRuns)
	group.GET("/datasets/:id/bonus/:run_id", bonusHandler.GetBonusRun)

	// Report downloads
	group.GET("/datasets/:id/export", exportHandler.ExportDataset)

	// Mutating endpoints, optionally behind JWT auth
	mutating := group.Group("")
	if cfg.AuthRequired {
		mutating.Use(middleware.AuthRequired(cfg.JWTSecret))
	}
	{
		mutating.POST("/datasets", middleware.UploadRateLimit(uploadLimiter), datasetHandler.UploadDataset)
		mutating.DELETE("/datasets/:id", datasetHandler.DeleteDataset)
		mutating.POST("/datasets/:id/scores", scoreHandler.ComputeScores)
		mutating.POST("/datasets/:id/bonus", bonusHandler.RunBonus)
	}
}
