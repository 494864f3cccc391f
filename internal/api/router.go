package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	"go-bar-race/internal/api/handler"
	"go-bar-race/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.RunHandler) {
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.GET("/api/v1/runs/*/logs", h.GetRunLogs)
	r.GET("/api/v1/runs/*/progress", h.GetRunProgress)
	r.GET("/api/v1/runs/*/panel", h.GetRunPanel)
	r.GET("/api/v1/runs/*/rankings", h.GetRunRankings)
	r.GET("/api/v1/runs/*/files", h.GetRunFiles)
	r.POST("/api/v1/runs/*/retry", h.RetryRun)
	r.PATCH("/api/v1/runs/*/cancel", h.CancelRun)
	r.GET("/api/v1/download/*/*", h.DownloadFile)
	// Generic run routes last
	r.GET("/api/v1/runs/*", h.GetRun)
	r.DELETE("/api/v1/runs/*", h.DeleteRun)

	r.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
