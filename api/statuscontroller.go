package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"policywatch/storage"
	"policywatch/types"
)

// Runner triggers a detection run. Implemented by the pipeline.
type Runner interface {
	RunUpdate(ctx context.Context) (*types.RunReport, error)
}

// StatsProvider reports cache statistics independent of a run.
type StatsProvider interface {
	Stats(sourcesConfigured, pageSize, maxCache int) storage.Stats
}

// Deps are the collaborators the status endpoints expose.
type Deps struct {
	Runner Runner
	Stats  StatsProvider

	SourcesConfigured int
	PageSize          int
	MaxCache          int
}

// one run at a time; a second trigger while running is rejected
var runMu sync.Mutex

// RegisterStatusRoutes registers the operational endpoints.
func RegisterStatusRoutes(r *gin.Engine, deps Deps) {
	r.GET("/api/stats", func(c *gin.Context) { handleStats(c, deps) })
	r.POST("/api/run", func(c *gin.Context) { handleRun(c, deps) })
}

func handleStats(c *gin.Context, deps Deps) {
	c.JSON(http.StatusOK, deps.Stats.Stats(deps.SourcesConfigured, deps.PageSize, deps.MaxCache))
}

// handleRun triggers a detection run in the background and returns
// 202 Accepted immediately, or 409 if a run is already in flight.
func handleRun(c *gin.Context, deps Deps) {
	if !runMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"status": "run already in progress"})
		return
	}
	go func() {
		defer runMu.Unlock()
		report, err := deps.Runner.RunUpdate(context.Background())
		if err != nil {
			log.Printf("run failed: %v", err)
			return
		}
		log.Printf("Run complete: %d page(s) changed, %d section change(s), %d error(s)",
			report.Changed, report.SectionsChanged, len(report.Errors))
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "run started"})
}
