package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Liveness probe, also used by the worker's readiness check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	jobHandler := handler.NewJobHandler(deps)

	jobs := r.Group("/jobs")
	{
		// POST /jobs - Create a job from an uploaded PDF
		jobs.POST("", jobHandler.CreateJob)

		// POST /jobs/:job_id/pages - Upload one rasterized page image
		jobs.POST("/:job_id/pages", jobHandler.UploadPage)

		// POST /jobs/:job_id/complete - Signal that all pages are uploaded
		jobs.POST("/:job_id/complete", jobHandler.CompleteJob)

		// GET /jobs/:job_id/events - Live progress stream (SSE)
		jobs.GET("/:job_id/events", jobHandler.StreamEvents)

		// GET /jobs/:job_id - Job record plus result markdown
		jobs.GET("/:job_id", jobHandler.GetJob)
	}

	// Worker-to-API push channel, not for external clients
	internal := r.Group("/internal/jobs")
	{
		internal.POST("/:job_id/status", jobHandler.PushStatus)
		internal.POST("/:job_id/events", jobHandler.PushEvent)
	}

	return r
}
