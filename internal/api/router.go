package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rimasko/orkpulse/internal/middleware"
)

// NewRouter configures the Gin engine: global middleware, a short timeout on
// query endpoints, and a long one for report generation (a month-sized fetch
// plus codec run can take minutes).
//
// Health and readiness endpoints are registered in app.InitializeApp().
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.RateLimiter(),
	)

	v1 := router.Group("/api/v1")

	stats := v1.Group("/stats")
	stats.Use(timeout(10 * time.Second))
	stats.GET("/aggregate", handler.GetAggregate)

	reports := v1.Group("/reports")
	reports.Use(timeout(10 * time.Minute))
	reports.POST("", handler.GenerateReport)

	return router
}

func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
