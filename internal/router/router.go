// Package router wires the HTTP surface: session editing, receipt
// extraction, health and metrics.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/billsnap/internal/metrics"
	"github.com/mmynk/billsnap/internal/service"
)

// New builds the gin engine with all routes registered.
func New(sessions *service.SessionService, receipts *service.ReceiptService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s := r.Group("/sessions")
	{
		s.POST("", sessions.Create)
		s.GET("/:id", sessions.Get)
		s.DELETE("/:id", sessions.Delete)

		s.POST("/:id/receipt", receipts.Analyze)

		s.POST("/:id/people", sessions.AddPerson)
		s.DELETE("/:id/people/:personID", sessions.RemovePerson)
		s.PUT("/:id/payer", sessions.SetPayer)

		s.POST("/:id/items", sessions.AddItem)
		s.POST("/:id/items/:index/quantity", sessions.ChangeQuantity)
		s.POST("/:id/items/:index/toggle", sessions.ToggleParticipant)
		s.POST("/:id/items/:index/units/increment", sessions.IncrementUnits)
		s.POST("/:id/items/:index/units/decrement", sessions.DecrementUnits)
		s.PUT("/:id/items/:index/shared", sessions.SetShared)
		s.PUT("/:id/items/:index/portions", sessions.SavePortions)

		s.GET("/:id/summary", sessions.Summary)
	}

	return r
}

// requestLogger logs every request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
