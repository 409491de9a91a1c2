package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/server/handlers"
	"github.com/mamadbah2/calftracker/internal/service/session"
)

// Handlers groups the HTTP handlers. Reports and Webhook are optional and
// their routes are only registered when set.
type Handlers struct {
	Session *handlers.SessionHandler
	Tracker *handlers.TrackerHandler
	Admin   *handlers.AdminHandler
	Reports *handlers.ReportHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, sessions *session.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/operators", h.Session.ListOperators)
	r.POST("/session", h.Session.Select)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	authed := r.Group("/", handlers.RequireOperator(sessions))
	authed.GET("/session", h.Session.Current)
	authed.DELETE("/session", h.Session.Clear)
	authed.GET("/dashboard", h.Tracker.Dashboard)

	animals := authed.Group("/animals")
	animals.GET("", h.Tracker.ListAnimals)
	animals.POST("", h.Tracker.CreateAnimal)
	animals.PATCH("/:id", h.Tracker.UpdateAnimal)
	animals.POST("/:id/feedings", h.Tracker.RecordFeeding)
	animals.PUT("/:id/feedings/current/notes", h.Tracker.UpdateNotes)
	animals.POST("/:id/feedings/current/treatment", h.Tracker.ToggleTreatment)

	if h.Reports != nil {
		authed.GET("/reports/snapshots", h.Reports.ListSnapshots)
	}

	adm := authed.Group("/admin", handlers.RequireAdmin())
	adm.GET("/settings", h.Admin.GetSettings)
	adm.PUT("/settings", h.Admin.UpdateSettings)
	adm.GET("/protocols", h.Admin.GetProtocols)
	adm.PUT("/protocols", h.Admin.ReplaceProtocols)
	adm.GET("/operators", h.Admin.ListOperators)
	adm.POST("/operators", h.Admin.CreateOperator)
	adm.PATCH("/operators/:id", h.Admin.UpdateOperator)
	adm.DELETE("/operators/:id", h.Admin.DeleteOperator)
	adm.POST("/reports/daily", h.Admin.RunDailyReport)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
