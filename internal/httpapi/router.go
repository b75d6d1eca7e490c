package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/common"
)

// NewRouter mounts the menu import endpoints. An empty origins list disables CORS.
func NewRouter(h *Handler, origins []string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	if len(origins) > 0 {
		cfg := cors.Config{
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-Id"},
			ExposeHeaders: []string{"X-Request-Id", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}
		if len(origins) == 1 && origins[0] == "*" {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = origins
		}
		r.Use(cors.New(cfg))
	}

	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/menus/preview", h.Preview)
		v1.POST("/menus/preview.xlsx", h.PreviewWorkbook)
		v1.POST("/menus/conflicts", h.ResolveConflicts)
		v1.POST("/menus/import", h.Import)
		v1.GET("/import-jobs/:id", h.GetJob)
		v1.DELETE("/import-jobs/:id", h.DeleteJob)
	}
	return r
}

// requestLogger tags each request with an id and a scoped logger.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header("X-Request-Id", rid)
		l := logger.With("request_id", rid)
		ctx := common.WithLogger(common.WithRequestID(c.Request.Context(), rid), l)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		l.Log(ctx, level, "http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
