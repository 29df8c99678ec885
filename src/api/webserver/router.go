package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/config"
	"github.com/stake-plus/legal-agent/src/logging"
	"github.com/stake-plus/legal-agent/src/query"
)

const requestIDHeader = "X-Request-ID"

// Processor runs one query end to end. *query.Service satisfies it.
type Processor interface {
	Process(ctx context.Context, req query.Request) core.Result
}

// New builds the HTTP engine serving the query endpoint.
func New(cfg config.ServerConfig, svc Processor, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(logging.GinLogger(logger))
	attachRoutes(r, cfg, svc)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.ServerConfig, svc Processor) {
	if len(cfg.CORSAllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSAllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
			ExposeHeaders: []string{"Content-Length", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	queryH := NewQueries(svc)
	r.POST("/query", queryH.Create)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// requestID echoes the caller's X-Request-ID or assigns a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
