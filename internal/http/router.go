package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/recall-backend/internal/http/handlers"
	httpMW "github.com/yungbote/recall-backend/internal/http/middleware"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ChatHandler    *httpH.ChatHandler
	SessionHandler *httpH.SessionHandler
	MemoryHandler  *httpH.MemoryHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("recall-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	chat := r.Group("/chat/:user_id")
	{
		if cfg.ChatHandler != nil {
			chat.POST("/new", cfg.ChatHandler.ChatNew)
			chat.POST("/:session_id", cfg.ChatHandler.ChatContinue)
		}
		if cfg.SessionHandler != nil {
			chat.GET("/sessions", cfg.SessionHandler.List)
			chat.GET("/sessions/:session_id", cfg.SessionHandler.Get)
			chat.PUT("/sessions/:session_id", cfg.SessionHandler.Rename)
			chat.DELETE("/sessions/:session_id", cfg.SessionHandler.Delete)
		}
		if cfg.MemoryHandler != nil {
			chat.GET("/memories", cfg.MemoryHandler.List)
			chat.DELETE("/memories", cfg.MemoryHandler.DeleteAll)
		}
	}

	return r
}
