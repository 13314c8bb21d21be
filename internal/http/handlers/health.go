package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/vector"
)

// Pinger is the health surface of the relational store.
type Pinger interface {
	Ping() error
}

type HealthHandler struct {
	store Pinger
	index vector.Index
}

func NewHealthHandler(store Pinger, index vector.Index) *HealthHandler {
	return &HealthHandler{store: store, index: index}
}

// GET /health reports per-component status; overall degraded state maps to
// 503 so load balancers can act on it.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	components := gin.H{}

	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			components["store"] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			components["store"] = gin.H{"status": "ok"}
		}
	}

	if h.index != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.index.Ping(ctx); err != nil {
			components["vector_store"] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			components["vector_store"] = gin.H{"status": "ok"}
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
