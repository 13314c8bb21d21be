package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/http/response"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/services"
)

type MemoryHandler struct {
	memories services.MemoryService
}

func NewMemoryHandler(memories services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

// GET /chat/:user_id/memories?limit=100
func (h *MemoryHandler) List(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.memories.List(dbc, userID, limit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"memories": rows})
}

// DELETE /chat/:user_id/memories
func (h *MemoryHandler) DeleteAll(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.memories.DeleteAll(dbc, userID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "count": n})
}
