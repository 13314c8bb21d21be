package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/http/response"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func pathUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
		return "", false
	}
	return userID, true
}

func pathSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return uuid.Nil, false
	}
	return sessionID, true
}

// GET /chat/:user_id/sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	sessions, err := h.sessions.List(dbc, userID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions, "total_count": len(sessions)})
}

// GET /chat/:user_id/sessions/:session_id
func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, messages, err := h.sessions.GetWithMessages(dbc, userID, sessionID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": session, "messages": messages})
}

type renameReq struct {
	Title string `json:"title"`
}

// PUT /chat/:user_id/sessions/:session_id
func (h *SessionHandler) Rename(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, err := h.sessions.Rename(dbc, userID, sessionID, req.Title)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": session})
}

// DELETE /chat/:user_id/sessions/:session_id
func (h *SessionHandler) Delete(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.sessions.Delete(dbc, userID, sessionID); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
