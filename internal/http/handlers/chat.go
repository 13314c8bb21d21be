package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/http/response"
	"github.com/yungbote/recall-backend/internal/platform/apierr"
	"github.com/yungbote/recall-backend/internal/platform/ctxutil"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
	log  *logger.Logger
}

func NewChatHandler(chat services.ChatService, baseLog *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  baseLog.With("handler", "ChatHandler"),
	}
}

type chatReq struct {
	Message string `json:"message"`
}

type chatResp struct {
	Response     string       `json:"response"`
	SessionID    string       `json:"session_id"`
	MemoriesUsed []memoryView `json:"memories_used"`
	Timestamp    time.Time    `json:"timestamp"`
}

type memoryView struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

func memoriesView(memories []*types.Memory) []memoryView {
	out := make([]memoryView, 0, len(memories))
	for _, m := range memories {
		out = append(out, memoryView{
			ID:      m.ID.String(),
			Content: m.Content,
			Type:    m.Attributes.Type,
		})
	}
	return out
}

// POST /chat/:user_id/new
func (h *ChatHandler) ChatNew(c *gin.Context) {
	h.handleChat(c, nil)
}

// POST /chat/:user_id/:session_id
func (h *ChatHandler) ChatContinue(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	h.handleChat(c, &sessionID)
}

func wantsStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func (h *ChatHandler) handleChat(c *gin.Context, sessionID *uuid.UUID) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
		return
	}
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	chatRequest := services.ChatRequest{
		UserID:    userID,
		SessionID: sessionID,
		Message:   req.Message,
	}
	if wantsStream(c) {
		h.streamChat(c, chatRequest)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.chat.Chat(dbc, chatRequest)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, chatResp{
		Response:     result.Assistant.Content,
		SessionID:    result.Session.ID.String(),
		MemoriesUsed: memoriesView(result.MemoriesUsed),
		Timestamp:    result.Assistant.CreatedAt.UTC(),
	})
}

// streamChat emits session_created, content, complete and error events.
// Errors after the first flush can only be reported in-band.
func (h *ChatHandler) streamChat(c *gin.Context, req services.ChatRequest) {
	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", fmt.Errorf("response writer cannot stream"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	emit := func(event string, payload any) {
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw)
		flusher.Flush()
	}

	onSession := func(session *types.Session, created bool) {
		if created {
			emit("session_created", gin.H{"session_id": session.ID.String()})
		}
	}
	onDelta := func(delta string) {
		if delta == "" {
			return
		}
		emit("content", gin.H{"content": delta})
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.chat.ChatStream(dbc, req, onSession, onDelta)

	if err != nil {
		code := "generation_failed"
		status := http.StatusBadGateway
		var ae *apierr.Error
		if errors.As(err, &ae) {
			code = ae.Code
			status = ae.Status
		}
		reqID := ""
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			reqID = td.RequestID
		}
		emit("error", gin.H{
			"error_code": code,
			"message":    err.Error(),
			"status":     status,
			"timestamp":  time.Now().UTC(),
			"request_id": reqID,
		})
		return
	}

	emit("complete", gin.H{
		"session_id":    result.Session.ID.String(),
		"memories_used": memoriesView(result.MemoriesUsed),
		"timestamp":     result.Assistant.CreatedAt.UTC(),
	})
}
