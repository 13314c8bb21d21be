package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/envutil"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// KGraphClient forwards processed conversation windows to an external
// knowledge graph service. Forwarding is best-effort; the memory pipeline
// never fails because the graph is down.
type KGraphClient interface {
	SaveChatHistory(ctx context.Context, userID string, sessionID string, window []memory.Turn)
}

type kgraphClient struct {
	log     *logger.Logger
	http    *http.Client
	baseURL string
}

// NewKGraphClient returns nil when KNOWLEDGE_GRAPH_URL is unset, which
// disables forwarding entirely.
func NewKGraphClient(baseLog *logger.Logger) KGraphClient {
	base := strings.TrimRight(strings.TrimSpace(os.Getenv("KNOWLEDGE_GRAPH_URL")), "/")
	if base == "" {
		return nil
	}
	return &kgraphClient{
		log:     baseLog.With("service", "KGraphClient"),
		baseURL: base,
		http: &http.Client{
			Timeout: envutil.Seconds("KNOWLEDGE_GRAPH_TIMEOUT_SECONDS", 10*time.Second),
		},
	}
}

type kgraphSaveRequest struct {
	Input      []kgraphTurn   `json:"input"`
	Metadata   map[string]any `json:"metadata"`
	TargetType string         `json:"target_type"`
	InputType  string         `json:"input_type"`
}

type kgraphTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *kgraphClient) SaveChatHistory(ctx context.Context, userID string, sessionID string, window []memory.Turn) {
	if c == nil || len(window) == 0 {
		return
	}
	turns := make([]kgraphTurn, 0, len(window))
	for _, t := range window {
		turns = append(turns, kgraphTurn{Role: t.Role, Content: t.Content})
	}
	body, err := json.Marshal(kgraphSaveRequest{
		Input: turns,
		Metadata: map[string]any{
			"user_id":    userID,
			"session_id": sessionID,
		},
		TargetType: "personal_memory",
		InputType:  "chat_history",
	})
	if err != nil {
		c.log.Warn("Knowledge graph payload marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/ingest/save", bytes.NewReader(body))
	if err != nil {
		c.log.Warn("Knowledge graph request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Knowledge graph save failed", "session_id", sessionID, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Knowledge graph save rejected",
			"session_id", sessionID,
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return
	}
	c.log.Debug("Knowledge graph save accepted", "session_id", sessionID, "turns", len(turns))
}
