package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/platform/apierr"
	"github.com/yungbote/recall-backend/internal/platform/ctxutil"
)

// ErrorBody is the envelope every non-2xx response carries. RequestID always
// equals the X-Request-Id response header so clients can quote it back.
type ErrorBody struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	reqID := ""
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		reqID = td.RequestID
	}
	c.JSON(status, ErrorBody{
		ErrorCode: code,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		RequestID: reqID,
	})
}

// RespondAppError unwraps an apierr.Error if one is present; anything else
// is an internal error.
func RespondAppError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
