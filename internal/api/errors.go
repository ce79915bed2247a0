package api

import (
	"net/http"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kinds raised by the HTTP layer itself
const (
	kindUnauthorized = "UNAUTHORIZED"
	kindForbidden    = "FORBIDDEN"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindInvalidInput:           http.StatusBadRequest,
	apperr.KindInvalidStateTransition: http.StatusConflict,
	apperr.KindInsufficientStock:      http.StatusConflict,
	apperr.KindConflict:               http.StatusConflict,
	apperr.KindInternal:               http.StatusInternalServerError,
}

func abortWithKind(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"kind":    kind,
			"message": message,
		},
	})
}

// respondError renders err by kind; internal errors keep their details out of
// the response.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		util.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "internal error"
	}
	abortWithKind(c, status, string(kind), message)
}

// badRequest renders a binding or parsing failure
func badRequest(c *gin.Context, message string) {
	abortWithKind(c, http.StatusBadRequest, string(apperr.KindInvalidInput), message)
}

// parseDate accepts YYYY-MM-DD or RFC 3339; empty means absent
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperr.InvalidInput("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}
