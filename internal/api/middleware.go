package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/redisclient"
	"material-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header names
const (
	HeaderRequestID        = "X-Request-ID"
	HeaderUserID           = "X-User-ID"
	HeaderUserRole         = "X-User-Role"
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replay"
)

const actorKey = "actor"

// Role is a caller's permission level as asserted by the auth gateway
type Role int

// Roles in ascending order of permission
const (
	RoleViewer Role = iota + 1
	RoleMaterial
	RoleManager
	RoleAdmin
)

var roleNames = map[string]Role{
	"viewer":   RoleViewer,
	"material": RoleMaterial,
	"manager":  RoleManager,
	"admin":    RoleAdmin,
}

// ParseRole maps a header value to a Role; unknown names are 0
func ParseRole(s string) Role {
	return roleNames[strings.ToLower(strings.TrimSpace(s))]
}

type identity struct {
	UserID string
	Role   Role
}

// requestIDMiddleware assigns each request an id and a logger carrying it
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)

		logger := util.GetLogger().With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

// accessLogMiddleware writes one log line per request
func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		util.FromContext(c.Request.Context()).Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// identityMiddleware requires the caller identity set by the auth gateway
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			abortWithKind(c, http.StatusUnauthorized, kindUnauthorized, "missing caller identity")
			return
		}
		c.Set(actorKey, identity{UserID: userID, Role: ParseRole(c.GetHeader(HeaderUserRole))})
		c.Next()
	}
}

// requireRole rejects callers below min
func requireRole(min Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Get(actorKey)
		if caller, ok := id.(identity); !ok || caller.Role < min {
			abortWithKind(c, http.StatusForbidden, kindForbidden, "insufficient role for this operation")
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) string {
	if id, ok := c.Get(actorKey); ok {
		return id.(identity).UserID
	}
	return ""
}

// IdempotencyStore keeps in-flight locks and completed responses
type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	SaveResponse(ctx context.Context, key string, resp *redisclient.CachedResponse, ttl time.Duration) error
	GetResponse(ctx context.Context, key string) (*redisclient.CachedResponse, error)
}

const idempotencyLockTTL = 30 * time.Second

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key and refuses a concurrent duplicate. Keys are scoped to the
// caller and route. Store failures fall through to normal processing.
func idempotencyMiddleware(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if store == nil || header == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		logger := util.FromContext(ctx)
		key := strings.Join([]string{actor(c), c.Request.Method, c.Request.URL.Path, header}, ":")

		cached, err := store.GetResponse(ctx, key)
		if err != nil {
			logger.Warn("Idempotency lookup failed", zap.String("key", header), zap.Error(err))
			c.Next()
			return
		}
		if cached != nil {
			util.IdempotentReplaysTotal.Inc()
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		token := uuid.New().String()
		locked, err := store.AcquireLock(ctx, key, token, idempotencyLockTTL)
		if err != nil {
			logger.Warn("Idempotency lock failed", zap.String("key", header), zap.Error(err))
			c.Next()
			return
		}
		if !locked {
			abortWithKind(c, http.StatusConflict, string(apperr.KindConflict), "a request with this idempotency key is in progress")
			return
		}
		defer func() {
			if err := store.ReleaseLock(context.Background(), key, token); err != nil {
				logger.Warn("Idempotency unlock failed", zap.String("key", header), zap.Error(err))
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		// only successful outcomes are replayed; a rejected request may be retried
		status := recorder.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		resp := &redisclient.CachedResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		}
		if err := store.SaveResponse(ctx, key, resp, ttl); err != nil {
			logger.Warn("Failed to store idempotent response", zap.String("key", header), zap.Error(err))
		}
	}
}
