package mockapi

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-admin/internal/rbac"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

const (
	HeaderXRequestID  = "X-Request-ID"
	ContextRequestID  = "request_id"
	ContextSubjectID  = "subjectID"
	ContextRole       = "role"
	SessionCookieName = "session"
)

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		zl := log.Zerolog().With().
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Logger()

		switch {
		case status >= 500:
			zl.Error().Strs("errors", c.Errors.Errors()).Msg("Server error")
		case status >= 400:
			zl.Warn().Msg("Client error")
		default:
			zl.Info().Msg("Request processed")
		}
	}
}

// Recovery handles panics and logs them appropriately
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Zerolog().Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
			}
		}()
		c.Next()
	}
}

// RateLimit rejects requests over the shared limit with 429.
func RateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}

// Metrics counts served requests by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ServerRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

type AuthMiddleware struct {
	tokens *TokenIssuer
	store  *Store
}

func NewAuthMiddleware(tokens *TokenIssuer, store *Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, store: store}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// Authenticate verifies the session token from the Authorization header or
// the session cookie and sets the subject in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("not signed in"))
			return
		}
		claims, err := m.tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("invalid token"))
			return
		}
		id, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("invalid token"))
			return
		}
		doctor, err := m.store.Doctor(id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("account no longer exists"))
			return
		}
		c.Set(ContextSubjectID, doctor.ID)
		c.Set(ContextRole, doctor.Role)
		c.Next()
	}
}

// RequirePermission checks if the signed-in role holds permission
func (m *AuthMiddleware) RequirePermission(permission rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rbac.Check(c.GetString(ContextRole), permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, NewErrorResponse("permission denied"))
			return
		}
		c.Next()
	}
}

func subjectID(c *gin.Context) int64 {
	return c.GetInt64(ContextSubjectID)
}

func role(c *gin.Context) string {
	return c.GetString(ContextRole)
}
