package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// ContextAuditResourceKey lets a handler name the resource it wrote when the route has no :id.
const ContextAuditResourceKey = "audit_resource_id"

// SetAuditResource records the id of the resource written by the current request.
func SetAuditResource(c *gin.Context, id int) {
	c.Set(ContextAuditResourceKey, strconv.Itoa(id))
}

// Audit emits one structured log entry for every successful write.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	auditLogger := logger.Named("audit")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		resourceID := c.Param("id")
		if resourceID == "" {
			resourceID = c.GetString(ContextAuditResourceKey)
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("resource_id", resourceID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
			zap.String("request_id", requestid.Value(c)),
		}
		if claims := ClaimsFromContext(c); claims != nil {
			fields = append(fields,
				zap.String("user_id", claims.UserID),
				zap.String("institute_id", claims.InstituteID),
				zap.String("role", string(claims.Role)))
		}
		auditLogger.Info("audit", fields...)
	}
}
