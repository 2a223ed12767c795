package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
)

// ContextAuditResourceKey lets a handler name the record a public request
// touched. The contract submission handler sets it to the contract ID so the
// audit row points at the contract, never at the capability token in the URL.
const ContextAuditResourceKey = "auditResourceID"

// Audit appends an audit row after each successful request on the wrapped
// route. Failed requests leave no row; the workflow services record their own
// decision-level entries.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				userID = &user.UserID
			}
		}

		var resourceID *string
		if v, ok := c.Get(ContextAuditResourceKey); ok {
			if id, ok := v.(string); ok && id != "" {
				resourceID = &id
			}
		}

		body, _ := json.Marshal(map[string]interface{}{
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}
