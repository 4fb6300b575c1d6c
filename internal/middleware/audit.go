package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collegesync/collegesync-api/internal/models"
	"github.com/collegesync/collegesync-api/internal/repository"
	"github.com/collegesync/collegesync-api/pkg/jobs"
)

// AuditRecorder persists audit logs off the request path through a
// background queue.
type AuditRecorder struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditRecorder starts the audit queue over the given repository.
func NewAuditRecorder(repo *repository.UserRepository, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		log, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return nil
		}
		return repo.CreateAuditLog(ctx, log)
	}, 1, 64, logger)
	return &AuditRecorder{queue: queue, logger: logger}
}

// Record enqueues an audit log entry. A full buffer drops the entry with a
// warning, never surfacing to the request.
func (r *AuditRecorder) Record(log *models.AuditLog) {
	if r == nil {
		return
	}
	if err := r.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "audit_log", Payload: log}); err != nil {
		r.logger.Sugar().Warnw("audit entry dropped", "action", log.Action, "resource", log.Resource, "error", err)
	}
}

// Stop drains the audit queue.
func (r *AuditRecorder) Stop() {
	if r == nil {
		return
	}
	r.queue.Stop()
}

// Audit creates a middleware that records audit logs after successful requests.
func Audit(recorder *AuditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			userID = &user.UserID
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		recorder.Record(&models.AuditLog{
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
