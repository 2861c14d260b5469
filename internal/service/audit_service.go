package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/pkg/jobs"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit records off the request path through an
// in-memory worker queue. Recording is best effort; a stopped queue logs
// and moves on.
type AuditService struct {
	repo    auditWriter
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewAuditService constructs the audit pipeline and its queue. Call Start
// before recording.
func NewAuditService(repo auditWriter, workers, bufferSize int, logger *zap.Logger, enabled bool) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger, enabled: enabled}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		MaxRetries: 1,
		RetryDelay: time.Second,
		Logger:     logger,
	})
	return s
}

// Start boots the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the queue.
func (s *AuditService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Record enqueues an audit entry.
func (s *AuditService) Record(entry models.AuditLog) {
	if s == nil || !s.enabled {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: entry.Action, Payload: entry}); err != nil {
		s.logger.Warn("audit record dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Warn("unexpected audit payload", zap.String("type", job.Type))
		return nil
	}
	return s.repo.CreateAuditLog(ctx, &entry)
}
