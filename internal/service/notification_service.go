package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/jobs"
)

const absenceJobType = "absence_notification"

// NotificationConfig configures the absence webhook dispatcher.
type NotificationConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
	Throttle   time.Duration
	Workers    int
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotificationService delivers absence notifications to an external webhook.
// Delivery is best effort: attendance persistence is the source of truth and
// a failed POST is only ever logged. A throttle pause between calls keeps the
// downstream SMS gateway from being flooded on large roster saves.
type NotificationService struct {
	config NotificationConfig
	client httpDoer
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the dispatcher and its worker queue.
// Call Start before enqueueing and Stop on shutdown.
func NewNotificationService(config NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Throttle <= 0 {
		config.Throttle = 500 * time.Millisecond
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	s := &NotificationService{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
	s.queue = jobs.NewQueue("absence-notifications", s.handleJob, jobs.QueueConfig{
		Workers: config.Workers,
		// Delivery failures are swallowed, not retried; the parent already
		// sees the next day's roster either way.
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnqueueAbsences queues one webhook call per absent student. Enqueue
// failures are logged and dropped.
func (s *NotificationService) EnqueueAbsences(notifications []models.AbsenceNotification) {
	if !s.config.Enabled || s.config.WebhookURL == "" {
		return
	}
	for _, n := range notifications {
		job := jobs.Job{ID: uuid.NewString(), Type: absenceJobType, Payload: n}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue absence notification",
				zap.String("student_id", n.StudentID), zap.Error(err))
		}
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.AbsenceNotification)
	if !ok {
		s.logger.Error("unexpected payload type on notification queue",
			zap.String("job_id", job.ID))
		return nil
	}

	if err := s.post(ctx, n); err != nil {
		s.logger.Warn("absence notification delivery failed",
			zap.String("student_id", n.StudentID),
			zap.String("parent_phone", n.ParentPhone),
			zap.Error(err))
	} else {
		s.logger.Info("absence notification sent",
			zap.String("student_id", n.StudentID),
			zap.String("class", n.Class),
			zap.String("date", n.Date))
	}

	// Pace outbound calls regardless of outcome.
	select {
	case <-ctx.Done():
	case <-time.After(s.config.Throttle):
	}
	return nil
}

func (s *NotificationService) post(ctx context.Context, n models.AbsenceNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
