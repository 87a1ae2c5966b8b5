package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/jobs"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const (
	notificationPersisted = "persisted"
	notificationFailed    = "failed"
	notificationDropped   = "dropped"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// NotificationService fans in-app notifications out through a background
// queue. Notify never blocks or fails the calling workflow.
type NotificationService struct {
	store   notificationStore
	queue   *jobs.Queue[models.Notification]
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service and its worker queue. Call
// Start before Notify and Stop on shutdown.
func NewNotificationService(store notificationStore, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{store: store, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	svc.queue = jobs.NewQueue[models.Notification]("notifications", svc.persist, cfg)
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains in-flight deliveries.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues n for persistence. A saturated or stopped queue drops
// the notification and logs it.
func (s *NotificationService) Notify(_ context.Context, n models.Notification) {
	if err := s.queue.Offer(n); err != nil {
		s.metrics.RecordNotification(notificationDropped)
		s.logger.Warn("notification dropped",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) persist(ctx context.Context, n models.Notification) error {
	if err := s.store.Create(ctx, &n); err != nil {
		s.metrics.RecordNotification(notificationFailed)
		return err
	}
	s.metrics.RecordNotification(notificationPersisted)
	return nil
}

// List returns the caller's newest notifications.
func (s *NotificationService) List(ctx context.Context, principal models.Principal, limit int) ([]models.Notification, error) {
	if principal.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	items, err := s.store.ListByUser(ctx, principal.UserID, limit)
	if err != nil {
		return nil, internalError(err, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, principal models.Principal, id string) error {
	if principal.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.store.MarkRead(ctx, principal.UserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return internalError(err, "failed to update notification")
	}
	return nil
}
