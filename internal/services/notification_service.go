package services

import (
	"context"

	"go.uber.org/zap"

	"site-entry/pkg/eventbus"
	"site-entry/pkg/metrics"
)

// NotificationDispatcher is fire-and-forget: it never reports failure to the
// operation that triggered it.
type NotificationDispatcher interface {
	Notify(ctx context.Context, event eventbus.Event)
}

type NotificationService struct {
	bus     *eventbus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewNotificationService(bus *eventbus.Bus, m *metrics.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{bus: bus, metrics: m, logger: logger}
}

func (s *NotificationService) Notify(ctx context.Context, event eventbus.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordSideEffectFailure("notify")
			s.logger.Error("notification dispatch panicked", zap.String("event", event.Name()), zap.Any("panic", r))
		}
	}()
	s.bus.Publish(ctx, event)
}
