package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"site-entry/internal/events"
	"site-entry/pkg/eventbus"
)

// CompanyPusher delivers a typed message to every connected client of the
// given companies.
type CompanyPusher interface {
	SendToCompanies(companyIDs []int64, messageType string, payload interface{}) (int, error)
}

// NotificationListener pushes workflow events to the companies involved.
type NotificationListener struct {
	pusher CompanyPusher
	logger *zap.Logger
}

func NewNotificationListener(pusher CompanyPusher, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{pusher: pusher, logger: logger}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.SubscribeAll(l.handle)
	l.logger.Info("NotificationListener subscribed to all workflow events")
}

func (l *NotificationListener) handle(_ context.Context, event eventbus.Event) error {
	addressed, ok := event.(events.Addressed)
	if !ok {
		return nil
	}

	recipients := addressed.Recipients()
	delivered, err := l.pusher.SendToCompanies(recipients, event.Name(), event)
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", event.Name(), err)
	}
	l.logger.Debug("event pushed",
		zap.String("event", event.Name()),
		zap.Int64s("companies", recipients),
		zap.Int("connections", delivered),
	)
	return nil
}
