package listeners

import (
	"context"

	"go.uber.org/zap"

	"site-entry/internal/events"
	"site-entry/pkg/eventbus"
)

// AuditListener writes one structured log line per workflow event.
type AuditListener struct {
	logger *zap.Logger
}

func NewAuditListener(logger *zap.Logger) *AuditListener {
	return &AuditListener{logger: logger.Named("audit")}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	bus.SubscribeAll(l.handle)
}

func (l *AuditListener) handle(_ context.Context, event eventbus.Event) error {
	fields := []zap.Field{zap.String("event", event.Name())}
	switch e := event.(type) {
	case events.EntryRequestEvent:
		fields = append(fields,
			zap.Int64("entryRequestID", e.Request.ID),
			zap.String("requestNumber", e.Request.RequestNumber),
			zap.String("status", string(e.Request.Status)),
			zap.Int64("actorID", e.Actor.UserID),
			zap.String("actorRole", string(e.Actor.Role)),
		)
		if e.FromStatus != nil {
			fields = append(fields, zap.String("from", string(*e.FromStatus)))
		}
	case events.DeploymentEvent:
		fields = append(fields,
			zap.Int64("deploymentID", e.Deployment.ID),
			zap.String("status", string(e.Deployment.Status)),
			zap.Int64("actorID", e.Actor.UserID),
		)
		if e.Note != nil {
			fields = append(fields, zap.String("reason", e.Note.Reason))
		}
	}
	l.logger.Info("workflow event", fields...)
	return nil
}
