package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"site-entry/internal/entities"
	"site-entry/internal/events"
	"site-entry/pkg/eventbus"
)

type fakePusher struct {
	mu    sync.Mutex
	calls map[string][]int64
	err   error
}

func (p *fakePusher) SendToCompanies(companyIDs []int64, messageType string, _ interface{}) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string][]int64)
	}
	p.calls[messageType] = companyIDs
	return len(companyIDs), p.err
}

type plainEvent struct{}

func (plainEvent) Name() string { return "plain" }

func TestNotificationListener_PushesToParties(t *testing.T) {
	pusher := &fakePusher{}
	bus := eventbus.New(zap.NewNop())
	NewNotificationListener(pusher, zap.NewNop()).Register(bus)
	NewAuditListener(zap.NewNop()).Register(bus)

	ep := int64(30)
	bus.Publish(context.Background(), events.EntryRequestEvent{
		Type:    events.EntryRequestBpApproved,
		Request: entities.EntryRequest{ID: 1, OwnerCompanyID: 10, TargetBpCompanyID: 20, TargetEpCompanyID: &ep},
	})
	bus.Publish(context.Background(), events.DeploymentEvent{
		Type:       events.DeploymentExtended,
		Deployment: entities.Deployment{ID: 2, OwnerID: 10, BpCompanyID: 20},
	})
	bus.Publish(context.Background(), plainEvent{})
	bus.Wait()

	require.Len(t, pusher.calls, 2)
	assert.Equal(t, []int64{10, 20, 30}, pusher.calls[events.EntryRequestBpApproved])
	assert.Equal(t, []int64{10, 20}, pusher.calls[events.DeploymentExtended])
}

func TestNotificationListener_ReturnsPushErrors(t *testing.T) {
	l := NewNotificationListener(&fakePusher{err: errors.New("closed")}, zap.NewNop())
	err := l.handle(context.Background(), events.EntryRequestEvent{Type: events.EntryRequestCreated})
	assert.Error(t, err)
}
