package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_SendToCompanies(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	owner := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 1, CompanyID: 10}
	bp := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 2, CompanyID: 20}
	other := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 3, CompanyID: 30}
	hub.Register(owner)
	hub.Register(bp)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.ConnectedCompanies() == 3 }, time.Second, 5*time.Millisecond)

	n, err := hub.SendToCompanies([]int64{10, 20, 20}, "entry_request.created", map[string]int{"id": 5})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var env Envelope
	require.NoError(t, json.Unmarshal(<-owner.Send, &env))
	assert.Equal(t, "entry_request.created", env.Type)
	assert.Len(t, bp.Send, 1)
	assert.Len(t, other.Send, 0)

	hub.Unregister(other)
	require.Eventually(t, func() bool { return hub.ConnectedCompanies() == 2 }, time.Second, 5*time.Millisecond)
	_, open := <-other.Send
	assert.False(t, open)

	cancel()
	<-done
	assert.Equal(t, 0, hub.ConnectedCompanies())
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	late := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 4, CompanyID: 40}
	hub.Register(late)
	hub.Unregister(late)

	_, open := <-late.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedCompanies())
}
