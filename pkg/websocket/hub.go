package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks connected clients per company.
type Hub struct {
	companies  map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		companies:  make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Register closes the client's send channel instead when the hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Run serves registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.companies[client.CompanyID]
			if !ok {
				set = make(map[*Client]struct{})
				h.companies[client.CompanyID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", zap.Int64("userID", client.UserID), zap.Int64("companyID", client.CompanyID))
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.companies {
				for client := range set {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove expects h.mu held.
func (h *Hub) remove(client *Client) {
	set, ok := h.companies[client.CompanyID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.companies, client.CompanyID)
	}
}

// SendToCompanies delivers one envelope to every client of the given
// companies. Slow clients drop the message rather than block the sender.
func (h *Hub) SendToCompanies(companyIDs []int64, messageType string, payload interface{}) (int, error) {
	messageBytes, err := json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	seen := make(map[int64]struct{}, len(companyIDs))
	for _, companyID := range companyIDs {
		if _, dup := seen[companyID]; dup {
			continue
		}
		seen[companyID] = struct{}{}
		for client := range h.companies[companyID] {
			select {
			case client.Send <- messageBytes:
				delivered++
			default:
				h.logger.Warn("websocket client send buffer full", zap.Int64("userID", client.UserID))
			}
		}
	}
	return delivered, nil
}

func (h *Hub) ConnectedCompanies() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.companies)
}
