package websocket

import (
	"encoding/json"
	"sync"
)

// WalletEvent is pushed to an account owner's connected clients after a
// ledger mutation commits. Delivery is best-effort; a slow or absent client
// never blocks or rolls back the mutation.
type WalletEvent struct {
	AccountID     string `json:"account_id"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[*Client]struct{})
	}
	h.clients[ownerID][client] = struct{}{}
}

func (h *Hub) Unregister(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		return
	}
	delete(h.clients[ownerID], client)
	if len(h.clients[ownerID]) == 0 {
		delete(h.clients, ownerID)
	}
}

func (h *Hub) BroadcastWalletEvent(ownerID string, event WalletEvent) {
	payload, _ := json.Marshal(event)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[ownerID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
