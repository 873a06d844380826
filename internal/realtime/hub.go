package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Client represents a single websocket client connection. The actual network
// conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event is a task lifecycle notification pushed to the users a task concerns.
type Event struct {
	Type    string `json:"type"` // task_created, task_reassigned, task_status_changed, task_updated, task_deleted
	TaskID  string `json:"taskId"`
	ActorID string `json:"actorId"`
}

// Hub maintains active user connections and fans events out to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
}

// NewHub constructs an empty hub. One hub serves the whole process; main
// creates it and hands it to the handlers that publish or register.
func NewHub() *Hub {
	return &Hub{
		userIDToClients: make(map[string]map[Client]struct{}),
	}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if the user has no more clients, cleans up.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Publish sends the event to every connected client of each listed user.
// Duplicate user IDs are sent once.
func (h *Hub) Publish(evt Event, userIDs ...string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Println("realtime: marshal event:", err)
		return
	}

	seen := make(map[string]struct{}, len(userIDs))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		for c := range h.userIDToClients[userID] {
			// write failures are cleaned up by the ws handler on its side
			_ = c.Send(payload)
		}
	}
}
