package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventNotificationCreated = "notification.created"
	EventTenantSuspended     = "tenant.suspended"
)

// NotificationCreatedEvent is broadcast when fan-out writes a new in-app
// notification, so signed-in clients can bump unread badges without polling.
type NotificationCreatedEvent struct {
	TenantID  string `json:"tenant_id"`
	Pool      string `json:"pool"` // "member" or "admin"
	Recipient string `json:"recipient"`
	Category  string `json:"category"`
	Title     string `json:"title"`
}

// TenantSuspendedEvent is broadcast when an operator toggles suspension, so
// open sessions of that tenant can switch to the suspension page.
type TenantSuspendedEvent struct {
	TenantID  string `json:"tenant_id"`
	Suspended bool   `json:"suspended"`
	Reason    string `json:"reason,omitempty"`
}

// BroadcastEvent marshals a typed event and broadcasts it to the
// connections of tenantID. An empty tenantID reaches every connection.
func (h *Hub) BroadcastEvent(ctx context.Context, tenantID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, tenantID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
