// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to connected clients. Events are scoped
// to a tenant; only that tenant's connections (and platform operators, who
// subscribe without a tenant) receive them.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, tenantID, eventType string, payload any)
}
