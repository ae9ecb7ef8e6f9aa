package ports

import (
	"github.com/predix/api/internal/core/domain"
)

// Broadcaster fans accepted state changes out to connected clients.
// Publish is fire-and-forget: it never blocks the caller, gives no
// delivery acknowledgement, and absorbs failures instead of surfacing
// them. A client that misses an event recovers via the snapshot fetch.
type Broadcaster interface {
	Publish(event domain.Event)
	// PublishExcept skips the connection identified by clientID, so the
	// originator of a mutation is not echoed its own update. An unknown
	// or empty clientID behaves like Publish.
	PublishExcept(event domain.Event, clientID string)
}
