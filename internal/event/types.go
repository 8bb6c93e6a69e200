// internal/event/types.go
package event

import "time"

// Wildcard is the subscription name that receives every event.
const Wildcard = "*"

// Event is implemented by everything published on a Bus.
type Event interface {
	// EventName identifies the event, e.g. "transport.connected".
	EventName() string
	// Timestamp is when the event was created.
	Timestamp() time.Time
}

// Base carries the name and timestamp. Embed it in concrete events.
type Base struct {
	name string
	at   time.Time
}

// NewBase stamps an event name with the current time.
func NewBase(name string) Base {
	return Base{name: name, at: time.Now()}
}

func (b Base) EventName() string    { return b.name }
func (b Base) Timestamp() time.Time { return b.at }
