package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// Type classifies an entry for display.
type Type string

// Entry types.
const (
	TypeInfo  Type = "info"
	TypeAlert Type = "alert"
)

// Door events.
const (
	EventDoorOpened = "Door Opened"
	EventDoorClosed = "Door Closed"
)

// Entry is one immutable line of the activity log.
type Entry struct {
	ID        string
	Timestamp time.Time
	Event     string
	Type      Type
}

type entryJSON struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Event     string `json:"event"`
	Type      Type   `json:"type"`
}

// MarshalJSON encodes Timestamp as epoch milliseconds.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:        e.ID,
		Timestamp: e.Timestamp.UnixMilli(),
		Event:     e.Event,
		Type:      e.Type,
	})
}

// UnmarshalJSON decodes the epoch-millisecond form written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{
		ID:        raw.ID,
		Timestamp: time.UnixMilli(raw.Timestamp).UTC(),
		Event:     raw.Event,
		Type:      raw.Type,
	}
	return nil
}

// Validate checks that e can be stored.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidEntry)
	}
	if e.Event == "" {
		return fmt.Errorf("%w: event is empty", ErrInvalidEntry)
	}
	if e.Type != TypeInfo && e.Type != TypeAlert {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}
	return nil
}

// doorEntry builds the entry for a transition into door.
func doorEntry(door device.DoorStatus, at time.Time) Entry {
	event := EventDoorClosed
	if door == device.DoorOpen {
		event = EventDoorOpened
	}
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: at,
		Event:     event,
		Type:      TypeInfo,
	}
}
