package domain

import "time"

// EventType enumerates the domain events the platform emits.
type EventType string

const (
	EventSongChanged       EventType = "song_changed"
	EventLivestreamStarted EventType = "livestream_started"
	EventLivestreamEnded   EventType = "livestream_ended"
	EventQueueSwitched     EventType = "queue_switched"
	EventTest              EventType = "test_event"
)

// BroadcastEventTypes lists the types carried on the bus. test_event is
// pushed straight through the delivery path and never published.
func BroadcastEventTypes() []EventType {
	return []EventType{
		EventSongChanged,
		EventLivestreamStarted,
		EventLivestreamEnded,
		EventQueueSwitched,
	}
}

func (t EventType) Valid() bool {
	switch t {
	case EventSongChanged, EventLivestreamStarted, EventLivestreamEnded, EventQueueSwitched, EventTest:
		return true
	}
	return false
}

// Event is a domain event in transit. Events are immutable and exist only
// on the bus and in delivery payloads; nothing persists them.
type Event struct {
	Type        EventType      `json:"event_type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`
	Timestamp   time.Time      `json:"timestamp"`
}
