package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventTripPosted    = "trip_posted"
	EventTripCompleted = "trip_completed"
	EventRideMatched   = "ride_request_matched"
	EventRideUnmatched = "ride_request_unmatched"
)

// TripEventPayload is the trip snapshot carried by trip events.
type TripEventPayload struct {
	TripID      int64  `json:"trip_id"`
	DriverID    int64  `json:"driver_id"`
	DriverPhone string `json:"driver_phone,omitempty"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	TripDate    string `json:"trip_date,omitempty"`
	TripTime    string `json:"trip_time,omitempty"`
	SeatsLeft   int    `json:"seats_left"`
}

// MatchEventPayload describes a ride request bound to a trip.
type MatchEventPayload struct {
	RequestID      int64  `json:"request_id"`
	TripID         int64  `json:"trip_id"`
	BookingID      int64  `json:"booking_id"`
	PassengerID    int64  `json:"passenger_id"`
	PassengerPhone string `json:"passenger_phone,omitempty"`
	DriverPhone    string `json:"driver_phone,omitempty"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	Seats          int    `json:"seats"`
}

// Event is a lightweight in-process domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

type EventHandler func(event *Event) error

// EventBus is a synchronous in-process pub/sub. Handlers run on the
// publisher's goroutine; handler errors are swallowed so one slow or broken
// subscriber cannot fail the publishing operation.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
