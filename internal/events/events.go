package events

import "time"

const (
	TopicBookingCreated     = "booking.created"
	TopicBookingRescheduled = "booking.rescheduled"
	TopicBookingCancelled   = "booking.cancelled"
)

// BookingEvent is the payload published on every booking state transition.
type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	RoomID      string    `json:"room_id,omitempty"`
	RoomName    string    `json:"room_name,omitempty"`
	BookingDate time.Time `json:"booking_date"`
	OccurredAt  time.Time `json:"occurred_at"`
}
