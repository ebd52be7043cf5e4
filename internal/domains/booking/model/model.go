package model

import (
	"time"

	"innkeeper/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID          = "id"
	FieldRoomID      = "room_id"
	FieldRoomName    = "room_name"
	FieldGuestName   = "guest_name"
	FieldGuestEmail  = "guest_email"
	FieldBookingDate = "booking_date"
	FieldStatus      = "status"

	StatusBooked = "booked"
)

type Booking struct {
	ID          string    `db:"id"`
	RoomID      string    `db:"room_id"`
	RoomName    string    `db:"room_name"`
	GuestName   string    `db:"guest_name"`
	GuestEmail  string    `db:"guest_email"`
	BookingDate time.Time `db:"booking_date"`
	Status      string    `db:"status"`
	model.Metadata
}
