package dto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"innkeeper/internal/domains/booking/model"
	"innkeeper/internal/domains/booking/model/dto"
	roomModel "innkeeper/internal/domains/room/model"
	"innkeeper/shared/constant"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"
)

func TestParseTimeOrNow(t *testing.T) {
	t.Run("parses RFC3339", func(t *testing.T) {
		got := dto.ParseTimeOrNow("2025-03-01T10:00:00Z")

		assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), got.UTC())
	})

	t.Run("parses the wall-clock form in the app timezone", func(t *testing.T) {
		got := dto.ParseTimeOrNow("2025-03-01 10:00:00")

		want := time.Date(2025, 3, 1, 10, 0, 0, 0, timezone.GetLocation())
		assert.True(t, want.Equal(got))
	})

	t.Run("empty value defaults to now", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		got := dto.ParseTimeOrNow("")
		after := time.Now().Add(time.Second)

		assert.True(t, got.After(before) && got.Before(after))
	})

	t.Run("garbage defaults to now", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		got := dto.ParseTimeOrNow("next tuesday")
		after := time.Now().Add(time.Second)

		assert.True(t, got.After(before) && got.Before(after))
	})
}

func TestBookingResponse_FromModel(t *testing.T) {
	bookingDate := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	createdAt := time.Date(2025, 2, 20, 8, 30, 0, 0, time.UTC)

	booking := model.Booking{
		ID:          "booking-id-1",
		RoomID:      "room-id-1",
		RoomName:    "Deluxe Suite",
		GuestName:   "Ada Lovelace",
		GuestEmail:  "ada@example.com",
		BookingDate: bookingDate,
		Status:      model.StatusBooked,
		Metadata: gModel.Metadata{
			CreatedAt:  createdAt,
			ModifiedAt: createdAt,
		},
	}

	var res dto.BookingResponse

	res.FromModel(booking)

	assert.Equal(t, "booking-id-1", res.ID)
	assert.Equal(t, "room-id-1", res.RoomID)
	assert.Equal(t, "Deluxe Suite", res.RoomName)
	assert.Equal(t, model.StatusBooked, res.Status)

	// The ISO rendering is always UTC with millisecond precision; the plain
	// rendering is the wall clock in the application timezone.
	assert.Equal(t, "2025-03-01T10:00:00.000Z", res.BookingDateISO)
	assert.Equal(t, timezone.Format(bookingDate, constant.DateTimeFormat), res.BookingDate)
	assert.Equal(t, "2025-02-20T08:30:00.000Z", res.CreatedAtISO)
	assert.Equal(t, timezone.Format(createdAt, constant.DateTimeFormat), res.CreatedAt)
}

func TestReserveRoomRequest_ToModel(t *testing.T) {
	room := roomModel.Room{ID: "room-id-1", Name: "Deluxe Suite", Available: true}
	acceptedAt := timezone.Now()

	req := dto.ReserveRoomRequest{
		RoomName:   "Deluxe Suite",
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		Time:       "2025-03-01T10:00:00Z",
	}

	booking := req.ToModel(room, acceptedAt)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "room-id-1", booking.RoomID)
	assert.Equal(t, "Deluxe Suite", booking.RoomName)
	assert.Equal(t, "Ada Lovelace", booking.GuestName)
	assert.Equal(t, model.StatusBooked, booking.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), booking.BookingDate.UTC())
	assert.Equal(t, acceptedAt, booking.CreatedAt)

	other := req.ToModel(room, acceptedAt)
	assert.NotEqual(t, booking.ID, other.ID)
}

func TestUpsertScheduleResponse_Created(t *testing.T) {
	updated := dto.UpsertScheduleResponse{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}
	assert.False(t, updated.Created())

	created := dto.UpsertScheduleResponse{Acknowledged: true, UpsertedID: "booking-id-1"}
	assert.True(t, created.Created())
}
