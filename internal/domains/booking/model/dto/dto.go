package dto

import (
	"time"

	"github.com/google/uuid"

	"innkeeper/internal/domains/booking/model"
	roomModel "innkeeper/internal/domains/room/model"
	"innkeeper/shared/constant"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"
)

type ReserveRoomRequest struct {
	RoomName   string `json:"roomName"   validate:"required,max=100"`
	GuestName  string `json:"guestName"  validate:"omitempty,max=100"`
	GuestEmail string `json:"guestEmail" validate:"omitempty,email,max=100"`
	Time       string `json:"time"       validate:"omitempty"`
}

func (r *ReserveRoomRequest) ToModel(room roomModel.Room, acceptedAt time.Time) model.Booking {
	return model.Booking{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		RoomName:    room.Name,
		GuestName:   r.GuestName,
		GuestEmail:  r.GuestEmail,
		BookingDate: ParseTimeOrNow(r.Time),
		Status:      model.StatusBooked,
		Metadata: gModel.Metadata{
			CreatedAt:  acceptedAt,
			ModifiedAt: acceptedAt,
		},
	}
}

type RescheduleBookingRequest struct {
	Time string `json:"time" validate:"omitempty"`
}

// ParseTimeOrNow reads an RFC3339 instant, falling back to the human-readable
// wall-clock form. An absent or unparsable value defaults to now.
func ParseTimeOrNow(value string) time.Time {
	if value == constant.Empty {
		return timezone.Now()
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}

	if t, err := timezone.Parse(constant.DateTimeFormat, value); err == nil {
		return t
	}

	return timezone.Now()
}

type BookingResponse struct {
	ID             string `json:"id"`
	RoomID         string `json:"roomId"`
	RoomName       string `json:"roomName"`
	GuestName      string `json:"guestName,omitempty"`
	GuestEmail     string `json:"guestEmail,omitempty"`
	BookingDate    string `json:"bookingDate"`
	BookingDateISO string `json:"bookingDateISO"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt"`
	CreatedAtISO   string `json:"createdAtISO"`
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.RoomName = model.RoomName
	r.GuestName = model.GuestName
	r.GuestEmail = model.GuestEmail
	r.BookingDate = timezone.Format(model.BookingDate, constant.DateTimeFormat)
	r.BookingDateISO = model.BookingDate.UTC().Format(constant.DateFormatISO)
	r.Status = model.Status
	r.CreatedAt = timezone.Format(model.CreatedAt, constant.DateTimeFormat)
	r.CreatedAtISO = model.CreatedAt.UTC().Format(constant.DateFormatISO)
}

func FromModels(models []model.Booking) []BookingResponse {
	bookings := make([]BookingResponse, len(models))
	for i, mod := range models {
		bookings[i].FromModel(mod)
	}

	return bookings
}

type ReserveRoomResponse struct {
	Message string          `json:"message"`
	Result  BookingResponse `json:"result"`
}

// UpsertScheduleResponse reports a reschedule outcome as an update result:
// matched and modified counts, plus the upserted id when the target booking
// did not exist and a row was created for it.
type UpsertScheduleResponse struct {
	Acknowledged  bool   `json:"acknowledged"`
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}

func (r *UpsertScheduleResponse) Created() bool {
	return r.UpsertedID != constant.Empty
}

type CancelBookingResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}
