package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"innkeeper/config"
	postgresMocks "innkeeper/infras/postgres/mocks"
	bookingMocks "innkeeper/internal/domains/booking/mocks"
	"innkeeper/internal/domains/booking/model"
	"innkeeper/internal/domains/booking/model/dto"
	"innkeeper/internal/domains/booking/service"
	roomMocks "innkeeper/internal/domains/room/mocks"
	roomModel "innkeeper/internal/domains/room/model"
	eventMocks "innkeeper/internal/events/mocks"
	cacheMocks "innkeeper/shared/cache/mocks"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"

	otelMocks "innkeeper/infras/otel/mocks"
)

type bookingServiceFixture struct {
	ctrl       *gomock.Controller
	repo       *bookingMocks.MockBooking
	roomRepo   *roomMocks.MockRoom
	transactor *postgresMocks.MockTransactor
	publisher  *eventMocks.MockPublisher
	cache      *cacheMocks.MockRedisCache
	service    service.Booking
}

func newBookingServiceFixture(t *testing.T) *bookingServiceFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &bookingServiceFixture{
		ctrl:       ctrl,
		repo:       bookingMocks.NewMockBooking(ctrl),
		roomRepo:   roomMocks.NewMockRoom(ctrl),
		transactor: postgresMocks.NewMockTransactor(ctrl),
		publisher:  eventMocks.NewMockPublisher(ctrl),
		cache:      cacheMocks.NewMockRedisCache(ctrl),
	}

	f.service = service.New(
		f.repo,
		f.roomRepo,
		f.transactor,
		f.publisher,
		&config.Config{},
		f.cache,
		otelMocks.NewOtel(),
	)

	// Cache invalidation and event publication run off the request path and
	// must never fail a test.
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return f
}

// runTx makes the mock transactor execute the closure with a nil handle. The
// repository calls inside are mocked, so no real transaction is needed.
func runTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func availableRoom() roomModel.Room {
	return roomModel.Room{
		ID:        "room-id-1",
		Name:      "Deluxe Suite",
		Available: true,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
		},
	}
}

func TestBookingService_Reserve(t *testing.T) {
	req := dto.ReserveRoomRequest{
		RoomName:   "Deluxe Suite",
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		Time:       "2025-03-01T10:00:00Z",
	}

	tests := []struct {
		name      string
		setupMock func(f *bookingServiceFixture)
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful reservation",
			setupMock: func(f *bookingServiceFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(availableRoom(), nil)

				f.transactor.EXPECT().
					WithinTx(gomock.Any(), gomock.Any()).
					DoAndReturn(runTx)

				f.roomRepo.EXPECT().
					MarkUnavailableTx(gomock.Any(), gomock.Any(), "Deluxe Suite").
					Return(true, nil)

				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "room does not exist",
			setupMock: func(f *bookingServiceFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(roomModel.Room{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "room already booked",
			setupMock: func(f *bookingServiceFixture) {
				room := availableRoom()
				room.Available = false

				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(room, nil)
			},
			wantErr:  true,
			wantCode: 400,
		},
		{
			name: "claim lost to a concurrent reservation",
			setupMock: func(f *bookingServiceFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(availableRoom(), nil)

				f.transactor.EXPECT().
					WithinTx(gomock.Any(), gomock.Any()).
					DoAndReturn(runTx)

				f.roomRepo.EXPECT().
					MarkUnavailableTx(gomock.Any(), gomock.Any(), "Deluxe Suite").
					Return(false, nil)
			},
			wantErr:  true,
			wantCode: 400,
		},
		{
			name: "insert failure rolls up",
			setupMock: func(f *bookingServiceFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(availableRoom(), nil)

				f.transactor.EXPECT().
					WithinTx(gomock.Any(), gomock.Any()).
					DoAndReturn(runTx)

				f.roomRepo.EXPECT().
					MarkUnavailableTx(gomock.Any(), gomock.Any(), "Deluxe Suite").
					Return(true, nil)

				f.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("insert failed"))
			},
			wantErr:  true,
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingServiceFixture(t)
			tt.setupMock(f)

			res, err := f.service.Reserve(context.Background(), req)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "room-id-1", res.RoomID)
			assert.Equal(t, "Deluxe Suite", res.RoomName)
			assert.Equal(t, model.StatusBooked, res.Status)
			assert.Equal(t, "2025-03-01T10:00:00.000Z", res.BookingDateISO)
			assert.NotEmpty(t, res.ID)
		})
	}
}

func TestBookingService_Reschedule(t *testing.T) {
	req := dto.RescheduleBookingRequest{Time: "2025-04-01T12:00:00Z"}

	t.Run("existing booking is moved", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		res, err := f.service.Reschedule(context.Background(), "booking-id-1", req)

		assert.NoError(t, err)
		assert.True(t, res.Acknowledged)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(1), res.ModifiedCount)
		assert.Empty(t, res.UpsertedID)
		assert.False(t, res.Created())
	})

	t.Run("unknown id creates a schedule row", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		f.repo.EXPECT().
			InsertScheduleTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
				assert.Equal(t, "missing-id", booking.ID)
				assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), booking.BookingDate.UTC())

				return nil
			})

		res, err := f.service.Reschedule(context.Background(), "missing-id", req)

		assert.NoError(t, err)
		assert.True(t, res.Acknowledged)
		assert.Equal(t, int64(0), res.MatchedCount)
		assert.Equal(t, "missing-id", res.UpsertedID)
		assert.True(t, res.Created())
	})

	t.Run("update failure rolls up", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), errors.New("update failed"))

		_, err := f.service.Reschedule(context.Background(), "booking-id-1", req)

		assert.Error(t, err)
	})
}

func TestBookingService_Cancel(t *testing.T) {
	booking := model.Booking{
		ID:          "booking-id-1",
		RoomID:      "room-id-1",
		RoomName:    "Deluxe Suite",
		BookingDate: timezone.Now(),
		Status:      model.StatusBooked,
	}

	t.Run("cancel releases the room by id", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(booking, nil)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		f.roomRepo.EXPECT().
			MarkAvailableTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, nil)

		f.repo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		res, err := f.service.Cancel(context.Background(), "booking-id-1")

		assert.NoError(t, err)
		assert.Equal(t, "Booking deleted successfully.", res.Message)
		assert.Equal(t, int64(1), res.DeletedCount)
	})

	t.Run("cancel falls back to the room name", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		stale := booking
		stale.RoomID = "stale-room-id"

		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(stale, nil)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		gomock.InOrder(
			f.roomRepo.EXPECT().
				MarkAvailableTx(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(false, nil),
			f.roomRepo.EXPECT().
				MarkAvailableTx(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(true, nil),
		)

		f.repo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		res, err := f.service.Cancel(context.Background(), "booking-id-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(1), res.DeletedCount)
	})

	t.Run("unknown booking is not found", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{}, nil)

		_, err := f.service.Cancel(context.Background(), "missing-id")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})

	t.Run("second cancel of the same booking is not found", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		gomock.InOrder(
			f.repo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(booking, nil),
			f.repo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(model.Booking{}, nil),
		)

		f.transactor.EXPECT().
			WithinTx(gomock.Any(), gomock.Any()).
			DoAndReturn(runTx)

		f.roomRepo.EXPECT().
			MarkAvailableTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, nil)

		f.repo.EXPECT().
			DeleteTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		_, err := f.service.Cancel(context.Background(), "booking-id-1")
		assert.NoError(t, err)

		_, err = f.service.Cancel(context.Background(), "booking-id-1")
		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestBookingService_Get(t *testing.T) {
	t.Run("cache hit skips the repository", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.cache.EXPECT().
			Get(gomock.Any(), "booking:get:booking-id-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, value any) error {
				res, ok := value.(*dto.BookingResponse)
				assert.True(t, ok)
				res.ID = "booking-id-1"

				return nil
			})

		res, err := f.service.Get(context.Background(), "booking-id-1")

		assert.NoError(t, err)
		assert.Equal(t, "booking-id-1", res.ID)
	})

	t.Run("cache miss falls through to the repository", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("miss"))
		f.cache.EXPECT().
			Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil).
			AnyTimes()

		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-id-1", RoomName: "Deluxe Suite"}, nil)

		res, err := f.service.Get(context.Background(), "booking-id-1")

		assert.NoError(t, err)
		assert.Equal(t, "Deluxe Suite", res.RoomName)
	})

	t.Run("unknown booking is not found", func(t *testing.T) {
		f := newBookingServiceFixture(t)

		f.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("miss"))

		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{}, nil)

		_, err := f.service.Get(context.Background(), "missing-id")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestBookingService_GetAll(t *testing.T) {
	f := newBookingServiceFixture(t)

	f.cache.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("miss"))
	f.cache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	f.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.Booking{
			{ID: "booking-id-1", RoomName: "Deluxe Suite"},
			{ID: "booking-id-2", RoomName: "Ocean View"},
		}, nil)

	res, err := f.service.GetAll(context.Background(), gDto.QueryParams{}, gDto.FilterGroup{})

	assert.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, "Ocean View", res[1].RoomName)
}
