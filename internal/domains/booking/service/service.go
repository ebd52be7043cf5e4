package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"innkeeper/config"
	"innkeeper/infras/otel"
	"innkeeper/infras/postgres"
	"innkeeper/internal/domains/booking/model"
	"innkeeper/internal/domains/booking/model/dto"
	"innkeeper/internal/domains/booking/repository"
	roomModel "innkeeper/internal/domains/room/model"
	roomRepo "innkeeper/internal/domains/room/repository"
	"innkeeper/internal/events"
	"innkeeper/shared"
	"innkeeper/shared/cache"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"

	// Booking transitions flip room availability, so the room service cache
	// prefixes are invalidated here as well.
	cacheGetRoom    = "room:get"
	cacheGetAllRoom = "room:gets"
)

const (
	msgRoomNotFound    = "room not found"
	msgBookingNotFound = "booking not found"
	msgRoomUnavailable = "This room is already booked."
	msgBookingDeleted  = "Booking deleted successfully."
)

// Booking enforces the reservation state machine: a room can be booked at
// most once while it is marked available, and cancelling the booking restores
// the room's availability. Both transitions run their two writes inside one
// transaction, with the conditional room update as the serialization point.
type Booking interface {
	Reserve(ctx context.Context, req dto.ReserveRoomRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) ([]dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	Reschedule(ctx context.Context, id string, req dto.RescheduleBookingRequest) (dto.UpsertScheduleResponse, error)
	Cancel(ctx context.Context, id string) (dto.CancelBookingResponse, error)
}

type serviceImpl struct {
	repo       repository.Booking
	roomRepo   roomRepo.Room
	transactor postgres.Transactor
	publisher  events.Publisher
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	transactor postgres.Transactor,
	publisher events.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:       repo,
		roomRepo:   roomRepo,
		transactor: transactor,
		publisher:  publisher,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
	}
}

func (s *serviceImpl) Reserve(ctx context.Context, req dto.ReserveRoomRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reserve")
	defer scope.End()
	defer scope.TraceIfError(err)

	room, err := s.roomRepo.Get(ctx, shared.FilterByField(req.RoomName, roomModel.FieldName, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room for reservation")

		return res, fmt.Errorf("failed to get room for reservation: %w", err)
	}

	if room.ID == constant.Empty {
		return res, failure.NotFound(msgRoomNotFound) // nolint:wrapcheck
	}

	if !room.Available {
		return res, failure.BadRequestFromString(msgRoomUnavailable) // nolint:wrapcheck
	}

	booking := req.ToModel(room, timezone.Now())

	err = s.transactor.WithinTx(ctx, func(tx *sqlx.Tx) error {
		claimed, txErr := s.roomRepo.MarkUnavailableTx(ctx, tx, room.Name)
		if txErr != nil {
			return fmt.Errorf("failed to claim room: %w", txErr)
		}

		if !claimed {
			// Lost the race against a concurrent reservation.
			return failure.BadRequestFromString(msgRoomUnavailable) // nolint:wrapcheck
		}

		return s.repo.InsertTx(ctx, tx, booking)
	})
	if err != nil {
		log.Error().Err(err).Str("roomName", req.RoomName).Msg("failed to reserve room")

		return res, err
	}

	scope.AddEvent("Room " + room.Name + " reserved")

	s.publishEvent(ctx, events.TopicBookingCreated, booking)

	go s.invalidateCaches(ctx, booking.RoomID, booking.ID)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res = dto.FromModels(models)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound(msgBookingNotFound) // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// Reschedule upserts the booking's date. An id with no booking gets a partial
// row carrying only its identity and date fields, with every other column on
// its database default.
func (s *serviceImpl) Reschedule(ctx context.Context, id string, req dto.RescheduleBookingRequest) (res dto.UpsertScheduleResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reschedule")
	defer scope.End()
	defer scope.TraceIfError(err)

	newDate := dto.ParseTimeOrNow(req.Time)
	now := timezone.Now()

	var matched int64

	created := false

	err = s.transactor.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error

		matched, txErr = s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldBookingDate:   newDate,
			constant.FieldModifiedAt: now,
		}, shared.FilterByID(id, model.FieldID, model.TableName))
		if txErr != nil {
			return txErr
		}

		if matched == 0 {
			created = true

			return s.repo.InsertScheduleTx(ctx, tx, model.Booking{
				ID:          id,
				BookingDate: newDate,
				Metadata: gModel.Metadata{
					CreatedAt:  now,
					ModifiedAt: now,
				},
			})
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to reschedule booking")

		return res, err
	}

	res = dto.UpsertScheduleResponse{
		Acknowledged:  true,
		MatchedCount:  matched,
		ModifiedCount: matched,
	}
	if created {
		res.UpsertedID = id
	}

	s.publishEvent(ctx, events.TopicBookingRescheduled, model.Booking{ID: id, BookingDate: newDate})

	go s.invalidateCaches(ctx, constant.Empty, id)

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id string) (res dto.CancelBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking for cancellation")

		return res, fmt.Errorf("failed to get booking for cancellation: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound(msgBookingNotFound) // nolint:wrapcheck
	}

	var deleted int64

	err = s.transactor.WithinTx(ctx, func(tx *sqlx.Tx) error {
		restored, txErr := s.restoreRoomTx(ctx, tx, booking)
		if txErr != nil {
			return txErr
		}

		if !restored {
			log.Warn().Str("bookingID", id).Msg("no room resolved for cancelled booking, availability left untouched")
		}

		deleted, txErr = s.repo.DeleteTx(ctx, tx, shared.FilterByID(id, model.FieldID, model.TableName))
		if txErr != nil {
			return txErr
		}

		if deleted == 0 {
			// The booking disappeared between the read and the delete.
			return failure.NotFound(msgBookingNotFound) // nolint:wrapcheck
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to cancel booking")

		return res, err
	}

	scope.AddEvent("Booking " + id + " cancelled")

	s.publishEvent(ctx, events.TopicBookingCancelled, booking)

	go s.invalidateCaches(ctx, booking.RoomID, booking.ID)

	return dto.CancelBookingResponse{
		Message:      msgBookingDeleted,
		DeletedCount: deleted,
	}, nil
}

// restoreRoomTx resolves the room owning the booking, preferring the identity
// reference over the display-cache name, and marks it available again.
// Resolution is best-effort: an orphaned booking does not fail the cancel.
func (s *serviceImpl) restoreRoomTx(ctx context.Context, tx *sqlx.Tx, booking model.Booking) (bool, error) {
	if booking.RoomID != constant.Empty {
		restored, err := s.roomRepo.MarkAvailableTx(ctx, tx, shared.FilterByID(booking.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			return false, fmt.Errorf("failed to restore room availability: %w", err)
		}

		if restored {
			return true, nil
		}
	}

	if booking.RoomName == constant.Empty {
		return false, nil
	}

	restored, err := s.roomRepo.MarkAvailableTx(ctx, tx, shared.FilterByField(booking.RoomName, roomModel.FieldName, roomModel.TableName))
	if err != nil {
		return false, fmt.Errorf("failed to restore room availability: %w", err)
	}

	return restored, nil
}

func (s *serviceImpl) publishEvent(ctx context.Context, topic string, booking model.Booking) {
	_ = s.publisher.Publish(ctx, topic, events.BookingEvent{
		BookingID:   booking.ID,
		RoomID:      booking.RoomID,
		RoomName:    booking.RoomName,
		BookingDate: booking.BookingDate,
		OccurredAt:  timezone.Now(),
	})
}

func (s *serviceImpl) invalidateCaches(ctx context.Context, roomID, bookingID string) {
	c := context.WithoutCancel(ctx)

	shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, bookingID)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	if roomID == constant.Empty {
		return
	}

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetRoom, roomID)); err != nil {
		log.Error().Err(err).Msg("failed to delete room from cache")
	}
}
