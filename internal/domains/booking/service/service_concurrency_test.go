package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeeper/config"
	otelMocks "innkeeper/infras/otel/mocks"
	"innkeeper/internal/domains/booking/model"
	"innkeeper/internal/domains/booking/model/dto"
	"innkeeper/internal/domains/booking/service"
	roomModel "innkeeper/internal/domains/room/model"
	"innkeeper/internal/events"
	"innkeeper/shared/cache"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
)

// memoryStore backs the in-memory fakes below. The transactor holds its lock
// for the whole closure, so every transaction observes and mutates a
// consistent snapshot, like rows locked by a conditional update would be.
type memoryStore struct {
	mu       sync.Mutex
	rooms    map[string]*roomModel.Room
	bookings map[string]model.Booking
}

func newMemoryStore(rooms ...roomModel.Room) *memoryStore {
	store := &memoryStore{
		rooms:    make(map[string]*roomModel.Room),
		bookings: make(map[string]model.Booking),
	}

	for i := range rooms {
		room := rooms[i]
		store.rooms[room.Name] = &room
	}

	return store
}

type memoryTransactor struct {
	store *memoryStore
}

func (t *memoryTransactor) WithinTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	return fn(nil)
}

// memoryRoomRepo's Tx methods expect the store lock to be held by the
// transactor; the plain reads take it themselves.
type memoryRoomRepo struct {
	store *memoryStore
}

func (r *memoryRoomRepo) Get(_ context.Context, filter gDto.FilterGroup, _ ...string) (roomModel.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	name := filterValue(filter)

	if room, ok := r.store.rooms[name]; ok {
		return *room, nil
	}

	for _, room := range r.store.rooms {
		if room.ID == name {
			return *room, nil
		}
	}

	return roomModel.Room{}, nil
}

func (r *memoryRoomRepo) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]roomModel.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rooms := make([]roomModel.Room, 0, len(r.store.rooms))
	for _, room := range r.store.rooms {
		rooms = append(rooms, *room)
	}

	return rooms, nil
}

func (r *memoryRoomRepo) MarkUnavailableTx(_ context.Context, _ *sqlx.Tx, name string) (bool, error) {
	room, ok := r.store.rooms[name]
	if !ok || !room.Available {
		return false, nil
	}

	room.Available = false

	return true, nil
}

func (r *memoryRoomRepo) MarkAvailableTx(_ context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) (bool, error) {
	key := filterValue(filter)

	for _, room := range r.store.rooms {
		if room.ID == key || room.Name == key {
			room.Available = true

			return true, nil
		}
	}

	return false, nil
}

type memoryBookingRepo struct {
	store *memoryStore
}

func (r *memoryBookingRepo) Get(_ context.Context, filter gDto.FilterGroup, _ ...string) (model.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.bookings[filterValue(filter)], nil
}

func (r *memoryBookingRepo) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bookings := make([]model.Booking, 0, len(r.store.bookings))
	for _, booking := range r.store.bookings {
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r *memoryBookingRepo) InsertTx(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
	r.store.bookings[booking.ID] = booking

	return nil
}

func (r *memoryBookingRepo) UpdateTx(_ context.Context, _ *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) (int64, error) {
	id := filterValue(filter)

	booking, ok := r.store.bookings[id]
	if !ok {
		return 0, nil
	}

	if date, ok := req[model.FieldBookingDate].(time.Time); ok {
		booking.BookingDate = date
	}

	r.store.bookings[id] = booking

	return 1, nil
}

func (r *memoryBookingRepo) DeleteTx(_ context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) (int64, error) {
	id := filterValue(filter)

	if _, ok := r.store.bookings[id]; !ok {
		return 0, nil
	}

	delete(r.store.bookings, id)

	return 1, nil
}

func (r *memoryBookingRepo) InsertScheduleTx(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
	r.store.bookings[booking.ID] = booking

	return nil
}

// nilCache misses on every read so the services always hit the fakes.
type nilCache struct{}

func (nilCache) Save(context.Context, string, any, int) error { return nil }
func (nilCache) Get(context.Context, string, any) error       { return cache.Nil }
func (nilCache) Delete(context.Context, string) error         { return nil }
func (nilCache) Clear(context.Context, string) error          { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, events.BookingEvent) error { return nil }

func filterValue(filter gDto.FilterGroup) string {
	for _, raw := range filter.Filters {
		if f, ok := raw.(gDto.Filter); ok {
			if value, ok := f.Value.(string); ok {
				return value
			}
		}
	}

	return ""
}

func newConcurrencyService(store *memoryStore) service.Booking {
	return service.New(
		&memoryBookingRepo{store: store},
		&memoryRoomRepo{store: store},
		&memoryTransactor{store: store},
		nopPublisher{},
		&config.Config{},
		nilCache{},
		otelMocks.NewOtel(),
	)
}

// One room, many simultaneous reservations: exactly one caller wins, every
// other caller gets the already-booked conflict, and exactly one booking row
// exists afterwards.
func TestBookingService_ConcurrentReserve(t *testing.T) {
	const attempts = 64

	store := newMemoryStore(roomModel.Room{ID: "room-id-1", Name: "Deluxe Suite", Available: true})
	svc := newConcurrencyService(store)

	var wg sync.WaitGroup

	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, errs[i] = svc.Reserve(context.Background(), dto.ReserveRoomRequest{RoomName: "Deluxe Suite"})
		}(i)
	}

	wg.Wait()

	successes := 0

	for _, err := range errs {
		if err == nil {
			successes++

			continue
		}

		assert.Equal(t, 400, failure.GetCode(err))
		assert.Contains(t, err.Error(), "already booked")
	}

	assert.Equal(t, 1, successes)
	assert.Len(t, store.bookings, 1)
	assert.False(t, store.rooms["Deluxe Suite"].Available)
}

// Cancelling the winning booking releases the room for the next reservation.
func TestBookingService_ReserveCancelReserve(t *testing.T) {
	store := newMemoryStore(roomModel.Room{ID: "room-id-1", Name: "Deluxe Suite", Available: true})
	svc := newConcurrencyService(store)

	first, err := svc.Reserve(context.Background(), dto.ReserveRoomRequest{RoomName: "Deluxe Suite"})
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), dto.ReserveRoomRequest{RoomName: "Deluxe Suite"})
	require.Error(t, err)
	assert.Equal(t, 400, failure.GetCode(err))

	cancelled, err := svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled.DeletedCount)
	assert.True(t, store.rooms["Deluxe Suite"].Available)

	second, err := svc.Reserve(context.Background(), dto.ReserveRoomRequest{RoomName: "Deluxe Suite"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}
