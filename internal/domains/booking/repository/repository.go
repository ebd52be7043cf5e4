package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"innkeeper/infras/otel"
	"innkeeper/infras/postgres"
	"innkeeper/internal/domains/booking/model"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/logger"
	gRepo "innkeeper/shared/repository"
)

type Booking interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, model model.Booking) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) (int64, error)
	DeleteTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (int64, error)
	InsertScheduleTx(ctx context.Context, tx *sqlx.Tx, booking model.Booking) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// InsertScheduleTx creates a booking row carrying only its identity and date
// fields, leaving every other column to its database default. This backs the
// reschedule upsert of an id that has no booking yet.
func (repo *repositoryImpl) InsertScheduleTx(ctx context.Context, tx *sqlx.Tx, booking model.Booking) (err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.InsertScheduleTx")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s) VALUES (:id, :booking_date, :created_at, :modified_at)",
		model.TableName, model.FieldID, model.FieldBookingDate, constant.FieldCreatedAt, constant.FieldModifiedAt,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err = tx.NamedExecContext(ctx, query, booking)
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to insert schedule (%s): %w", model.EntityName, err)
	}

	return nil
}
