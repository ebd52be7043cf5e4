package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"innkeeper/infras/otel"
	"innkeeper/infras/postgres"
	"innkeeper/internal/domains/room/model"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/logger"
	gRepo "innkeeper/shared/repository"
	"innkeeper/shared/timezone"
)

type Room interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	MarkUnavailableTx(ctx context.Context, tx *sqlx.Tx, name string) (bool, error)
	MarkAvailableTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// MarkUnavailableTx flips the named room to unavailable, but only when it is
// still available. The conditional update is the serialization point that
// keeps two concurrent reservations from both claiming the same room: the
// loser sees zero rows affected and reports false.
func (repo *repositoryImpl) MarkUnavailableTx(ctx context.Context, tx *sqlx.Tx, name string) (ok bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.MarkUnavailableTx")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := fmt.Sprintf(
		"UPDATE %s SET %s = FALSE, %s = :modified_at WHERE %s = :name AND %s = TRUE",
		model.TableName, model.FieldAvailable, constant.FieldModifiedAt, model.FieldName, model.FieldAvailable,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := tx.NamedExecContext(ctx, query, map[string]any{
		"name":        name,
		"modified_at": timezone.Now(),
	})
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to mark room unavailable (%s): %w", model.EntityName, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to count updated rooms (%s): %w", model.EntityName, err)
	}

	return affected > 0, nil
}

// MarkAvailableTx restores availability on the room(s) matched by the filter,
// reporting whether any row was touched.
func (repo *repositoryImpl) MarkAvailableTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (ok bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.MarkAvailableTx")
	defer scope.End()
	defer scope.TraceIfError(err)

	where, args := repo.BuildWhereClause(ctx, filter)
	if where == "" {
		return false, fmt.Errorf("failed to mark room available (%s): filter is required", model.EntityName)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = TRUE, %s = :modified_at %s",
		model.TableName, model.FieldAvailable, constant.FieldModifiedAt, where,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	args["modified_at"] = timezone.Now()

	result, err := tx.NamedExecContext(ctx, query, args)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to mark room available (%s): %w", model.EntityName, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to count updated rooms (%s): %w", model.EntityName, err)
	}

	return affected > 0, nil
}
