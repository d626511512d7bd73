package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

// ResourceRepositoryInterface is the resource registry: equipment and worker
// master records as far as the workflow needs them.
type ResourceRepositoryInterface interface {
	// GetClassifications returns one entry per id that exists; missing ids are
	// simply absent from the map.
	GetClassifications(ctx context.Context, targetType entities.TargetType, ids []int64) (map[int64]entities.Classification, error)
	AssignWorkerToEquipment(ctx context.Context, tx pgx.Tx, equipmentID, workerID int64) error
	FindWorkerIDByUserID(ctx context.Context, userID int64) (int64, error)
}

type resourceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewResourceRepository(storage *pgxpool.Pool, logger *zap.Logger) ResourceRepositoryInterface {
	return &resourceRepository{storage: storage, logger: logger}
}

func (r *resourceRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func classificationQuery(targetType entities.TargetType) (sq.SelectBuilder, error) {
	switch targetType {
	case entities.TargetEquipment:
		return psql.Select("id", "equipment_type_id", "name").From("equipment"), nil
	case entities.TargetWorker:
		return psql.Select("id", "worker_type_id", "name").From("workers"), nil
	}
	return sq.SelectBuilder{}, apperrors.DataIntegrity("unknown target type %q", targetType)
}

func (r *resourceRepository) GetClassifications(ctx context.Context, targetType entities.TargetType, ids []int64) (map[int64]entities.Classification, error) {
	result := make(map[int64]entities.Classification, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	b, err := classificationQuery(targetType)
	if err != nil {
		return nil, err
	}
	query, args, err := b.Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build classification query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s classifications: %w", targetType, err)
	}
	defer rows.Close()

	for rows.Next() {
		c := entities.Classification{TargetType: targetType}
		if err := rows.Scan(&c.TargetID, &c.ClassificationID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		result[c.TargetID] = c
	}
	return result, rows.Err()
}

// AssignWorkerToEquipment is idempotent: repeating it with the same pair leaves
// the row unchanged.
func (r *resourceRepository) AssignWorkerToEquipment(ctx context.Context, tx pgx.Tx, equipmentID, workerID int64) error {
	query, args, err := psql.Update("equipment").
		Set("assigned_worker_id", workerID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": equipmentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build assignment query: %w", err)
	}

	res, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to assign worker %d to equipment %d: %w", workerID, equipmentID, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("equipment %d: %w", equipmentID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *resourceRepository) FindWorkerIDByUserID(ctx context.Context, userID int64) (int64, error) {
	query, args, err := psql.Select("id").From("workers").Where(sq.Eq{"user_id": userID}).OrderBy("id").Limit(1).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build worker lookup: %w", err)
	}

	var workerID int64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&workerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to look up worker for user %d: %w", userID, err)
	}
	return workerID, nil
}
