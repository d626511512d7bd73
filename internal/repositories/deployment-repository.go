package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

const (
	deploymentTable  = "deployments"
	deploymentFields = `id, entry_request_id, equipment_id, worker_id, owner_id, bp_company_id, ep_company_id,
		start_date, planned_end_date, actual_end_date, status, site_name, work_description,
		daily_rate::float8, overtime_rate::float8, monthly_rate::float8, created_at, updated_at`

	deploymentNoteTable  = "deployment_notes"
	deploymentNoteFields = "id, deployment_id, kind, reason, actor_id, old_value, new_value, created_at"
)

var deploymentInsertColumns = []string{
	"entry_request_id", "equipment_id", "worker_id", "owner_id", "bp_company_id", "ep_company_id",
	"start_date", "planned_end_date", "status", "site_name", "work_description",
	"daily_rate", "overtime_rate", "monthly_rate",
}

type DeploymentRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, d *entities.Deployment) (int64, error)
	// EnsureForEntryRequest inserts unless a deployment for the same entry
	// request and equipment already exists. created reports which happened.
	EnsureForEntryRequest(ctx context.Context, tx pgx.Tx, d *entities.Deployment) (created bool, err error)
	FindByID(ctx context.Context, tx pgx.Tx, id int64) (*entities.Deployment, error)
	FindForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*entities.Deployment, error)
	List(ctx context.Context, filter entities.DeploymentFilter) ([]*entities.Deployment, uint64, error)
	UpdateEndDate(ctx context.Context, tx pgx.Tx, id int64, plannedEnd time.Time) error
	UpdateWorker(ctx context.Context, tx pgx.Tx, id int64, workerID int64) error
	Complete(ctx context.Context, tx pgx.Tx, id int64, actualEnd time.Time) error
	AddNote(ctx context.Context, tx pgx.Tx, note entities.DeploymentNote) error
	ListNotes(ctx context.Context, deploymentID int64) ([]entities.DeploymentNote, error)
}

type deploymentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDeploymentRepository(storage *pgxpool.Pool, logger *zap.Logger) DeploymentRepositoryInterface {
	return &deploymentRepository{storage: storage, logger: logger}
}

func (r *deploymentRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *deploymentRepository) scanRow(row pgx.Row) (*entities.Deployment, error) {
	var d entities.Deployment
	var status string

	err := row.Scan(
		&d.ID, &d.EntryRequestID, &d.EquipmentID, &d.WorkerID, &d.OwnerID, &d.BpCompanyID, &d.EpCompanyID,
		&d.StartDate, &d.PlannedEndDate, &d.ActualEndDate, &status, &d.SiteName, &d.WorkDescription,
		&d.Rates.Daily, &d.Rates.Overtime, &d.Rates.Monthly, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan deployments: %w", err)
	}

	if d.Status, err = entities.ParseDeploymentStatus(status); err != nil {
		r.logger.Error("deployment has a status outside the enum", zap.Int64("deploymentID", d.ID), zap.String("status", status))
		return nil, err
	}
	return &d, nil
}

func deploymentValues(d *entities.Deployment) []interface{} {
	return []interface{}{
		d.EntryRequestID, d.EquipmentID, d.WorkerID, d.OwnerID, d.BpCompanyID, d.EpCompanyID,
		d.StartDate, d.PlannedEndDate, string(d.Status), d.SiteName, d.WorkDescription,
		d.Rates.Daily, d.Rates.Overtime, d.Rates.Monthly,
	}
}

func (r *deploymentRepository) Create(ctx context.Context, tx pgx.Tx, d *entities.Deployment) (int64, error) {
	query, args, err := psql.Insert(deploymentTable).
		Columns(deploymentInsertColumns...).
		Values(deploymentValues(d)...).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build deployment insert: %w", err)
	}

	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, apperrors.ErrConflict
			case "23503":
				return 0, apperrors.NewInvalidInputError("deployment references a missing record: %s", pgErr.ConstraintName)
			}
		}
		return 0, fmt.Errorf("failed to insert deployment: %w", err)
	}
	return d.ID, nil
}

func (r *deploymentRepository) EnsureForEntryRequest(ctx context.Context, tx pgx.Tx, d *entities.Deployment) (bool, error) {
	query, args, err := psql.Insert(deploymentTable).
		Columns(deploymentInsertColumns...).
		Values(deploymentValues(d)...).
		Suffix("ON CONFLICT (entry_request_id, equipment_id) DO NOTHING RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build deployment upsert: %w", err)
	}

	err = r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert deployment: %w", err)
	}
	return true, nil
}

func (r *deploymentRepository) FindByID(ctx context.Context, tx pgx.Tx, id int64) (*entities.Deployment, error) {
	query, args, err := psql.Select(deploymentFields).From(deploymentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build deployment query: %w", err)
	}
	return r.scanRow(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *deploymentRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*entities.Deployment, error) {
	query, args, err := psql.Select(deploymentFields).From(deploymentTable).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build deployment lock query: %w", err)
	}
	return r.scanRow(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func applyDeploymentFilter(b sq.SelectBuilder, f entities.DeploymentFilter) sq.SelectBuilder {
	if f.OwnerID != nil {
		b = b.Where(sq.Eq{"owner_id": *f.OwnerID})
	}
	if f.BpCompanyID != nil {
		b = b.Where(sq.Eq{"bp_company_id": *f.BpCompanyID})
	}
	if f.EpCompanyID != nil {
		b = b.Where(sq.Eq{"ep_company_id": *f.EpCompanyID})
	}
	if f.WorkerID != nil {
		b = b.Where(sq.Eq{"worker_id": *f.WorkerID})
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"status": string(*f.Status)})
	}
	return b
}

func (r *deploymentRepository) List(ctx context.Context, f entities.DeploymentFilter) ([]*entities.Deployment, uint64, error) {
	countQuery, countArgs, err := applyDeploymentFilter(psql.Select("COUNT(*)").From(deploymentTable), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count deployments: %w", err)
	}
	if total == 0 {
		return []*entities.Deployment{}, 0, nil
	}

	b := applyDeploymentFilter(psql.Select(deploymentFields).From(deploymentTable), f).OrderBy("start_date DESC", "id DESC")
	if f.Limit > 0 {
		b = b.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.Deployment, 0)
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, d)
	}
	return list, total, rows.Err()
}

func (r *deploymentRepository) update(ctx context.Context, tx pgx.Tx, id int64, set map[string]interface{}) error {
	set["updated_at"] = sq.Expr("NOW()")
	query, args, err := psql.Update(deploymentTable).
		SetMap(set).
		Where(sq.Eq{"id": id, "status": string(entities.DeploymentActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build deployment update: %w", err)
	}

	res, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update deployment %d: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.ErrStaleState
	}
	return nil
}

func (r *deploymentRepository) UpdateEndDate(ctx context.Context, tx pgx.Tx, id int64, plannedEnd time.Time) error {
	return r.update(ctx, tx, id, map[string]interface{}{"planned_end_date": plannedEnd})
}

func (r *deploymentRepository) UpdateWorker(ctx context.Context, tx pgx.Tx, id int64, workerID int64) error {
	return r.update(ctx, tx, id, map[string]interface{}{"worker_id": workerID})
}

func (r *deploymentRepository) Complete(ctx context.Context, tx pgx.Tx, id int64, actualEnd time.Time) error {
	return r.update(ctx, tx, id, map[string]interface{}{
		"status":          string(entities.DeploymentCompleted),
		"actual_end_date": actualEnd,
	})
}

func (r *deploymentRepository) AddNote(ctx context.Context, tx pgx.Tx, note entities.DeploymentNote) error {
	query, args, err := psql.Insert(deploymentNoteTable).
		Columns("deployment_id", "kind", "reason", "actor_id", "old_value", "new_value").
		Values(note.DeploymentID, string(note.Kind), note.Reason, note.ActorID, note.OldValue, note.NewValue).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build note insert: %w", err)
	}
	if _, err := r.getQuerier(tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert deployment note: %w", err)
	}
	return nil
}

func (r *deploymentRepository) ListNotes(ctx context.Context, deploymentID int64) ([]entities.DeploymentNote, error) {
	query, args, err := psql.Select(deploymentNoteFields).
		From(deploymentNoteTable).
		Where(sq.Eq{"deployment_id": deploymentID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build notes query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deployment notes: %w", err)
	}
	defer rows.Close()

	notes := make([]entities.DeploymentNote, 0)
	for rows.Next() {
		var n entities.DeploymentNote
		var kind string
		if err := rows.Scan(&n.ID, &n.DeploymentID, &kind, &n.Reason, &n.ActorID, &n.OldValue, &n.NewValue, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment note: %w", err)
		}
		if n.Kind, err = entities.ParseDeploymentNoteKind(kind); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
