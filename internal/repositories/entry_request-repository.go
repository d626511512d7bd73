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
	entryRequestTable  = "entry_requests"
	entryRequestFields = `id, request_number, owner_company_id, owner_user_id, target_bp_company_id, target_ep_company_id,
		purpose, requested_start_date, requested_end_date, status,
		bp_approver_id, bp_approved_at, ep_approver_id, ep_approved_at, work_plan_ref,
		reject_reason, rejected_by, rejected_at, cancel_reason, cancelled_by, cancelled_at,
		created_at, updated_at`

	entryRequestItemTable  = "entry_request_items"
	entryRequestItemFields = "id, entry_request_id, item_type, item_id, paired_equipment_id, paired_worker_id, document_status"

	entryRequestHistoryTable  = "entry_request_history"
	entryRequestHistoryFields = "id, entry_request_id, operation, from_status, to_status, actor_id, actor_role, comment, created_at"
)

type EntryRequestRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, req *entities.EntryRequest, items []entities.EntryRequestItem) (int64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id int64) (*entities.EntryRequest, error)
	FindItems(ctx context.Context, tx pgx.Tx, requestID int64) ([]entities.EntryRequestItem, error)
	List(ctx context.Context, filter entities.EntryRequestFilter) ([]*entities.EntryRequest, uint64, error)
	// TransitionStatus writes `to` only if the row is still in `from`.
	// A lost race yields ErrStaleState.
	TransitionStatus(ctx context.Context, tx pgx.Tx, id int64, from, to entities.EntryRequestStatus, patch entities.EntryRequestPatch) error
	AddHistory(ctx context.Context, tx pgx.Tx, h entities.EntryRequestHistory) error
	ListHistory(ctx context.Context, requestID int64) ([]entities.EntryRequestHistory, error)
}

type entryRequestRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEntryRequestRepository(storage *pgxpool.Pool, logger *zap.Logger) EntryRequestRepositoryInterface {
	return &entryRequestRepository{storage: storage, logger: logger}
}

func (r *entryRequestRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func (r *entryRequestRepository) scanRow(row pgx.Row) (*entities.EntryRequest, error) {
	var req entities.EntryRequest
	var status string

	err := row.Scan(
		&req.ID, &req.RequestNumber, &req.OwnerCompanyID, &req.OwnerUserID, &req.TargetBpCompanyID, &req.TargetEpCompanyID,
		&req.Purpose, &req.RequestedStartDate, &req.RequestedEndDate, &status,
		&req.BpApproverID, &req.BpApprovedAt, &req.EpApproverID, &req.EpApprovedAt, &req.WorkPlanRef,
		&req.RejectReason, &req.RejectedBy, &req.RejectedAt, &req.CancelReason, &req.CancelledBy, &req.CancelledAt,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan entry_requests: %w", err)
	}

	req.Status, err = entities.ParseEntryRequestStatus(status)
	if err != nil {
		r.logger.Error("entry request has a status outside the enum",
			zap.Int64("entryRequestID", req.ID), zap.String("status", status))
		return nil, err
	}
	return &req, nil
}

func (r *entryRequestRepository) Create(ctx context.Context, tx pgx.Tx, req *entities.EntryRequest, items []entities.EntryRequestItem) (int64, error) {
	q := r.getQuerier(tx)

	query, args, err := psql.Insert(entryRequestTable).
		Columns("request_number", "owner_company_id", "owner_user_id", "target_bp_company_id", "target_ep_company_id",
			"purpose", "requested_start_date", "requested_end_date", "status").
		Values(req.RequestNumber, req.OwnerCompanyID, req.OwnerUserID, req.TargetBpCompanyID, req.TargetEpCompanyID,
			req.Purpose, req.RequestedStartDate, req.RequestedEndDate, string(req.Status)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build entry request insert: %w", err)
	}

	if err := q.QueryRow(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, apperrors.ErrConflict
		}
		return 0, fmt.Errorf("failed to insert entry request: %w", err)
	}

	if len(items) == 0 {
		return req.ID, nil
	}

	ins := psql.Insert(entryRequestItemTable).
		Columns("entry_request_id", "item_type", "item_id", "paired_equipment_id", "paired_worker_id", "document_status")
	for _, it := range items {
		ins = ins.Values(req.ID, string(it.ItemType), it.ItemID, it.PairedEquipmentID, it.PairedWorkerID, string(it.DocumentStatus))
	}
	query, args, err = ins.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build entry request items insert: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entry request items: %w", err)
	}
	defer rows.Close()

	req.Items = make([]entities.EntryRequestItem, 0, len(items))
	i := 0
	for rows.Next() {
		var itemID int64
		if err := rows.Scan(&itemID); err != nil {
			return 0, fmt.Errorf("failed to scan entry request item id: %w", err)
		}
		it := items[i]
		it.ID = itemID
		it.EntryRequestID = req.ID
		req.Items = append(req.Items, it)
		i++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to insert entry request items: %w", err)
	}

	return req.ID, nil
}

func (r *entryRequestRepository) FindByID(ctx context.Context, tx pgx.Tx, id int64) (*entities.EntryRequest, error) {
	query, args, err := psql.Select(entryRequestFields).From(entryRequestTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build FindByID query: %w", err)
	}
	return r.scanRow(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *entryRequestRepository) FindItems(ctx context.Context, tx pgx.Tx, requestID int64) ([]entities.EntryRequestItem, error) {
	query, args, err := psql.Select(entryRequestItemFields).
		From(entryRequestItemTable).
		Where(sq.Eq{"entry_request_id": requestID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build FindItems query: %w", err)
	}

	rows, err := r.getQuerier(tx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entry request items: %w", err)
	}
	defer rows.Close()

	items := make([]entities.EntryRequestItem, 0)
	for rows.Next() {
		var it entities.EntryRequestItem
		var itemType, docStatus string
		if err := rows.Scan(&it.ID, &it.EntryRequestID, &itemType, &it.ItemID, &it.PairedEquipmentID, &it.PairedWorkerID, &docStatus); err != nil {
			return nil, fmt.Errorf("failed to scan entry request item: %w", err)
		}
		if it.ItemType, err = entities.ParseItemType(itemType); err != nil {
			r.logger.Error("entry request item has an unknown type", zap.Int64("itemID", it.ID), zap.String("itemType", itemType))
			return nil, err
		}
		if it.DocumentStatus, err = entities.ParseDocumentStatus(docStatus); err != nil {
			r.logger.Error("entry request item has an unknown document status", zap.Int64("itemID", it.ID), zap.String("documentStatus", docStatus))
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func applyEntryRequestFilter(b sq.SelectBuilder, f entities.EntryRequestFilter) sq.SelectBuilder {
	if f.OwnerCompanyID != nil {
		b = b.Where(sq.Eq{"owner_company_id": *f.OwnerCompanyID})
	}
	if f.TargetBpCompanyID != nil {
		b = b.Where(sq.Eq{"target_bp_company_id": *f.TargetBpCompanyID})
	}
	if f.TargetEpCompanyID != nil {
		b = b.Where(sq.Eq{"target_ep_company_id": *f.TargetEpCompanyID})
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"status": string(*f.Status)})
	}
	return b
}

func (r *entryRequestRepository) List(ctx context.Context, f entities.EntryRequestFilter) ([]*entities.EntryRequest, uint64, error) {
	countQuery, countArgs, err := applyEntryRequestFilter(psql.Select("COUNT(*)").From(entryRequestTable), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count entry requests: %w", err)
	}
	if total == 0 {
		return []*entities.EntryRequest{}, 0, nil
	}

	b := applyEntryRequestFilter(psql.Select(entryRequestFields).From(entryRequestTable), f).OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		b = b.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entry requests: %w", err)
	}
	defer rows.Close()

	list := make([]*entities.EntryRequest, 0, f.Limit)
	for rows.Next() {
		req, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, req)
	}
	return list, total, rows.Err()
}

func buildTransitionQuery(id int64, from, to entities.EntryRequestStatus, p entities.EntryRequestPatch) (string, []interface{}, error) {
	set := map[string]interface{}{
		"status":     string(to),
		"updated_at": sq.Expr("NOW()"),
	}
	setInt := func(col string, v *int64) {
		if v != nil {
			set[col] = *v
		}
	}
	setStr := func(col string, v *string) {
		if v != nil {
			set[col] = *v
		}
	}
	setTime := func(col string, v *time.Time) {
		if v != nil {
			set[col] = *v
		}
	}

	setInt("target_ep_company_id", p.TargetEpCompanyID)
	setStr("work_plan_ref", p.WorkPlanRef)
	setInt("bp_approver_id", p.BpApproverID)
	setTime("bp_approved_at", p.BpApprovedAt)
	setInt("ep_approver_id", p.EpApproverID)
	setTime("ep_approved_at", p.EpApprovedAt)
	setStr("reject_reason", p.RejectReason)
	setInt("rejected_by", p.RejectedBy)
	setTime("rejected_at", p.RejectedAt)
	setStr("cancel_reason", p.CancelReason)
	setInt("cancelled_by", p.CancelledBy)
	setTime("cancelled_at", p.CancelledAt)

	return psql.Update(entryRequestTable).
		SetMap(set).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
}

func (r *entryRequestRepository) TransitionStatus(ctx context.Context, tx pgx.Tx, id int64, from, to entities.EntryRequestStatus, patch entities.EntryRequestPatch) error {
	query, args, err := buildTransitionQuery(id, from, to, patch)
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}

	res, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry request status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.ErrStaleState
	}
	return nil
}

func (r *entryRequestRepository) AddHistory(ctx context.Context, tx pgx.Tx, h entities.EntryRequestHistory) error {
	var from interface{}
	if h.FromStatus != nil {
		from = string(*h.FromStatus)
	}
	query, args, err := psql.Insert(entryRequestHistoryTable).
		Columns("entry_request_id", "operation", "from_status", "to_status", "actor_id", "actor_role", "comment").
		Values(h.EntryRequestID, h.Operation, from, string(h.ToStatus), h.ActorID, string(h.ActorRole), h.Comment).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build history insert: %w", err)
	}
	if _, err := r.getQuerier(tx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert entry request history: %w", err)
	}
	return nil
}

func (r *entryRequestRepository) ListHistory(ctx context.Context, requestID int64) ([]entities.EntryRequestHistory, error) {
	query, args, err := psql.Select(entryRequestHistoryFields).
		From(entryRequestHistoryTable).
		Where(sq.Eq{"entry_request_id": requestID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entry request history: %w", err)
	}
	defer rows.Close()

	history := make([]entities.EntryRequestHistory, 0)
	for rows.Next() {
		var h entities.EntryRequestHistory
		var from *string
		var to, role string
		if err := rows.Scan(&h.ID, &h.EntryRequestID, &h.Operation, &from, &to, &h.ActorID, &role, &h.Comment, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry request history: %w", err)
		}
		if from != nil {
			st, err := entities.ParseEntryRequestStatus(*from)
			if err != nil {
				return nil, err
			}
			h.FromStatus = &st
		}
		if h.ToStatus, err = entities.ParseEntryRequestStatus(to); err != nil {
			return nil, err
		}
		if h.ActorRole, err = entities.ParseRole(role); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
