package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"site-entry/config"
	"site-entry/internal/authz"
	"site-entry/internal/dto"
	"site-entry/internal/entities"
	"site-entry/internal/events"
	"site-entry/internal/repositories"
	"site-entry/internal/workflow"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/filestorage"
	"site-entry/pkg/metrics"
	"site-entry/pkg/utils"
	"site-entry/pkg/validation"
)

const (
	workPlanUploadContext    = "work_plan"
	opUploadWorkPlan         = "upload_work_plan"
	defaultSideEffectTimeout = 15 * time.Second
)

type EntryRequestServiceInterface interface {
	Create(ctx context.Context, d dto.CreateEntryRequestDTO) (*dto.CreateEntryRequestResponseDTO, error)
	StartBpReview(ctx context.Context, id int64, d dto.ReviewDTO) (*entities.EntryRequest, error)
	BpApprove(ctx context.Context, id int64, d dto.BpApproveDTO) (*entities.EntryRequest, error)
	BpReject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error)
	StartEpReview(ctx context.Context, id int64, d dto.ReviewDTO) (*entities.EntryRequest, error)
	EpApprove(ctx context.Context, id int64, d dto.EpApproveDTO) (*entities.EntryRequest, error)
	EpReject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error)
	// Reject picks the stage-matched rejection for the caller's role.
	Reject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error)
	Cancel(ctx context.Context, id int64, d dto.CancelDTO) (*entities.EntryRequest, error)
	FindByID(ctx context.Context, id int64) (*entities.EntryRequest, error)
	List(ctx context.Context, q dto.EntryRequestListQuery) ([]*entities.EntryRequest, uint64, error)
	History(ctx context.Context, id int64) ([]entities.EntryRequestHistory, error)
	UploadWorkPlan(ctx context.Context, id int64, fileName string, size int64, body io.ReadSeeker) (*dto.WorkPlanResponseDTO, error)
}

// DeploymentMaterializer turns an approved equipment/worker pair into a
// deployment. It must be idempotent.
type DeploymentMaterializer interface {
	EnsureFromEntryRequest(ctx context.Context, req *entities.EntryRequest, equipmentID, workerID int64) (created bool, err error)
}

type EntryRequestService struct {
	txManager    repositories.TxManagerInterface
	repo         repositories.EntryRequestRepositoryInterface
	resourceRepo repositories.ResourceRepositoryInterface
	sequence     repositories.SequenceRepositoryInterface
	compliance   ComplianceServiceInterface
	deployments  DeploymentMaterializer
	storage      filestorage.FileStorage
	notifier     NotificationDispatcher
	machine      *workflow.Machine
	gatekeeper   *authz.Gatekeeper
	metrics      *metrics.Metrics
	logger       *zap.Logger

	now               func() time.Time
	sideEffectTimeout time.Duration
}

func NewEntryRequestService(
	txManager repositories.TxManagerInterface,
	repo repositories.EntryRequestRepositoryInterface,
	resourceRepo repositories.ResourceRepositoryInterface,
	sequence repositories.SequenceRepositoryInterface,
	compliance ComplianceServiceInterface,
	deployments DeploymentMaterializer,
	storage filestorage.FileStorage,
	notifier NotificationDispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EntryRequestService {
	return &EntryRequestService{
		txManager:         txManager,
		repo:              repo,
		resourceRepo:      resourceRepo,
		sequence:          sequence,
		compliance:        compliance,
		deployments:       deployments,
		storage:           storage,
		notifier:          notifier,
		machine:           workflow.NewMachine(),
		gatekeeper:        authz.NewGatekeeper(),
		metrics:           m,
		logger:            logger,
		now:               time.Now,
		sideEffectTimeout: defaultSideEffectTimeout,
	}
}

func (s *EntryRequestService) Create(ctx context.Context, d dto.CreateEntryRequestDTO) (*dto.CreateEntryRequestResponseDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.Is(entities.RoleOwner, entities.RoleAdmin) {
		s.metrics.RecordTransitionFailure(string(workflow.OpCreate), "forbidden")
		return nil, fmt.Errorf("%w: role %q cannot create entry requests", apperrors.ErrForbidden, actor.Role)
	}

	ownerCompanyID := actor.CompanyID
	if actor.Role == entities.RoleAdmin {
		if !d.OwnerCompanyID.Valid {
			return nil, apperrors.NewInvalidInputError("ownerCompanyId is required when an admin files a request")
		}
		ownerCompanyID = d.OwnerCompanyID.Int64
	}

	start, err := dto.ParseDate("requestedStartDate", d.RequestedStartDate)
	if err != nil {
		return nil, err
	}
	end, err := dto.ParseDate("requestedEndDate", d.RequestedEndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperrors.NewInvalidInputError("requestedEndDate must not be before requestedStartDate")
	}

	items, equipmentIDs, workerIDs, err := expandSelections(d.Items)
	if err != nil {
		return nil, err
	}

	report, err := s.compliance.Validate(ctx, equipmentIDs, workerIDs)
	if err != nil {
		return nil, err
	}
	if !report.IsValid {
		s.metrics.RecordTransitionFailure(string(workflow.OpCreate), "validation")
		return nil, apperrors.NewValidationError(report.Issues(), report)
	}

	now := s.now()
	number, err := s.sequence.NextRequestNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	req := &entities.EntryRequest{
		RequestNumber:      number,
		OwnerCompanyID:     ownerCompanyID,
		OwnerUserID:        actor.UserID,
		TargetBpCompanyID:  d.TargetBpCompanyID,
		Purpose:            d.Purpose,
		RequestedStartDate: start,
		RequestedEndDate:   end,
		Status:             entities.StatusOwnerRequested,
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.repo.Create(ctx, tx, req, items); err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, tx, entities.EntryRequestHistory{
			EntryRequestID: req.ID,
			Operation:      string(workflow.OpCreate),
			ToStatus:       entities.StatusOwnerRequested,
			ActorID:        actor.UserID,
			ActorRole:      actor.Role,
		})
	})
	if err != nil {
		s.logger.Error("failed to create entry request", zap.Error(err), zap.String("requestID", utils.GetRequestIDFromCtx(ctx)))
		return nil, err
	}

	s.metrics.RecordTransition(string(workflow.OpCreate), "", string(entities.StatusOwnerRequested))
	s.logger.Info("entry request created",
		zap.Int64("entryRequestID", req.ID),
		zap.String("requestNumber", req.RequestNumber),
		zap.Int("items", len(req.Items)),
	)
	s.notify(ctx, events.EntryRequestEvent{Type: events.EntryRequestCreated, Request: *req, Actor: actor})

	return &dto.CreateEntryRequestResponseDTO{ID: req.ID, RequestNumber: req.RequestNumber, Status: req.Status}, nil
}

// expandSelections turns DTO items into request items and the id lists to
// validate. A resource may appear only once per request.
func expandSelections(in []dto.EntryRequestItemDTO) ([]entities.EntryRequestItem, []int64, []int64, error) {
	if len(in) == 0 {
		return nil, nil, nil, apperrors.NewInvalidInputError("at least one item is required")
	}

	items := make([]entities.EntryRequestItem, 0, len(in)*2)
	equipmentIDs := make([]int64, 0, len(in))
	workerIDs := make([]int64, 0, len(in))
	seenEquipment := make(map[int64]struct{})
	seenWorkers := make(map[int64]struct{})

	for _, itemDTO := range in {
		sel, err := itemDTO.ToSelection()
		if err != nil {
			return nil, nil, nil, err
		}
		for _, id := range sel.EquipmentIDs() {
			if _, dup := seenEquipment[id]; dup {
				return nil, nil, nil, apperrors.NewInvalidInputError("equipment %d is selected more than once", id)
			}
			seenEquipment[id] = struct{}{}
			equipmentIDs = append(equipmentIDs, id)
		}
		for _, id := range sel.WorkerIDs() {
			if _, dup := seenWorkers[id]; dup {
				return nil, nil, nil, apperrors.NewInvalidInputError("worker %d is selected more than once", id)
			}
			seenWorkers[id] = struct{}{}
			workerIDs = append(workerIDs, id)
		}
		for _, it := range sel.Items() {
			it.DocumentStatus = entities.DocumentStatusValid
			items = append(items, it)
		}
	}
	return items, equipmentIDs, workerIDs, nil
}

// transitionSpec describes one guarded status change.
type transitionSpec struct {
	op        func(entities.Actor, entities.EntryRequestStatus) workflow.Operation
	event     string
	comment   *string
	withItems bool
	patch     func(req *entities.EntryRequest, actor entities.Actor, now time.Time) (entities.EntryRequestPatch, error)
}

func fixedOp(op workflow.Operation) func(entities.Actor, entities.EntryRequestStatus) workflow.Operation {
	return func(entities.Actor, entities.EntryRequestStatus) workflow.Operation { return op }
}

func noPatch(*entities.EntryRequest, entities.Actor, time.Time) (entities.EntryRequestPatch, error) {
	return entities.EntryRequestPatch{}, nil
}

// transition reads, checks and writes in one transaction. A lost race is
// retried once against fresh state before it reaches the caller.
func (s *EntryRequestService) transition(ctx context.Context, id int64, rule transitionSpec) (*entities.EntryRequest, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated entities.EntryRequest
		from    entities.EntryRequestStatus
		op      workflow.Operation
	)
	attempt := func() error {
		return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
			req, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			op = rule.op(actor, req.Status)
			if !s.gatekeeper.CanActOnEntryRequest(actor, req) {
				return fmt.Errorf("%w: company %d is not a party to entry request %d", apperrors.ErrForbidden, actor.CompanyID, id)
			}
			to, err := s.machine.Next(req.Status, op, actor.Role)
			if err != nil {
				return err
			}

			now := s.now()
			patch, err := rule.patch(req, actor, now)
			if err != nil {
				return err
			}
			if err := s.repo.TransitionStatus(ctx, tx, id, req.Status, to, patch); err != nil {
				return err
			}
			from = req.Status
			if err := s.repo.AddHistory(ctx, tx, entities.EntryRequestHistory{
				EntryRequestID: id,
				Operation:      string(op),
				FromStatus:     &from,
				ToStatus:       to,
				ActorID:        actor.UserID,
				ActorRole:      actor.Role,
				Comment:        rule.comment,
			}); err != nil {
				return err
			}

			updated = req.Apply(to, patch, now)
			if rule.withItems {
				if updated.Items, err = s.repo.FindItems(ctx, tx, id); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := s.retryOnStale(ctx, id, attempt); err != nil {
		if op != "" {
			s.metrics.RecordTransitionFailure(string(op), failureReason(err))
		}
		return nil, err
	}

	s.metrics.RecordTransition(string(op), string(from), string(updated.Status))
	s.logger.Info("entry request transitioned",
		zap.Int64("entryRequestID", id),
		zap.String("operation", string(op)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.Int64("actorID", actor.UserID),
	)
	s.notify(ctx, events.EntryRequestEvent{Type: rule.event, Request: updated, FromStatus: &from, Actor: actor, Comment: rule.comment})
	return &updated, nil
}

func (s *EntryRequestService) retryOnStale(ctx context.Context, id int64, attempt func() error) error {
	err := attempt()
	if errors.Is(err, apperrors.ErrStaleState) {
		s.logger.Warn("entry request changed concurrently, retrying once",
			zap.Int64("entryRequestID", id),
			zap.String("requestID", utils.GetRequestIDFromCtx(ctx)),
		)
		err = attempt()
	}
	if errors.Is(err, apperrors.ErrDataIntegrity) {
		s.logger.Error("entry request data integrity fault", zap.Int64("entryRequestID", id), zap.Error(err))
	}
	return err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrStaleState):
		return "stale"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func (s *EntryRequestService) StartBpReview(ctx context.Context, id int64, d dto.ReviewDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpStartBpReview),
		event:   events.EntryRequestBpReviewing,
		comment: d.Comment.Ptr(),
		patch:   noPatch,
	})
}

func (s *EntryRequestService) BpApprove(ctx context.Context, id int64, d dto.BpApproveDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpBpApprove),
		event:   events.EntryRequestBpApproved,
		comment: d.Comment.Ptr(),
		patch: func(req *entities.EntryRequest, actor entities.Actor, now time.Time) (entities.EntryRequestPatch, error) {
			ref := d.WorkPlanRef.Ptr()
			if ref == nil || strings.TrimSpace(*ref) == "" {
				ref = req.WorkPlanRef
			}
			if ref == nil {
				return entities.EntryRequestPatch{}, apperrors.NewInvalidInputError("a work plan is required before BP approval")
			}
			epCompanyID := d.TargetEpCompanyID
			return entities.EntryRequestPatch{
				TargetEpCompanyID: &epCompanyID,
				WorkPlanRef:       ref,
				BpApproverID:      &actor.UserID,
				BpApprovedAt:      &now,
			}, nil
		},
	})
}

func rejectPatch(reason string) func(*entities.EntryRequest, entities.Actor, time.Time) (entities.EntryRequestPatch, error) {
	return func(_ *entities.EntryRequest, actor entities.Actor, now time.Time) (entities.EntryRequestPatch, error) {
		if strings.TrimSpace(reason) == "" {
			return entities.EntryRequestPatch{}, apperrors.NewInvalidInputError("a reject reason is required")
		}
		return entities.EntryRequestPatch{
			RejectReason: &reason,
			RejectedBy:   &actor.UserID,
			RejectedAt:   &now,
		}, nil
	}
}

func (s *EntryRequestService) BpReject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpBpReject),
		event:   events.EntryRequestRejected,
		comment: &d.Reason,
		patch:   rejectPatch(d.Reason),
	})
}

func (s *EntryRequestService) StartEpReview(ctx context.Context, id int64, d dto.ReviewDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpStartEpReview),
		event:   events.EntryRequestEpReviewing,
		comment: d.Comment.Ptr(),
		patch:   noPatch,
	})
}

func (s *EntryRequestService) EpApprove(ctx context.Context, id int64, d dto.EpApproveDTO) (*entities.EntryRequest, error) {
	req, err := s.transition(ctx, id, transitionSpec{
		op:        fixedOp(workflow.OpEpApprove),
		event:     events.EntryRequestEpApproved,
		comment:   d.Comment.Ptr(),
		withItems: true,
		patch: func(_ *entities.EntryRequest, actor entities.Actor, now time.Time) (entities.EntryRequestPatch, error) {
			return entities.EntryRequestPatch{
				EpApproverID: &actor.UserID,
				EpApprovedAt: &now,
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	s.applyApprovalEffects(ctx, req)
	return req, nil
}

// applyApprovalEffects runs after the approval committed. Each step is
// idempotent; failures are logged and left for a retry, never returned.
func (s *EntryRequestService) applyApprovalEffects(ctx context.Context, req *entities.EntryRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
	defer cancel()

	for _, p := range approvedPairs(req.Items) {
		if err := s.resourceRepo.AssignWorkerToEquipment(ctx, nil, p.equipmentID, p.workerID); err != nil {
			s.metrics.RecordSideEffectFailure("assign_worker")
			s.logger.Error("failed to assign worker to equipment after approval",
				zap.Int64("entryRequestID", req.ID),
				zap.Int64("equipmentID", p.equipmentID),
				zap.Int64("workerID", p.workerID),
				zap.Error(err),
			)
		}
		if s.deployments == nil {
			continue
		}
		created, err := s.deployments.EnsureFromEntryRequest(ctx, req, p.equipmentID, p.workerID)
		if err != nil {
			s.metrics.RecordSideEffectFailure("ensure_deployment")
			s.logger.Error("failed to materialize deployment after approval",
				zap.Int64("entryRequestID", req.ID),
				zap.Int64("equipmentID", p.equipmentID),
				zap.Error(err),
			)
			continue
		}
		if created {
			s.logger.Info("deployment materialized", zap.Int64("entryRequestID", req.ID), zap.Int64("equipmentID", p.equipmentID))
		}
	}
}

type equipmentWorkerPair struct {
	equipmentID int64
	workerID    int64
}

// approvedPairs collects each equipment/worker binding once, in item order.
func approvedPairs(items []entities.EntryRequestItem) []equipmentWorkerPair {
	seen := make(map[equipmentWorkerPair]struct{})
	pairs := make([]equipmentWorkerPair, 0)
	for _, it := range items {
		eq, w, ok := it.Pair()
		if !ok {
			continue
		}
		p := equipmentWorkerPair{equipmentID: eq, workerID: w}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}

func (s *EntryRequestService) EpReject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpEpReject),
		event:   events.EntryRequestRejected,
		comment: &d.Reason,
		patch:   rejectPatch(d.Reason),
	})
}

// rejectOperation maps the caller onto the rejection for its stage. An admin
// rejects on behalf of whichever stage is pending.
func rejectOperation(actor entities.Actor, status entities.EntryRequestStatus) workflow.Operation {
	switch actor.Role {
	case entities.RoleBP:
		return workflow.OpBpReject
	case entities.RoleEP:
		return workflow.OpEpReject
	}
	if status == entities.StatusOwnerRequested || status == entities.StatusBpReviewing {
		return workflow.OpBpReject
	}
	return workflow.OpEpReject
}

func (s *EntryRequestService) Reject(ctx context.Context, id int64, d dto.RejectDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      rejectOperation,
		event:   events.EntryRequestRejected,
		comment: &d.Reason,
		patch:   rejectPatch(d.Reason),
	})
}

func (s *EntryRequestService) Cancel(ctx context.Context, id int64, d dto.CancelDTO) (*entities.EntryRequest, error) {
	return s.transition(ctx, id, transitionSpec{
		op:      fixedOp(workflow.OpCancel),
		event:   events.EntryRequestCancelled,
		comment: d.Reason.Ptr(),
		patch: func(_ *entities.EntryRequest, actor entities.Actor, now time.Time) (entities.EntryRequestPatch, error) {
			return entities.EntryRequestPatch{
				CancelReason: d.Reason.Ptr(),
				CancelledBy:  &actor.UserID,
				CancelledAt:  &now,
			}, nil
		},
	})
}

func (s *EntryRequestService) findVisible(ctx context.Context, id int64) (*entities.EntryRequest, entities.Actor, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, actor, err
	}
	req, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, actor, err
	}
	if !s.gatekeeper.CanViewEntryRequest(actor, req) {
		return nil, actor, apperrors.ErrForbidden
	}
	return req, actor, nil
}

func (s *EntryRequestService) FindByID(ctx context.Context, id int64) (*entities.EntryRequest, error) {
	req, _, err := s.findVisible(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Items, err = s.repo.FindItems(ctx, nil, id); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *EntryRequestService) List(ctx context.Context, q dto.EntryRequestListQuery) ([]*entities.EntryRequest, uint64, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	filter := authz.ScopeEntryRequestFilter(actor, entities.EntryRequestFilter{
		OwnerCompanyID:    q.OwnerCompanyID,
		TargetBpCompanyID: q.TargetBpCompanyID,
		TargetEpCompanyID: q.TargetEpCompanyID,
		Status:            q.Status,
		Limit:             q.Limit,
		Offset:            q.Offset,
	})
	return s.repo.List(ctx, filter)
}

func (s *EntryRequestService) History(ctx context.Context, id int64) ([]entities.EntryRequestHistory, error) {
	if _, _, err := s.findVisible(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// UploadWorkPlan stores the BP's work plan and records its reference on the
// request without moving its status. BP approval later picks it up.
func (s *EntryRequestService) UploadWorkPlan(ctx context.Context, id int64, fileName string, size int64, body io.ReadSeeker) (*dto.WorkPlanResponseDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !s.machine.CanPerform(workflow.OpBpApprove, actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot attach work plans", apperrors.ErrForbidden, actor.Role)
	}

	req, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.CanActOnEntryRequest(actor, req) {
		return nil, apperrors.ErrForbidden
	}
	if !workPlanAttachable(req.Status) {
		return nil, fmt.Errorf("%w: work plan cannot be attached in %q", apperrors.ErrInvalidState, req.Status)
	}

	contentType, err := validation.ValidateFile(size, body, workPlanUploadContext)
	if err != nil {
		return nil, err
	}

	now := s.now()
	path := fmt.Sprintf("%s/%s/%s-%s%s",
		config.UploadContexts[workPlanUploadContext].PathPrefix,
		req.RequestNumber,
		now.Format("20060102"),
		uuid.NewString(),
		strings.ToLower(filepath.Ext(fileName)),
	)
	ref, err := s.storage.Put(ctx, path, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store work plan: %w", err)
	}

	var updated entities.EntryRequest
	err = s.retryOnStale(ctx, id, func() error {
		return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
			current, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if !workPlanAttachable(current.Status) {
				return fmt.Errorf("%w: work plan cannot be attached in %q", apperrors.ErrInvalidState, current.Status)
			}
			patch := entities.EntryRequestPatch{WorkPlanRef: &ref}
			if err := s.repo.TransitionStatus(ctx, tx, id, current.Status, current.Status, patch); err != nil {
				return err
			}
			status := current.Status
			if err := s.repo.AddHistory(ctx, tx, entities.EntryRequestHistory{
				EntryRequestID: id,
				Operation:      opUploadWorkPlan,
				FromStatus:     &status,
				ToStatus:       status,
				ActorID:        actor.UserID,
				ActorRole:      actor.Role,
				Comment:        &ref,
			}); err != nil {
				return err
			}
			updated = current.Apply(status, patch, now)
			return nil
		})
	})
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			s.logger.Warn("failed to remove orphaned work plan", zap.String("ref", ref), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("work plan attached", zap.Int64("entryRequestID", id), zap.String("ref", ref))
	s.notify(ctx, events.EntryRequestEvent{Type: events.EntryRequestWorkPlanAdded, Request: updated, Actor: actor})
	return &dto.WorkPlanResponseDTO{WorkPlanRef: ref}, nil
}

func workPlanAttachable(status entities.EntryRequestStatus) bool {
	return status == entities.StatusOwnerRequested || status == entities.StatusBpReviewing
}

func (s *EntryRequestService) notify(ctx context.Context, event events.EntryRequestEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event)
}
