package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"site-entry/internal/authz"
	"site-entry/internal/dto"
	"site-entry/internal/entities"
	"site-entry/internal/events"
	"site-entry/internal/repositories"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/metrics"
	"site-entry/pkg/utils"
)

const noteDateLayout = "2006-01-02"

type DeploymentServiceInterface interface {
	Create(ctx context.Context, d dto.CreateDeploymentDTO) (*entities.Deployment, error)
	Extend(ctx context.Context, id int64, d dto.ExtendDeploymentDTO) (*entities.Deployment, error)
	// ChangeWorker re-validates the incoming worker's documents before the swap.
	ChangeWorker(ctx context.Context, id int64, d dto.ChangeWorkerDTO) (*entities.Deployment, error)
	Complete(ctx context.Context, id int64, d dto.CompleteDeploymentDTO) (*entities.Deployment, error)
	FindByID(ctx context.Context, id int64) (*entities.Deployment, error)
	List(ctx context.Context, q dto.DeploymentListQuery) ([]*entities.Deployment, uint64, error)
	CurrentForActor(ctx context.Context) (*entities.Deployment, error)
	Notes(ctx context.Context, id int64) ([]entities.DeploymentNote, error)
	EnsureFromEntryRequest(ctx context.Context, req *entities.EntryRequest, equipmentID, workerID int64) (bool, error)
}

type DeploymentService struct {
	txManager    repositories.TxManagerInterface
	repo         repositories.DeploymentRepositoryInterface
	entryRepo    repositories.EntryRequestRepositoryInterface
	resourceRepo repositories.ResourceRepositoryInterface
	compliance   ComplianceServiceInterface
	notifier     NotificationDispatcher
	gatekeeper   *authz.Gatekeeper
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewDeploymentService(
	txManager repositories.TxManagerInterface,
	repo repositories.DeploymentRepositoryInterface,
	entryRepo repositories.EntryRequestRepositoryInterface,
	resourceRepo repositories.ResourceRepositoryInterface,
	compliance ComplianceServiceInterface,
	notifier NotificationDispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DeploymentService {
	return &DeploymentService{
		txManager:    txManager,
		repo:         repo,
		entryRepo:    entryRepo,
		resourceRepo: resourceRepo,
		compliance:   compliance,
		notifier:     notifier,
		gatekeeper:   authz.NewGatekeeper(),
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *DeploymentService) Create(ctx context.Context, d dto.CreateDeploymentDTO) (*entities.Deployment, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.Is(entities.RoleBP, entities.RoleAdmin) {
		return nil, fmt.Errorf("%w: role %q cannot create deployments", apperrors.ErrForbidden, actor.Role)
	}

	start, err := dto.ParseDate("startDate", d.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := dto.ParseDate("plannedEndDate", d.PlannedEndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperrors.NewInvalidInputError("plannedEndDate must not be before startDate")
	}

	req, err := s.entryRepo.FindByID(ctx, nil, d.EntryRequestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("entry request %d: %w", d.EntryRequestID, apperrors.ErrNotFound)
		}
		return nil, err
	}

	bpCompanyID := req.TargetBpCompanyID
	switch {
	case actor.Role == entities.RoleBP && actor.CompanyID != req.TargetBpCompanyID:
		return nil, fmt.Errorf("%w: company %d is not the BP of entry request %d", apperrors.ErrForbidden, actor.CompanyID, req.ID)
	case actor.Role == entities.RoleAdmin && d.BpCompanyID.Valid:
		bpCompanyID = d.BpCompanyID.Int64
	}
	if req.Status != entities.StatusEpApproved {
		return nil, fmt.Errorf("%w: entry request %d is %s, deployments need %s", apperrors.ErrInvalidState, req.ID, req.Status, entities.StatusEpApproved)
	}
	if err := s.checkRequestCovers(ctx, req.ID, d.EquipmentID); err != nil {
		return nil, err
	}

	var workerIDs []int64
	if d.WorkerID.Valid {
		workerIDs = []int64{d.WorkerID.Int64}
	}
	report, err := s.compliance.Validate(ctx, []int64{d.EquipmentID}, workerIDs)
	if err != nil {
		return nil, err
	}
	if !report.IsValid {
		return nil, apperrors.NewValidationError(report.Issues(), report)
	}

	dep := &entities.Deployment{
		EntryRequestID:  req.ID,
		EquipmentID:     d.EquipmentID,
		WorkerID:        d.WorkerID.Ptr(),
		OwnerID:         req.OwnerCompanyID,
		BpCompanyID:     bpCompanyID,
		EpCompanyID:     req.TargetEpCompanyID,
		StartDate:       start,
		PlannedEndDate:  end,
		Status:          entities.DeploymentActive,
		SiteName:        d.SiteName,
		WorkDescription: d.WorkDescription,
		Rates:           d.Rates(),
	}
	if _, err := s.repo.Create(ctx, nil, dep); err != nil {
		return nil, err
	}

	s.metrics.RecordDeploymentOp("create")
	s.logger.Info("deployment created", zap.Int64("deploymentID", dep.ID), zap.Int64("entryRequestID", req.ID))
	s.notify(ctx, events.DeploymentEvent{Type: events.DeploymentCreated, Deployment: *dep, Actor: actor})
	return dep, nil
}

// checkRequestCovers rejects equipment the entry request never asked for.
func (s *DeploymentService) checkRequestCovers(ctx context.Context, requestID, equipmentID int64) error {
	items, err := s.entryRepo.FindItems(ctx, nil, requestID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ItemType == entities.ItemTypeEquipment && it.ItemID == equipmentID {
			return nil
		}
	}
	return apperrors.NewInvalidInputError("equipment %d is not part of entry request %d", equipmentID, requestID)
}

// EnsureFromEntryRequest creates the deployment for an approved pair unless
// one already exists for the same request and equipment.
func (s *DeploymentService) EnsureFromEntryRequest(ctx context.Context, req *entities.EntryRequest, equipmentID, workerID int64) (bool, error) {
	w := workerID
	dep := &entities.Deployment{
		EntryRequestID:  req.ID,
		EquipmentID:     equipmentID,
		WorkerID:        &w,
		OwnerID:         req.OwnerCompanyID,
		BpCompanyID:     req.TargetBpCompanyID,
		EpCompanyID:     req.TargetEpCompanyID,
		StartDate:       req.RequestedStartDate,
		PlannedEndDate:  req.RequestedEndDate,
		Status:          entities.DeploymentActive,
		WorkDescription: req.Purpose,
	}
	created, err := s.repo.EnsureForEntryRequest(ctx, nil, dep)
	if err != nil {
		return false, err
	}
	if created {
		s.metrics.RecordDeploymentOp("materialize")
		actor, _ := utils.GetActorFromContext(ctx)
		s.notify(ctx, events.DeploymentEvent{Type: events.DeploymentCreated, Deployment: *dep, Actor: actor})
	}
	return created, nil
}

// mutate locks the deployment, checks the actor may manage it and that it is
// still active, then runs fn inside the same transaction.
func (s *DeploymentService) mutate(ctx context.Context, id int64, fn func(tx pgx.Tx, dep *entities.Deployment, actor entities.Actor) (*entities.DeploymentNote, error)) (*entities.Deployment, *entities.DeploymentNote, entities.Actor, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, nil, actor, err
	}

	var (
		updated *entities.Deployment
		note    *entities.DeploymentNote
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		dep, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.gatekeeper.CanManageDeployment(actor, dep) {
			return fmt.Errorf("%w: cannot manage deployment %d", apperrors.ErrForbidden, id)
		}
		if dep.Status != entities.DeploymentActive {
			return fmt.Errorf("%w: deployment %d is %s", apperrors.ErrInvalidState, id, dep.Status)
		}

		if note, err = fn(tx, dep, actor); err != nil {
			return err
		}
		note.DeploymentID = id
		note.ActorID = actor.UserID
		note.CreatedAt = s.now()
		if err := s.repo.AddNote(ctx, tx, *note); err != nil {
			return err
		}
		updated = dep
		return nil
	})
	if err != nil {
		return nil, nil, actor, err
	}
	return updated, note, actor, nil
}

func (s *DeploymentService) Extend(ctx context.Context, id int64, d dto.ExtendDeploymentDTO) (*entities.Deployment, error) {
	newEnd, err := dto.ParseDate("plannedEndDate", d.PlannedEndDate)
	if err != nil {
		return nil, err
	}

	dep, note, actor, err := s.mutate(ctx, id, func(tx pgx.Tx, dep *entities.Deployment, _ entities.Actor) (*entities.DeploymentNote, error) {
		if !newEnd.After(dep.PlannedEndDate) {
			return nil, apperrors.NewInvalidInputError("plannedEndDate must be after the current planned end %s", dep.PlannedEndDate.Format(noteDateLayout))
		}
		if err := s.repo.UpdateEndDate(ctx, tx, dep.ID, newEnd); err != nil {
			return nil, err
		}
		oldValue := dep.PlannedEndDate.Format(noteDateLayout)
		newValue := newEnd.Format(noteDateLayout)
		dep.PlannedEndDate = newEnd
		return &entities.DeploymentNote{
			Kind:     entities.NoteExtended,
			Reason:   d.Reason,
			OldValue: &oldValue,
			NewValue: &newValue,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDeploymentOp("extend")
	s.logger.Info("deployment extended", zap.Int64("deploymentID", id), zap.String("plannedEndDate", *note.NewValue))
	s.notify(ctx, events.DeploymentEvent{Type: events.DeploymentExtended, Deployment: *dep, Note: note, Actor: actor})
	return dep, nil
}

func (s *DeploymentService) ChangeWorker(ctx context.Context, id int64, d dto.ChangeWorkerDTO) (*entities.Deployment, error) {
	report, err := s.compliance.Validate(ctx, nil, []int64{d.WorkerID})
	if err != nil {
		return nil, err
	}
	if !report.IsValid {
		return nil, apperrors.NewValidationError(report.Issues(), report)
	}

	dep, note, actor, err := s.mutate(ctx, id, func(tx pgx.Tx, dep *entities.Deployment, _ entities.Actor) (*entities.DeploymentNote, error) {
		if dep.WorkerID != nil && *dep.WorkerID == d.WorkerID {
			return nil, apperrors.NewInvalidInputError("worker %d is already on deployment %d", d.WorkerID, dep.ID)
		}
		if err := s.repo.UpdateWorker(ctx, tx, dep.ID, d.WorkerID); err != nil {
			return nil, err
		}
		var oldValue *string
		if dep.WorkerID != nil {
			v := strconv.FormatInt(*dep.WorkerID, 10)
			oldValue = &v
		}
		newValue := strconv.FormatInt(d.WorkerID, 10)
		w := d.WorkerID
		dep.WorkerID = &w
		return &entities.DeploymentNote{
			Kind:     entities.NoteWorkerChanged,
			Reason:   d.Reason,
			OldValue: oldValue,
			NewValue: &newValue,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	effectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSideEffectTimeout)
	defer cancel()
	if err := s.resourceRepo.AssignWorkerToEquipment(effectCtx, nil, dep.EquipmentID, d.WorkerID); err != nil {
		s.metrics.RecordSideEffectFailure("assign_worker")
		s.logger.Error("failed to reassign equipment after worker change",
			zap.Int64("deploymentID", id), zap.Int64("equipmentID", dep.EquipmentID), zap.Error(err))
	}

	s.metrics.RecordDeploymentOp("change_worker")
	s.logger.Info("deployment worker changed", zap.Int64("deploymentID", id), zap.Int64("workerID", d.WorkerID))
	s.notify(ctx, events.DeploymentEvent{Type: events.DeploymentWorkerChanged, Deployment: *dep, Note: note, Actor: actor})
	return dep, nil
}

func (s *DeploymentService) Complete(ctx context.Context, id int64, d dto.CompleteDeploymentDTO) (*entities.Deployment, error) {
	actualEnd := s.now()
	if d.ActualEndDate.Valid {
		parsed, err := dto.ParseDate("actualEndDate", d.ActualEndDate.String)
		if err != nil {
			return nil, err
		}
		actualEnd = parsed
	}
	reason := "completed"
	if d.Reason.Valid && strings.TrimSpace(d.Reason.String) != "" {
		reason = d.Reason.String
	}

	dep, note, actor, err := s.mutate(ctx, id, func(tx pgx.Tx, dep *entities.Deployment, _ entities.Actor) (*entities.DeploymentNote, error) {
		if actualEnd.Before(dep.StartDate) {
			return nil, apperrors.NewInvalidInputError("actualEndDate must not be before the deployment start")
		}
		if err := s.repo.Complete(ctx, tx, dep.ID, actualEnd); err != nil {
			return nil, err
		}
		end := actualEnd
		dep.ActualEndDate = &end
		dep.Status = entities.DeploymentCompleted
		newValue := actualEnd.Format(noteDateLayout)
		return &entities.DeploymentNote{
			Kind:     entities.NoteCompleted,
			Reason:   reason,
			NewValue: &newValue,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDeploymentOp("complete")
	s.logger.Info("deployment completed", zap.Int64("deploymentID", id))
	s.notify(ctx, events.DeploymentEvent{Type: events.DeploymentCompleted, Deployment: *dep, Note: note, Actor: actor})
	return dep, nil
}

func (s *DeploymentService) FindByID(ctx context.Context, id int64) (*entities.Deployment, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dep, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.CanViewDeployment(actor, dep) {
		return nil, apperrors.ErrForbidden
	}
	return dep, nil
}

func (s *DeploymentService) List(ctx context.Context, q dto.DeploymentListQuery) ([]*entities.Deployment, uint64, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	filter := authz.ScopeDeploymentFilter(actor, entities.DeploymentFilter{
		OwnerID:     q.OwnerID,
		BpCompanyID: q.BpCompanyID,
		EpCompanyID: q.EpCompanyID,
		WorkerID:    q.WorkerID,
		Status:      q.Status,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	return s.repo.List(ctx, filter)
}

// CurrentForActor resolves the caller's worker record and returns its most
// recently started active deployment.
func (s *DeploymentService) CurrentForActor(ctx context.Context) (*entities.Deployment, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	workerID, err := s.resourceRepo.FindWorkerIDByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("user %d is not registered as a worker: %w", actor.UserID, apperrors.ErrNotFound)
		}
		return nil, err
	}

	active := entities.DeploymentActive
	list, _, err := s.repo.List(ctx, entities.DeploymentFilter{WorkerID: &workerID, Status: &active, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no active deployment for worker %d: %w", workerID, apperrors.ErrNotFound)
	}
	return list[0], nil
}

func (s *DeploymentService) Notes(ctx context.Context, id int64) ([]entities.DeploymentNote, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, id)
}

func (s *DeploymentService) notify(ctx context.Context, event events.DeploymentEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event)
}
