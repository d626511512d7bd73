package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-entry/internal/dto"
	"site-entry/internal/entities"
	"site-entry/internal/events"
	apperrors "site-entry/pkg/errors"
)

// seedDeployment stores an active deployment of E1 run by W1 for the BP.
func (f *fixture) seedDeployment(start time.Time) int64 {
	w := workerW1
	ep := epCompany
	dep := &entities.Deployment{
		EntryRequestID: f.seedRequest(entities.StatusEpApproved, &ep),
		EquipmentID:    equipmentE1,
		WorkerID:       &w,
		OwnerID:        ownerCompany,
		BpCompanyID:    bpCompany,
		EpCompanyID:    &ep,
		StartDate:      start,
		PlannedEndDate: start.AddDate(0, 1, 0),
		Status:         entities.DeploymentActive,
	}
	id, err := f.deployRepo.Create(context.Background(), nil, dep)
	if err != nil {
		panic(err)
	}
	return id
}

func TestDeploymentService_Create(t *testing.T) {
	f := newFixture(t)
	reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))

	dep, err := f.deployments.Create(bpCtx, dto.CreateDeploymentDTO{
		EntryRequestID: reqID,
		EquipmentID:    equipmentE1,
		WorkerID:       null.Int64From(workerW2),
		StartDate:      "2026-11-01",
		PlannedEndDate: "2026-11-30",
		SiteName:       "North gate",
		DailyRate:      null.Float64From(450),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.DeploymentActive, dep.Status)
	assert.Equal(t, ownerCompany, dep.OwnerID)
	assert.Equal(t, bpCompany, dep.BpCompanyID)
	assert.Equal(t, epCompany, *dep.EpCompanyID)
	assert.Equal(t, 450.0, *dep.Rates.Daily)
	assert.Nil(t, dep.Rates.Monthly)
	assert.Equal(t, []string{events.DeploymentCreated}, f.notifier.names())
}

func TestDeploymentService_CreateGuards(t *testing.T) {
	base := func(reqID int64) dto.CreateDeploymentDTO {
		return dto.CreateDeploymentDTO{EntryRequestID: reqID, EquipmentID: equipmentE1, StartDate: "2026-11-01", PlannedEndDate: "2026-11-30"}
	}

	t.Run("unknown entry request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.deployments.Create(bpCtx, base(4242))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("owner cannot create", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		_, err := f.deployments.Create(ownerCtx, base(reqID))
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("bp of another company", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		_, err := f.deployments.Create(actorCtx(entities.RoleBP, 99, 50), base(reqID))
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Empty(t, f.deployRepo.deployments)
	})

	t.Run("request not yet approved by the ep", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusOwnerRequested, nil)
		_, err := f.deployments.Create(bpCtx, base(reqID))
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		assert.Empty(t, f.deployRepo.deployments)
	})

	t.Run("equipment outside the request", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		d := base(reqID)
		d.EquipmentID = equipmentE2
		_, err := f.deployments.Create(bpCtx, d)
		var inputErr *apperrors.InvalidInputError
		require.True(t, errors.As(err, &inputErr), "got %v", err)
		assert.Empty(t, f.deployRepo.deployments)
	})

	t.Run("worker with expired documents", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		expired := testNow.AddDate(0, 0, -1)
		f.documents.docs = nil
		f.documents.upload(entities.TargetEquipment, equipmentE1, "insurance_certificate", nil)
		f.documents.upload(entities.TargetWorker, workerW2, "safety_training", &expired)
		d := base(reqID)
		d.WorkerID = null.Int64From(workerW2)

		_, err := f.deployments.Create(bpCtx, d)
		var validationErr *apperrors.ValidationError
		require.True(t, errors.As(err, &validationErr), "got %v", err)
		assert.Equal(t, []string{"worker 602: safety_training expired"}, validationErr.Issues)
		assert.Empty(t, f.deployRepo.deployments)
		assert.Empty(t, f.notifier.names())
	})

	t.Run("equipment missing a mandatory document", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		f.documents.docs = nil

		_, err := f.deployments.Create(bpCtx, base(reqID))
		var validationErr *apperrors.ValidationError
		require.True(t, errors.As(err, &validationErr), "got %v", err)
		assert.Empty(t, f.deployRepo.deployments)
	})

	t.Run("admin may override the bp", func(t *testing.T) {
		f := newFixture(t)
		reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
		d := base(reqID)
		d.BpCompanyID = null.Int64From(21)
		dep, err := f.deployments.Create(adminCtx, d)
		require.NoError(t, err)
		assert.Equal(t, int64(21), dep.BpCompanyID)
	})
}

func TestDeploymentService_Extend(t *testing.T) {
	f := newFixture(t)
	id := f.seedDeployment(testNow)

	dep, err := f.deployments.Extend(bpCtx, id, dto.ExtendDeploymentDTO{PlannedEndDate: "2027-01-31", Reason: "scope grew"})
	require.NoError(t, err)
	assert.Equal(t, "2027-01-31", dep.PlannedEndDate.Format(noteDateLayout))
	assert.Equal(t, dep.PlannedEndDate, f.deployRepo.deployments[id].PlannedEndDate)

	notes, err := f.deployments.Notes(bpCtx, id)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, entities.NoteExtended, notes[0].Kind)
	assert.Equal(t, "2026-11-19", *notes[0].OldValue)
	assert.Equal(t, "2027-01-31", *notes[0].NewValue)
	assert.Equal(t, bpUser, notes[0].ActorID)
	assert.Equal(t, "scope grew", notes[0].Reason)

	for _, end := range []string{"2026-01-01", "2026-10-20", "2027-01-31"} {
		_, err = f.deployments.Extend(bpCtx, id, dto.ExtendDeploymentDTO{PlannedEndDate: end, Reason: "shorter"})
		var inputErr *apperrors.InvalidInputError
		require.True(t, errors.As(err, &inputErr), "%s: got %v", end, err)
	}
	assert.Equal(t, "2027-01-31", f.deployRepo.deployments[id].PlannedEndDate.Format(noteDateLayout))

	_, err = f.deployments.Extend(ownerCtx, id, dto.ExtendDeploymentDTO{PlannedEndDate: "2027-02-28", Reason: "mine"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Len(t, f.deployRepo.notes, 1)
}

func TestDeploymentService_ChangeWorker(t *testing.T) {
	t.Run("swaps a compliant worker", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedDeployment(testNow)

		dep, err := f.deployments.ChangeWorker(bpCtx, id, dto.ChangeWorkerDTO{WorkerID: workerW2, Reason: "shift change"})
		require.NoError(t, err)
		assert.Equal(t, workerW2, *dep.WorkerID)
		assert.Equal(t, workerW2, *f.deployRepo.deployments[id].WorkerID)
		assert.Equal(t, workerW2, f.resources.assignments[equipmentE1])

		require.Len(t, f.deployRepo.notes, 1)
		note := f.deployRepo.notes[0]
		assert.Equal(t, entities.NoteWorkerChanged, note.Kind)
		assert.Equal(t, "601", *note.OldValue)
		assert.Equal(t, "602", *note.NewValue)
		assert.Contains(t, f.notifier.names(), events.DeploymentWorkerChanged)
	})

	t.Run("refuses a worker with expired documents", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedDeployment(testNow)
		f.documents.docs = nil
		expired := testNow.AddDate(0, 0, -1)
		f.documents.upload(entities.TargetWorker, workerW2, "safety_training", &expired)

		_, err := f.deployments.ChangeWorker(bpCtx, id, dto.ChangeWorkerDTO{WorkerID: workerW2, Reason: "shift change"})
		var validationErr *apperrors.ValidationError
		require.True(t, errors.As(err, &validationErr), "got %v", err)
		assert.Equal(t, []string{"worker 602: safety_training expired"}, validationErr.Issues)
		assert.Equal(t, workerW1, *f.deployRepo.deployments[id].WorkerID)
		assert.Empty(t, f.deployRepo.notes)
	})

	t.Run("same worker is rejected", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedDeployment(testNow)

		_, err := f.deployments.ChangeWorker(bpCtx, id, dto.ChangeWorkerDTO{WorkerID: workerW1, Reason: "noop"})
		var inputErr *apperrors.InvalidInputError
		require.True(t, errors.As(err, &inputErr), "got %v", err)
	})

	t.Run("assignment failure does not undo the swap", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedDeployment(testNow)
		f.resources.assignErr = errors.New("timeout")

		dep, err := f.deployments.ChangeWorker(bpCtx, id, dto.ChangeWorkerDTO{WorkerID: workerW2, Reason: "shift change"})
		require.NoError(t, err)
		assert.Equal(t, workerW2, *dep.WorkerID)
	})
}

func TestDeploymentService_Complete(t *testing.T) {
	f := newFixture(t)
	start := testNow.AddDate(0, 0, -10)
	id := f.seedDeployment(start)

	dep, err := f.deployments.Complete(bpCtx, id, dto.CompleteDeploymentDTO{})
	require.NoError(t, err)
	assert.Equal(t, entities.DeploymentCompleted, dep.Status)
	require.NotNil(t, dep.ActualEndDate)
	assert.Equal(t, testNow, *dep.ActualEndDate)
	require.Len(t, f.deployRepo.notes, 1)
	assert.Equal(t, "completed", f.deployRepo.notes[0].Reason)

	_, err = f.deployments.Extend(bpCtx, id, dto.ExtendDeploymentDTO{PlannedEndDate: "2027-01-31", Reason: "late"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = f.deployments.Complete(bpCtx, id, dto.CompleteDeploymentDTO{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDeploymentService_CompleteBeforeStart(t *testing.T) {
	f := newFixture(t)
	id := f.seedDeployment(testNow)

	_, err := f.deployments.Complete(bpCtx, id, dto.CompleteDeploymentDTO{ActualEndDate: null.StringFrom("2026-01-01")})
	var inputErr *apperrors.InvalidInputError
	require.True(t, errors.As(err, &inputErr), "got %v", err)
	assert.Equal(t, entities.DeploymentActive, f.deployRepo.deployments[id].Status)
}

func TestDeploymentService_CurrentForActor(t *testing.T) {
	f := newFixture(t)
	workerUser := int64(70)
	workerCtx := actorCtx(entities.RoleOwner, ownerCompany, workerUser)

	_, err := f.deployments.CurrentForActor(workerCtx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	f.resources.workerByUser[workerUser] = workerW1
	_, err = f.deployments.CurrentForActor(workerCtx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	older := f.seedDeployment(testNow.AddDate(0, -2, 0))
	newer := f.seedDeployment(testNow.AddDate(0, 0, -3))
	_, err = f.deployments.Complete(bpCtx, newer, dto.CompleteDeploymentDTO{})
	require.NoError(t, err)

	current, err := f.deployments.CurrentForActor(workerCtx)
	require.NoError(t, err)
	assert.Equal(t, older, current.ID)
}

func TestDeploymentService_VisibilityAndListScope(t *testing.T) {
	f := newFixture(t)
	id := f.seedDeployment(testNow)

	_, err := f.deployments.FindByID(epCtx, id)
	assert.NoError(t, err)
	_, err = f.deployments.FindByID(actorCtx(entities.RoleEP, 31, 9), id)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	list, total, err := f.deployments.List(actorCtx(entities.RoleOwner, 77, 9), dto.DeploymentListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	list, _, err = f.deployments.List(ownerCtx, dto.DeploymentListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeploymentService_EnsureFromEntryRequestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	reqID := f.seedRequest(entities.StatusEpApproved, int64Ptr(epCompany))
	req := f.entryRepo.requests[reqID]

	created, err := f.deployments.EnsureFromEntryRequest(epCtx, &req, equipmentE1, workerW1)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.deployments.EnsureFromEntryRequest(epCtx, &req, equipmentE1, workerW1)
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, f.deployRepo.deployments, 1)
	assert.Equal(t, []string{events.DeploymentCreated}, f.notifier.names())
	for _, dep := range f.deployRepo.deployments {
		assert.Equal(t, req.RequestedStartDate, dep.StartDate)
		assert.Equal(t, req.RequestedEndDate, dep.PlannedEndDate)
		assert.Equal(t, req.Purpose, dep.WorkDescription)
	}
}
