package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"site-entry/internal/entities"
	"site-entry/internal/repositories"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/eventbus"
	"site-entry/pkg/utils"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func actorCtx(role entities.Role, companyID, userID int64) context.Context {
	return utils.WithActor(context.Background(), entities.Actor{UserID: userID, Role: role, CompanyID: companyID})
}

// snapshotter lets the fake transaction manager roll back in-memory state.
type snapshotter interface {
	snapshot() func()
}

type fakeTxManager struct {
	stores []snapshotter
	calls  int
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fakeEntryRequestRepo struct {
	requests map[int64]entities.EntryRequest
	items    map[int64][]entities.EntryRequestItem
	history  []entities.EntryRequestHistory
	nextID   int64

	// beforeTransition runs ahead of the conditional update and may change
	// stored state to simulate a concurrent writer.
	beforeTransition func(id int64)
	transitionCalls  int

	// external holds writes made by a simulated concurrent writer during the
	// current transaction; they survive its rollback.
	external map[int64]entities.EntryRequestStatus
}

func newFakeEntryRequestRepo() *fakeEntryRequestRepo {
	return &fakeEntryRequestRepo{
		requests: make(map[int64]entities.EntryRequest),
		items:    make(map[int64][]entities.EntryRequestItem),
	}
}

func (r *fakeEntryRequestRepo) snapshot() func() {
	reqs := make(map[int64]entities.EntryRequest, len(r.requests))
	for k, v := range r.requests {
		reqs[k] = v
	}
	items := make(map[int64][]entities.EntryRequestItem, len(r.items))
	for k, v := range r.items {
		items[k] = append([]entities.EntryRequestItem(nil), v...)
	}
	history := append([]entities.EntryRequestHistory(nil), r.history...)
	nextID := r.nextID
	r.external = nil
	return func() {
		r.requests, r.items, r.history, r.nextID = reqs, items, history, nextID
		for id, status := range r.external {
			req := r.requests[id]
			req.Status = status
			r.requests[id] = req
		}
		r.external = nil
	}
}

// setConcurrently changes a stored status as another writer would.
func (r *fakeEntryRequestRepo) setConcurrently(id int64, status entities.EntryRequestStatus) {
	req := r.requests[id]
	req.Status = status
	r.requests[id] = req
	if r.external == nil {
		r.external = make(map[int64]entities.EntryRequestStatus)
	}
	r.external[id] = status
}

func (r *fakeEntryRequestRepo) put(req entities.EntryRequest, items ...entities.EntryRequestItem) int64 {
	r.nextID++
	req.ID = r.nextID
	if req.RequestNumber == "" {
		req.RequestNumber = fmt.Sprintf("ER-20261019-%04d", req.ID)
	}
	r.requests[req.ID] = req
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].EntryRequestID = req.ID
	}
	r.items[req.ID] = items
	return req.ID
}

func (r *fakeEntryRequestRepo) Create(_ context.Context, _ pgx.Tx, req *entities.EntryRequest, items []entities.EntryRequestItem) (int64, error) {
	r.nextID++
	req.ID = r.nextID
	req.CreatedAt, req.UpdatedAt = testNow, testNow
	req.Items = make([]entities.EntryRequestItem, 0, len(items))
	for i, it := range items {
		it.ID = int64(i + 1)
		it.EntryRequestID = req.ID
		req.Items = append(req.Items, it)
	}
	stored := *req
	stored.Items = nil
	r.requests[req.ID] = stored
	r.items[req.ID] = append([]entities.EntryRequestItem(nil), req.Items...)
	return req.ID, nil
}

func (r *fakeEntryRequestRepo) FindByID(_ context.Context, _ pgx.Tx, id int64) (*entities.EntryRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &req, nil
}

func (r *fakeEntryRequestRepo) FindItems(_ context.Context, _ pgx.Tx, requestID int64) ([]entities.EntryRequestItem, error) {
	return append([]entities.EntryRequestItem{}, r.items[requestID]...), nil
}

func (r *fakeEntryRequestRepo) List(_ context.Context, f entities.EntryRequestFilter) ([]*entities.EntryRequest, uint64, error) {
	out := make([]*entities.EntryRequest, 0)
	for _, req := range r.requests {
		req := req
		switch {
		case f.OwnerCompanyID != nil && req.OwnerCompanyID != *f.OwnerCompanyID,
			f.TargetBpCompanyID != nil && req.TargetBpCompanyID != *f.TargetBpCompanyID,
			f.TargetEpCompanyID != nil && (req.TargetEpCompanyID == nil || *req.TargetEpCompanyID != *f.TargetEpCompanyID),
			f.Status != nil && req.Status != *f.Status:
			continue
		}
		out = append(out, &req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, uint64(len(out)), nil
}

func (r *fakeEntryRequestRepo) TransitionStatus(_ context.Context, _ pgx.Tx, id int64, from, to entities.EntryRequestStatus, patch entities.EntryRequestPatch) error {
	r.transitionCalls++
	if r.beforeTransition != nil {
		hook := r.beforeTransition
		r.beforeTransition = nil
		hook(id)
	}
	req, ok := r.requests[id]
	if !ok || req.Status != from {
		return apperrors.ErrStaleState
	}
	r.requests[id] = req.Apply(to, patch, testNow)
	return nil
}

func (r *fakeEntryRequestRepo) AddHistory(_ context.Context, _ pgx.Tx, h entities.EntryRequestHistory) error {
	h.ID = int64(len(r.history) + 1)
	r.history = append(r.history, h)
	return nil
}

func (r *fakeEntryRequestRepo) ListHistory(_ context.Context, requestID int64) ([]entities.EntryRequestHistory, error) {
	out := make([]entities.EntryRequestHistory, 0)
	for _, h := range r.history {
		if h.EntryRequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeEntryRequestRepo) historyOps(requestID int64) []string {
	ops := make([]string, 0)
	for _, h := range r.history {
		if h.EntryRequestID == requestID {
			ops = append(ops, h.Operation)
		}
	}
	return ops
}

type fakeResourceRepo struct {
	classifications map[entities.TargetType]map[int64]entities.Classification
	assignments     map[int64]int64
	assignCalls     int
	assignErr       error
	workerByUser    map[int64]int64
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{
		classifications: map[entities.TargetType]map[int64]entities.Classification{
			entities.TargetEquipment: {},
			entities.TargetWorker:    {},
		},
		assignments:  make(map[int64]int64),
		workerByUser: make(map[int64]int64),
	}
}

func (r *fakeResourceRepo) add(targetType entities.TargetType, id, classID int64, name string) {
	r.classifications[targetType][id] = entities.Classification{TargetType: targetType, TargetID: id, ClassificationID: classID, Name: name}
}

func (r *fakeResourceRepo) GetClassifications(_ context.Context, targetType entities.TargetType, ids []int64) (map[int64]entities.Classification, error) {
	out := make(map[int64]entities.Classification)
	for _, id := range ids {
		if c, ok := r.classifications[targetType][id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (r *fakeResourceRepo) AssignWorkerToEquipment(_ context.Context, _ pgx.Tx, equipmentID, workerID int64) error {
	r.assignCalls++
	if r.assignErr != nil {
		return r.assignErr
	}
	if _, ok := r.classifications[entities.TargetEquipment][equipmentID]; !ok {
		return apperrors.ErrNotFound
	}
	r.assignments[equipmentID] = workerID
	return nil
}

func (r *fakeResourceRepo) FindWorkerIDByUserID(_ context.Context, userID int64) (int64, error) {
	id, ok := r.workerByUser[userID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	return id, nil
}

type fakeDocumentRepo struct {
	rules []entities.RequiredDocumentRule
	docs  []entities.ComplianceDocument
	calls int
}

func (r *fakeDocumentRepo) require(targetType entities.TargetType, classID int64, names ...string) {
	for _, n := range names {
		r.rules = append(r.rules, entities.RequiredDocumentRule{TargetType: targetType, ClassificationID: classID, DocName: n, IsMandatory: true})
	}
}

func (r *fakeDocumentRepo) upload(targetType entities.TargetType, targetID int64, docType string, expiry *time.Time) {
	r.docs = append(r.docs, entities.ComplianceDocument{TargetType: targetType, TargetID: targetID, DocType: docType, ExpiryDate: expiry})
}

func (r *fakeDocumentRepo) ListMandatoryDocs(_ context.Context, targetType entities.TargetType, classificationIDs []int64) ([]entities.RequiredDocumentRule, error) {
	r.calls++
	wanted := make(map[int64]bool)
	for _, id := range classificationIDs {
		wanted[id] = true
	}
	out := make([]entities.RequiredDocumentRule, 0)
	for _, rule := range r.rules {
		if rule.TargetType == targetType && wanted[rule.ClassificationID] && rule.IsMandatory {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) ListUploadedDocs(_ context.Context, targetType entities.TargetType, targetIDs []int64) ([]entities.ComplianceDocument, error) {
	wanted := make(map[int64]bool)
	for _, id := range targetIDs {
		wanted[id] = true
	}
	out := make([]entities.ComplianceDocument, 0)
	for _, d := range r.docs {
		if d.TargetType == targetType && wanted[d.TargetID] {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeDeploymentRepo struct {
	deployments map[int64]entities.Deployment
	notes       []entities.DeploymentNote
	nextID      int64
}

func newFakeDeploymentRepo() *fakeDeploymentRepo {
	return &fakeDeploymentRepo{deployments: make(map[int64]entities.Deployment)}
}

func (r *fakeDeploymentRepo) snapshot() func() {
	deps := make(map[int64]entities.Deployment, len(r.deployments))
	for k, v := range r.deployments {
		deps[k] = v
	}
	notes := append([]entities.DeploymentNote(nil), r.notes...)
	nextID := r.nextID
	return func() { r.deployments, r.notes, r.nextID = deps, notes, nextID }
}

func (r *fakeDeploymentRepo) Create(_ context.Context, _ pgx.Tx, d *entities.Deployment) (int64, error) {
	for _, existing := range r.deployments {
		if existing.EntryRequestID == d.EntryRequestID && existing.EquipmentID == d.EquipmentID {
			return 0, apperrors.ErrConflict
		}
	}
	r.nextID++
	d.ID = r.nextID
	d.CreatedAt, d.UpdatedAt = testNow, testNow
	r.deployments[d.ID] = *d
	return d.ID, nil
}

func (r *fakeDeploymentRepo) EnsureForEntryRequest(ctx context.Context, tx pgx.Tx, d *entities.Deployment) (bool, error) {
	if _, err := r.Create(ctx, tx, d); err != nil {
		if err == apperrors.ErrConflict {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *fakeDeploymentRepo) FindByID(_ context.Context, _ pgx.Tx, id int64) (*entities.Deployment, error) {
	d, ok := r.deployments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDeploymentRepo) FindForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*entities.Deployment, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeDeploymentRepo) List(_ context.Context, f entities.DeploymentFilter) ([]*entities.Deployment, uint64, error) {
	all := make([]*entities.Deployment, 0)
	for _, d := range r.deployments {
		d := d
		switch {
		case f.OwnerID != nil && d.OwnerID != *f.OwnerID,
			f.BpCompanyID != nil && d.BpCompanyID != *f.BpCompanyID,
			f.EpCompanyID != nil && (d.EpCompanyID == nil || *d.EpCompanyID != *f.EpCompanyID),
			f.WorkerID != nil && (d.WorkerID == nil || *d.WorkerID != *f.WorkerID),
			f.Status != nil && d.Status != *f.Status:
			continue
		}
		all = append(all, &d)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartDate.Equal(all[j].StartDate) {
			return all[i].StartDate.After(all[j].StartDate)
		}
		return all[i].ID > all[j].ID
	})
	total := uint64(len(all))
	if f.Offset >= total {
		return []*entities.Deployment{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func (r *fakeDeploymentRepo) update(id int64, fn func(d *entities.Deployment)) error {
	d, ok := r.deployments[id]
	if !ok || d.Status != entities.DeploymentActive {
		return apperrors.ErrStaleState
	}
	fn(&d)
	r.deployments[id] = d
	return nil
}

func (r *fakeDeploymentRepo) UpdateEndDate(_ context.Context, _ pgx.Tx, id int64, plannedEnd time.Time) error {
	return r.update(id, func(d *entities.Deployment) { d.PlannedEndDate = plannedEnd })
}

func (r *fakeDeploymentRepo) UpdateWorker(_ context.Context, _ pgx.Tx, id int64, workerID int64) error {
	return r.update(id, func(d *entities.Deployment) { d.WorkerID = &workerID })
}

func (r *fakeDeploymentRepo) Complete(_ context.Context, _ pgx.Tx, id int64, actualEnd time.Time) error {
	return r.update(id, func(d *entities.Deployment) {
		d.Status = entities.DeploymentCompleted
		d.ActualEndDate = &actualEnd
	})
}

func (r *fakeDeploymentRepo) AddNote(_ context.Context, _ pgx.Tx, note entities.DeploymentNote) error {
	note.ID = int64(len(r.notes) + 1)
	r.notes = append(r.notes, note)
	return nil
}

func (r *fakeDeploymentRepo) ListNotes(_ context.Context, deploymentID int64) ([]entities.DeploymentNote, error) {
	out := make([]entities.DeploymentNote, 0)
	for _, n := range r.notes {
		if n.DeploymentID == deploymentID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeSequence struct {
	n   int64
	err error
}

func (s *fakeSequence) NextRequestNumber(_ context.Context, day time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.n++
	return repositories.FormatRequestNumber(day.Format("20060102"), s.n), nil
}

type fakeStorage struct {
	files  map[string][]byte
	putErr error
}

func (s *fakeStorage) Put(_ context.Context, path string, body io.Reader, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	url := "/uploads/" + path
	s.files[url] = buf.Bytes()
	return url, nil
}

func (s *fakeStorage) Delete(_ context.Context, url string) error {
	delete(s.files, url)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event eventbus.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Name())
	}
	return out
}

// Company and resource ids shared by the service tests.
const (
	ownerCompany = int64(10)
	bpCompany    = int64(20)
	epCompany    = int64(30)

	ownerUser = int64(1)
	bpUser    = int64(2)
	epUser    = int64(3)
	adminUser = int64(4)

	craneClass    = int64(100)
	operatorClass = int64(200)

	equipmentE1 = int64(501)
	equipmentE2 = int64(502)
	workerW1    = int64(601)
	workerW2    = int64(602)
)

type fixture struct {
	tx          *fakeTxManager
	entryRepo   *fakeEntryRequestRepo
	resources   *fakeResourceRepo
	documents   *fakeDocumentRepo
	deployRepo  *fakeDeploymentRepo
	sequence    *fakeSequence
	storage     *fakeStorage
	notifier    *recordingNotifier
	compliance  *ComplianceService
	entries     *EntryRequestService
	deployments *DeploymentService
}

// newFixture wires the services over fakes with E1/E2 cranes and W1/W2
// operators, all holding valid documents.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		entryRepo:  newFakeEntryRequestRepo(),
		resources:  newFakeResourceRepo(),
		documents:  &fakeDocumentRepo{},
		deployRepo: newFakeDeploymentRepo(),
		sequence:   &fakeSequence{},
		storage:    &fakeStorage{},
		notifier:   &recordingNotifier{},
	}
	f.tx = &fakeTxManager{stores: []snapshotter{f.entryRepo, f.deployRepo}}

	f.resources.add(entities.TargetEquipment, equipmentE1, craneClass, "Crane E1")
	f.resources.add(entities.TargetEquipment, equipmentE2, craneClass, "Crane E2")
	f.resources.add(entities.TargetWorker, workerW1, operatorClass, "Operator W1")
	f.resources.add(entities.TargetWorker, workerW2, operatorClass, "Operator W2")

	f.documents.require(entities.TargetEquipment, craneClass, "insurance_certificate")
	f.documents.require(entities.TargetWorker, operatorClass, "safety_training")
	future := testNow.AddDate(1, 0, 0)
	f.documents.upload(entities.TargetEquipment, equipmentE1, "insurance_certificate", &future)
	f.documents.upload(entities.TargetEquipment, equipmentE2, "insurance_certificate", nil)
	f.documents.upload(entities.TargetWorker, workerW1, "safety_training", &future)
	f.documents.upload(entities.TargetWorker, workerW2, "safety_training", &future)

	logger := zap.NewNop()
	f.compliance = NewComplianceService(f.resources, f.documents, nil, logger)
	f.compliance.now = func() time.Time { return testNow }

	f.deployments = NewDeploymentService(f.tx, f.deployRepo, f.entryRepo, f.resources, f.compliance, f.notifier, nil, logger)
	f.deployments.now = func() time.Time { return testNow }

	f.entries = NewEntryRequestService(f.tx, f.entryRepo, f.resources, f.sequence, f.compliance, f.deployments, f.storage, f.notifier, nil, logger)
	f.entries.now = func() time.Time { return testNow }
	return f
}

// seedRequest stores a request for E1+W1 in the given status.
func (f *fixture) seedRequest(status entities.EntryRequestStatus, ep *int64) int64 {
	sel := entities.PairedSelection{EquipmentID: equipmentE1, WorkerID: workerW1}
	items := sel.Items()
	for i := range items {
		items[i].DocumentStatus = entities.DocumentStatusValid
	}
	return f.entryRepo.put(entities.EntryRequest{
		OwnerCompanyID:     ownerCompany,
		OwnerUserID:        ownerUser,
		TargetBpCompanyID:  bpCompany,
		TargetEpCompanyID:  ep,
		Purpose:            "foundation works",
		RequestedStartDate: testNow,
		RequestedEndDate:   testNow.AddDate(0, 1, 0),
		Status:             status,
	}, items...)
}

func (f *fixture) status(id int64) entities.EntryRequestStatus {
	return f.entryRepo.requests[id].Status
}

func int64Ptr(v int64) *int64 { return &v }
