package entities

import (
	"time"

	apperrors "site-entry/pkg/errors"
)

type EntryRequestStatus string

const (
	StatusOwnerRequested EntryRequestStatus = "owner_requested"
	StatusBpReviewing    EntryRequestStatus = "bp_reviewing"
	StatusBpApproved     EntryRequestStatus = "bp_approved"
	StatusEpReviewing    EntryRequestStatus = "ep_reviewing"
	StatusEpApproved     EntryRequestStatus = "ep_approved"
	StatusRejected       EntryRequestStatus = "rejected"
	StatusCancelled      EntryRequestStatus = "cancelled"
)

var AllEntryRequestStatuses = []EntryRequestStatus{
	StatusOwnerRequested,
	StatusBpReviewing,
	StatusBpApproved,
	StatusEpReviewing,
	StatusEpApproved,
	StatusRejected,
	StatusCancelled,
}

// ParseEntryRequestStatus never coerces: anything outside the enum is a data
// integrity fault.
func ParseEntryRequestStatus(s string) (EntryRequestStatus, error) {
	for _, st := range AllEntryRequestStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", apperrors.DataIntegrity("unknown entry request status %q", s)
}

func (s EntryRequestStatus) IsTerminal() bool {
	return s == StatusEpApproved || s == StatusRejected || s == StatusCancelled
}

type EntryRequest struct {
	ID                 int64              `json:"id"`
	RequestNumber      string             `json:"requestNumber"`
	OwnerCompanyID     int64              `json:"ownerCompanyId"`
	OwnerUserID        int64              `json:"ownerUserId"`
	TargetBpCompanyID  int64              `json:"targetBpCompanyId"`
	TargetEpCompanyID  *int64             `json:"targetEpCompanyId"`
	Purpose            string             `json:"purpose"`
	RequestedStartDate time.Time          `json:"requestedStartDate"`
	RequestedEndDate   time.Time          `json:"requestedEndDate"`
	Status             EntryRequestStatus `json:"status"`
	BpApproverID       *int64             `json:"bpApproverId"`
	BpApprovedAt       *time.Time         `json:"bpApprovedAt"`
	EpApproverID       *int64             `json:"epApproverId"`
	EpApprovedAt       *time.Time         `json:"epApprovedAt"`
	WorkPlanRef        *string            `json:"workPlanRef"`
	RejectReason       *string            `json:"rejectReason"`
	RejectedBy         *int64             `json:"rejectedBy"`
	RejectedAt         *time.Time         `json:"rejectedAt"`
	CancelReason       *string            `json:"cancelReason"`
	CancelledBy        *int64             `json:"cancelledBy"`
	CancelledAt        *time.Time         `json:"cancelledAt"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`

	Items []EntryRequestItem `json:"items,omitempty"`
}

type ItemType string

const (
	ItemTypeEquipment ItemType = "equipment"
	ItemTypeWorker    ItemType = "worker"
)

func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(s); t {
	case ItemTypeEquipment, ItemTypeWorker:
		return t, nil
	}
	return "", apperrors.DataIntegrity("unknown item type %q", s)
}

type DocumentStatus string

const (
	DocumentStatusValid   DocumentStatus = "valid"
	DocumentStatusInvalid DocumentStatus = "invalid"
)

func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch st := DocumentStatus(s); st {
	case DocumentStatusValid, DocumentStatusInvalid:
		return st, nil
	}
	return "", apperrors.DataIntegrity("unknown document status %q", s)
}

type EntryRequestItem struct {
	ID                int64          `json:"id"`
	EntryRequestID    int64          `json:"entryRequestId"`
	ItemType          ItemType       `json:"itemType"`
	ItemID            int64          `json:"itemId"`
	PairedEquipmentID *int64         `json:"pairedEquipmentId"`
	PairedWorkerID    *int64         `json:"pairedWorkerId"`
	DocumentStatus    DocumentStatus `json:"documentStatus"`
}

// Pair returns the equipment/worker pair an item binds, if it binds both.
func (i EntryRequestItem) Pair() (equipmentID, workerID int64, ok bool) {
	if i.PairedEquipmentID == nil || i.PairedWorkerID == nil {
		return 0, 0, false
	}
	return *i.PairedEquipmentID, *i.PairedWorkerID, true
}

// EntryRequestPatch carries the columns a transition writes together with the
// new status. Nil fields are left untouched.
type EntryRequestPatch struct {
	TargetEpCompanyID *int64
	WorkPlanRef       *string
	BpApproverID      *int64
	BpApprovedAt      *time.Time
	EpApproverID      *int64
	EpApprovedAt      *time.Time
	RejectReason      *string
	RejectedBy        *int64
	RejectedAt        *time.Time
	CancelReason      *string
	CancelledBy       *int64
	CancelledAt       *time.Time
}

type EntryRequestHistory struct {
	ID             int64               `json:"id"`
	EntryRequestID int64               `json:"entryRequestId"`
	Operation      string              `json:"operation"`
	FromStatus     *EntryRequestStatus `json:"fromStatus"`
	ToStatus       EntryRequestStatus  `json:"toStatus"`
	ActorID        int64               `json:"actorId"`
	ActorRole      Role                `json:"actorRole"`
	Comment        *string             `json:"comment"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type EntryRequestFilter struct {
	OwnerCompanyID    *int64
	TargetBpCompanyID *int64
	TargetEpCompanyID *int64
	Status            *EntryRequestStatus
	Limit             uint64
	Offset            uint64
}

// Apply returns a copy of the request with the new status and every non-nil
// patch field written.
func (r EntryRequest) Apply(to EntryRequestStatus, p EntryRequestPatch, at time.Time) EntryRequest {
	r.Status = to
	r.UpdatedAt = at
	if p.TargetEpCompanyID != nil {
		r.TargetEpCompanyID = p.TargetEpCompanyID
	}
	if p.WorkPlanRef != nil {
		r.WorkPlanRef = p.WorkPlanRef
	}
	if p.BpApproverID != nil {
		r.BpApproverID = p.BpApproverID
	}
	if p.BpApprovedAt != nil {
		r.BpApprovedAt = p.BpApprovedAt
	}
	if p.EpApproverID != nil {
		r.EpApproverID = p.EpApproverID
	}
	if p.EpApprovedAt != nil {
		r.EpApprovedAt = p.EpApprovedAt
	}
	if p.RejectReason != nil {
		r.RejectReason = p.RejectReason
	}
	if p.RejectedBy != nil {
		r.RejectedBy = p.RejectedBy
	}
	if p.RejectedAt != nil {
		r.RejectedAt = p.RejectedAt
	}
	if p.CancelReason != nil {
		r.CancelReason = p.CancelReason
	}
	if p.CancelledBy != nil {
		r.CancelledBy = p.CancelledBy
	}
	if p.CancelledAt != nil {
		r.CancelledAt = p.CancelledAt
	}
	return r
}
