package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

const (
	RequestTypeEquipment           = "equipment"
	RequestTypeWorker              = "worker"
	RequestTypeEquipmentWithWorker = "equipment_with_worker"
)

type EntryRequestItemDTO struct {
	RequestType string     `json:"requestType" validate:"required,oneof=equipment worker equipment_with_worker"`
	EquipmentID null.Int64 `json:"equipmentId" validate:"omitempty,gt=0"`
	WorkerID    null.Int64 `json:"workerId" validate:"omitempty,gt=0"`
}

// ToSelection checks that the ids present match the request type exactly.
func (d EntryRequestItemDTO) ToSelection() (entities.ItemSelection, error) {
	switch d.RequestType {
	case RequestTypeEquipment:
		if !d.EquipmentID.Valid || d.WorkerID.Valid {
			return nil, apperrors.NewInvalidInputError("item of type %q needs equipmentId only", d.RequestType)
		}
		return entities.EquipmentSelection{EquipmentID: d.EquipmentID.Int64}, nil
	case RequestTypeWorker:
		if !d.WorkerID.Valid || d.EquipmentID.Valid {
			return nil, apperrors.NewInvalidInputError("item of type %q needs workerId only", d.RequestType)
		}
		return entities.WorkerSelection{WorkerID: d.WorkerID.Int64}, nil
	case RequestTypeEquipmentWithWorker:
		if !d.EquipmentID.Valid || !d.WorkerID.Valid {
			return nil, apperrors.NewInvalidInputError("item of type %q needs equipmentId and workerId", d.RequestType)
		}
		return entities.PairedSelection{EquipmentID: d.EquipmentID.Int64, WorkerID: d.WorkerID.Int64}, nil
	}
	return nil, apperrors.NewInvalidInputError("unknown request type %q", d.RequestType)
}

type CreateEntryRequestDTO struct {
	// OwnerCompanyID is only honoured for admins; owners always file for
	// their own company.
	OwnerCompanyID     null.Int64            `json:"ownerCompanyId" validate:"omitempty,gt=0"`
	TargetBpCompanyID  int64                 `json:"targetBpCompanyId" validate:"required,gt=0"`
	Purpose            string                `json:"purpose" validate:"required,max=2000"`
	RequestedStartDate string                `json:"requestedStartDate" validate:"required,iso_date"`
	RequestedEndDate   string                `json:"requestedEndDate" validate:"required,iso_date,date_not_before=RequestedStartDate"`
	Items              []EntryRequestItemDTO `json:"items" validate:"required,min=1,dive"`
}

type CreateEntryRequestResponseDTO struct {
	ID            int64                       `json:"id"`
	RequestNumber string                      `json:"requestNumber"`
	Status        entities.EntryRequestStatus `json:"status"`
}

type ReviewDTO struct {
	Comment null.String `json:"comment" validate:"omitempty,max=2000"`
}

type BpApproveDTO struct {
	TargetEpCompanyID int64 `json:"targetEpCompanyId" validate:"required,gt=0"`
	// WorkPlanRef may be omitted when a work plan was uploaded to the
	// request beforehand.
	WorkPlanRef null.String `json:"workPlanRef" validate:"omitempty,max=1024"`
	Comment     null.String `json:"comment" validate:"omitempty,max=2000"`
}

type EpApproveDTO struct {
	Comment null.String `json:"comment" validate:"omitempty,max=2000"`
}

type RejectDTO struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type CancelDTO struct {
	Reason null.String `json:"reason" validate:"omitempty,max=2000"`
}

type WorkPlanResponseDTO struct {
	WorkPlanRef string `json:"workPlanRef"`
}

type EntryRequestListQuery struct {
	Status            *entities.EntryRequestStatus
	OwnerCompanyID    *int64
	TargetBpCompanyID *int64
	TargetEpCompanyID *int64
	Limit             uint64
	Offset            uint64
}

// ParseDate reads a YYYY-MM-DD date as UTC midnight.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperrors.NewInvalidInputError("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}
