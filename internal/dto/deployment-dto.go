package dto

import (
	"github.com/aarondl/null/v8"

	"site-entry/internal/entities"
)

type CreateDeploymentDTO struct {
	EntryRequestID  int64        `json:"entryRequestId" validate:"required,gt=0"`
	EquipmentID     int64        `json:"equipmentId" validate:"required,gt=0"`
	WorkerID        null.Int64   `json:"workerId" validate:"omitempty,gt=0"`
	BpCompanyID     null.Int64   `json:"bpCompanyId" validate:"omitempty,gt=0"`
	StartDate       string       `json:"startDate" validate:"required,iso_date"`
	PlannedEndDate  string       `json:"plannedEndDate" validate:"required,iso_date,date_not_before=StartDate"`
	SiteName        string       `json:"siteName" validate:"max=255"`
	WorkDescription string       `json:"workDescription" validate:"max=4000"`
	DailyRate       null.Float64 `json:"dailyRate" validate:"omitempty,gte=0"`
	OvertimeRate    null.Float64 `json:"overtimeRate" validate:"omitempty,gte=0"`
	MonthlyRate     null.Float64 `json:"monthlyRate" validate:"omitempty,gte=0"`
}

func (d CreateDeploymentDTO) Rates() entities.Rates {
	return entities.Rates{
		Daily:    d.DailyRate.Ptr(),
		Overtime: d.OvertimeRate.Ptr(),
		Monthly:  d.MonthlyRate.Ptr(),
	}
}

type ExtendDeploymentDTO struct {
	PlannedEndDate string `json:"plannedEndDate" validate:"required,iso_date"`
	Reason         string `json:"reason" validate:"required,max=2000"`
}

type ChangeWorkerDTO struct {
	WorkerID int64  `json:"workerId" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required,max=2000"`
}

type CompleteDeploymentDTO struct {
	ActualEndDate null.String `json:"actualEndDate" validate:"omitempty,iso_date"`
	Reason        null.String `json:"reason" validate:"omitempty,max=2000"`
}

type DeploymentListQuery struct {
	OwnerID     *int64
	BpCompanyID *int64
	EpCompanyID *int64
	WorkerID    *int64
	Status      *entities.DeploymentStatus
	Limit       uint64
	Offset      uint64
}
