package entities

import (
	"time"

	apperrors "site-entry/pkg/errors"
)

type DeploymentStatus string

const (
	DeploymentActive    DeploymentStatus = "active"
	DeploymentCompleted DeploymentStatus = "completed"
)

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	switch st := DeploymentStatus(s); st {
	case DeploymentActive, DeploymentCompleted:
		return st, nil
	}
	return "", apperrors.DataIntegrity("unknown deployment status %q", s)
}

type Deployment struct {
	ID              int64            `json:"id"`
	EntryRequestID  int64            `json:"entryRequestId"`
	EquipmentID     int64            `json:"equipmentId"`
	WorkerID        *int64           `json:"workerId"`
	OwnerID         int64            `json:"ownerId"`
	BpCompanyID     int64            `json:"bpCompanyId"`
	EpCompanyID     *int64           `json:"epCompanyId"`
	StartDate       time.Time        `json:"startDate"`
	PlannedEndDate  time.Time        `json:"plannedEndDate"`
	ActualEndDate   *time.Time       `json:"actualEndDate"`
	Status          DeploymentStatus `json:"status"`
	SiteName        string           `json:"siteName"`
	WorkDescription string           `json:"workDescription"`
	Rates           Rates            `json:"rates"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type Rates struct {
	Daily    *float64 `json:"daily"`
	Overtime *float64 `json:"overtime"`
	Monthly  *float64 `json:"monthly"`
}

type DeploymentNoteKind string

const (
	NoteExtended      DeploymentNoteKind = "extended"
	NoteWorkerChanged DeploymentNoteKind = "worker_changed"
	NoteCompleted     DeploymentNoteKind = "completed"
)

func ParseDeploymentNoteKind(s string) (DeploymentNoteKind, error) {
	switch k := DeploymentNoteKind(s); k {
	case NoteExtended, NoteWorkerChanged, NoteCompleted:
		return k, nil
	}
	return "", apperrors.DataIntegrity("unknown deployment note kind %q", s)
}

type DeploymentNote struct {
	ID           int64              `json:"id"`
	DeploymentID int64              `json:"deploymentId"`
	Kind         DeploymentNoteKind `json:"kind"`
	Reason       string             `json:"reason"`
	ActorID      int64              `json:"actorId"`
	OldValue     *string            `json:"oldValue"`
	NewValue     *string            `json:"newValue"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type DeploymentFilter struct {
	OwnerID     *int64
	BpCompanyID *int64
	EpCompanyID *int64
	WorkerID    *int64
	Status      *DeploymentStatus
	Limit       uint64
	Offset      uint64
}
