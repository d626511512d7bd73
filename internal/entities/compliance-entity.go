package entities

import (
	"time"

	apperrors "site-entry/pkg/errors"
)

type TargetType string

const (
	TargetEquipment TargetType = "equipment"
	TargetWorker    TargetType = "worker"
)

func ParseTargetType(s string) (TargetType, error) {
	switch t := TargetType(s); t {
	case TargetEquipment, TargetWorker:
		return t, nil
	}
	return "", apperrors.DataIntegrity("unknown target type %q", s)
}

// Classification is the equipment type or worker type of a resource.
type Classification struct {
	TargetType       TargetType
	TargetID         int64
	ClassificationID int64
	Name             string
}

type RequiredDocumentRule struct {
	TargetType       TargetType `json:"targetType"`
	ClassificationID int64      `json:"classificationId"`
	DocName          string     `json:"docName"`
	IsMandatory      bool       `json:"isMandatory"`
}

type ComplianceDocument struct {
	TargetType TargetType `json:"targetType"`
	TargetID   int64      `json:"targetId"`
	DocType    string     `json:"docType"`
	FileURL    *string    `json:"fileUrl,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// IsValidAt reports whether the document has no expiry or expires strictly
// after now.
func (d ComplianceDocument) IsValidAt(now time.Time) bool {
	return d.ExpiryDate == nil || d.ExpiryDate.After(now)
}
