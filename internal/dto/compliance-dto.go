package dto

import (
	"fmt"
	"time"

	"site-entry/internal/entities"
)

type ValidateComplianceDTO struct {
	EquipmentIDs []int64 `json:"equipmentIds" validate:"omitempty,positive_ids"`
	WorkerIDs    []int64 `json:"workerIds" validate:"omitempty,positive_ids"`
}

type ComplianceDocumentDTO struct {
	Name       string     `json:"name"`
	Uploaded   bool       `json:"uploaded"`
	ExpiryDate *time.Time `json:"expiryDate"`
	IsValid    bool       `json:"isValid"`
}

type ComplianceTargetDTO struct {
	ID        int64                   `json:"id"`
	Type      entities.TargetType     `json:"type"`
	Name      string                  `json:"name"`
	Documents []ComplianceDocumentDTO `json:"documents"`
	IsValid   bool                    `json:"isValid"`
	Issues    []string                `json:"issues"`
}

// ComplianceReport is valid iff no target has issues.
type ComplianceReport struct {
	IsValid bool                  `json:"isValid"`
	Targets []ComplianceTargetDTO `json:"targets"`
}

// Issues flattens per-target issues into "<type> <id>: <issue>" lines.
func (r ComplianceReport) Issues() []string {
	issues := make([]string, 0)
	for _, t := range r.Targets {
		for _, issue := range t.Issues {
			issues = append(issues, fmt.Sprintf("%s %d: %s", t.Type, t.ID, issue))
		}
	}
	return issues
}

// Target finds the entry for one resource.
func (r ComplianceReport) Target(targetType entities.TargetType, id int64) (ComplianceTargetDTO, bool) {
	for _, t := range r.Targets {
		if t.Type == targetType && t.ID == id {
			return t, true
		}
	}
	return ComplianceTargetDTO{}, false
}
