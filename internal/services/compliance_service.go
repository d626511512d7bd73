package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"site-entry/internal/dto"
	"site-entry/internal/entities"
	"site-entry/internal/repositories"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/metrics"
)

type ComplianceServiceInterface interface {
	// Validate builds a compliance report for the given resources. It only
	// reads; repeated calls over unchanged data return the same report.
	Validate(ctx context.Context, equipmentIDs, workerIDs []int64) (*dto.ComplianceReport, error)
}

type ComplianceService struct {
	resourceRepo repositories.ResourceRepositoryInterface
	documentRepo repositories.DocumentRepositoryInterface
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewComplianceService(
	resourceRepo repositories.ResourceRepositoryInterface,
	documentRepo repositories.DocumentRepositoryInterface,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ComplianceService {
	return &ComplianceService{
		resourceRepo: resourceRepo,
		documentRepo: documentRepo,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ComplianceService) Validate(ctx context.Context, equipmentIDs, workerIDs []int64) (*dto.ComplianceReport, error) {
	started := time.Now()
	now := s.now()

	report := &dto.ComplianceReport{IsValid: true, Targets: make([]dto.ComplianceTargetDTO, 0)}

	for _, group := range []struct {
		targetType entities.TargetType
		ids        []int64
	}{
		{entities.TargetEquipment, uniqueIDs(equipmentIDs)},
		{entities.TargetWorker, uniqueIDs(workerIDs)},
	} {
		targets, err := s.validateTargets(ctx, group.targetType, group.ids, now)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if !t.IsValid {
				report.IsValid = false
			}
			report.Targets = append(report.Targets, t)
		}
	}

	s.metrics.RecordValidation(report.IsValid, time.Since(started))
	s.logger.Debug("compliance validated",
		zap.Int64s("equipmentIDs", equipmentIDs),
		zap.Int64s("workerIDs", workerIDs),
		zap.Bool("isValid", report.IsValid),
	)
	return report, nil
}

func (s *ComplianceService) validateTargets(ctx context.Context, targetType entities.TargetType, ids []int64, now time.Time) ([]dto.ComplianceTargetDTO, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	classifications, err := s.resourceRepo.GetClassifications(ctx, targetType, ids)
	if err != nil {
		return nil, err
	}
	classIDs := make([]int64, 0, len(classifications))
	for _, id := range ids {
		c, ok := classifications[id]
		if !ok {
			return nil, fmt.Errorf("%s %d has no classification: %w", targetType, id, apperrors.ErrNotFound)
		}
		classIDs = append(classIDs, c.ClassificationID)
	}

	rules, err := s.documentRepo.ListMandatoryDocs(ctx, targetType, uniqueIDs(classIDs))
	if err != nil {
		return nil, err
	}
	required := make(map[int64][]string)
	for _, r := range rules {
		if r.IsMandatory {
			required[r.ClassificationID] = append(required[r.ClassificationID], r.DocName)
		}
	}
	for classID, names := range required {
		required[classID] = uniqueSortedStrings(names)
	}

	uploaded, err := s.documentRepo.ListUploadedDocs(ctx, targetType, ids)
	if err != nil {
		return nil, err
	}
	byTarget := make(map[int64]map[string][]entities.ComplianceDocument)
	for _, d := range uploaded {
		if byTarget[d.TargetID] == nil {
			byTarget[d.TargetID] = make(map[string][]entities.ComplianceDocument)
		}
		byTarget[d.TargetID][d.DocType] = append(byTarget[d.TargetID][d.DocType], d)
	}

	result := make([]dto.ComplianceTargetDTO, 0, len(ids))
	for _, id := range ids {
		c := classifications[id]
		target := dto.ComplianceTargetDTO{
			ID:        id,
			Type:      targetType,
			Name:      c.Name,
			Documents: make([]dto.ComplianceDocumentDTO, 0),
			Issues:    make([]string, 0),
		}
		for _, name := range required[c.ClassificationID] {
			doc := evaluateDocument(name, byTarget[id][name], now)
			target.Documents = append(target.Documents, doc)
			switch {
			case !doc.Uploaded:
				target.Issues = append(target.Issues, name+" missing")
			case !doc.IsValid:
				target.Issues = append(target.Issues, name+" expired")
			}
		}
		target.IsValid = len(target.Issues) == 0
		result = append(result, target)
	}
	return result, nil
}

// evaluateDocument picks the document that best satisfies the rule: any
// valid copy wins, preferring one without expiry, then the latest expiry.
func evaluateDocument(name string, docs []entities.ComplianceDocument, now time.Time) dto.ComplianceDocumentDTO {
	out := dto.ComplianceDocumentDTO{Name: name, Uploaded: len(docs) > 0}
	var best *entities.ComplianceDocument
	for i := range docs {
		d := &docs[i]
		if best == nil || laterExpiry(d.ExpiryDate, best.ExpiryDate) {
			best = d
		}
	}
	if best != nil {
		out.ExpiryDate = best.ExpiryDate
		out.IsValid = best.IsValidAt(now)
	}
	return out
}

// laterExpiry treats a nil expiry as never expiring.
func laterExpiry(a, b *time.Time) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return true
	}
	return a.After(*b)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func uniqueSortedStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
