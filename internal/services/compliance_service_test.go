package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

func TestComplianceService_MissingDocument(t *testing.T) {
	f := newFixture(t)
	f.documents.docs = nil

	report, err := f.compliance.Validate(context.Background(), []int64{equipmentE1}, nil)
	require.NoError(t, err)

	assert.False(t, report.IsValid)
	require.Len(t, report.Targets, 1)
	target := report.Targets[0]
	assert.Equal(t, equipmentE1, target.ID)
	assert.Equal(t, entities.TargetEquipment, target.Type)
	assert.Equal(t, []string{"insurance_certificate missing"}, target.Issues)
	require.Len(t, target.Documents, 1)
	assert.False(t, target.Documents[0].Uploaded)
	assert.Equal(t, []string{"equipment 501: insurance_certificate missing"}, report.Issues())
}

func TestComplianceService_ExpiryRules(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	exactlyNow := testNow
	nextWeek := testNow.AddDate(0, 0, 7)

	tests := []struct {
		name    string
		valid   bool
		issue   string
		uploads func(f *fixture)
	}{
		{
			name: "expired",
			uploads: func(f *fixture) {
				f.documents.upload(entities.TargetWorker, workerW1, "safety_training", &yesterday)
			},
			issue: "safety_training expired",
		},
		{
			name: "expiring exactly now is expired",
			uploads: func(f *fixture) {
				f.documents.upload(entities.TargetWorker, workerW1, "safety_training", &exactlyNow)
			},
			issue: "safety_training expired",
		},
		{
			name: "no expiry never expires",
			uploads: func(f *fixture) {
				f.documents.upload(entities.TargetWorker, workerW1, "safety_training", nil)
			},
			valid: true,
		},
		{
			name: "any valid copy satisfies the rule",
			uploads: func(f *fixture) {
				f.documents.upload(entities.TargetWorker, workerW1, "safety_training", &yesterday)
				f.documents.upload(entities.TargetWorker, workerW1, "safety_training", &nextWeek)
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.documents.docs = nil
			tt.uploads(f)

			report, err := f.compliance.Validate(context.Background(), nil, []int64{workerW1})
			require.NoError(t, err)
			assert.Equal(t, tt.valid, report.IsValid)

			target, ok := report.Target(entities.TargetWorker, workerW1)
			require.True(t, ok)
			if tt.valid {
				assert.Empty(t, target.Issues)
			} else {
				assert.Equal(t, []string{tt.issue}, target.Issues)
			}
		})
	}
}

func TestComplianceService_ValidWhenNothingRequired(t *testing.T) {
	f := newFixture(t)
	f.documents.rules = nil
	f.documents.docs = nil

	report, err := f.compliance.Validate(context.Background(), []int64{equipmentE1}, []int64{workerW1})
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Len(t, report.Targets, 2)
	assert.Empty(t, report.Issues())
}

func TestComplianceService_UnknownResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.compliance.Validate(context.Background(), []int64{equipmentE1, 999}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestComplianceService_DedupesAndKeepsOrder(t *testing.T) {
	f := newFixture(t)

	report, err := f.compliance.Validate(context.Background(),
		[]int64{equipmentE2, equipmentE1, equipmentE2},
		[]int64{workerW1, workerW1},
	)
	require.NoError(t, err)
	require.Len(t, report.Targets, 3)
	assert.Equal(t, equipmentE2, report.Targets[0].ID)
	assert.Equal(t, equipmentE1, report.Targets[1].ID)
	assert.Equal(t, workerW1, report.Targets[2].ID)
	assert.True(t, report.IsValid)
}

func TestComplianceService_IsRepeatable(t *testing.T) {
	f := newFixture(t)
	f.documents.docs = nil

	first, err := f.compliance.Validate(context.Background(), []int64{equipmentE1}, []int64{workerW1})
	require.NoError(t, err)
	second, err := f.compliance.Validate(context.Background(), []int64{equipmentE1}, []int64{workerW1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, len(first.Issues()) == 0, first.IsValid)
}
