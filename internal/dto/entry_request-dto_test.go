package dto

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

func TestEntryRequestItemDTO_ToSelection(t *testing.T) {
	sel, err := EntryRequestItemDTO{RequestType: "equipment_with_worker", EquipmentID: null.Int64From(1), WorkerID: null.Int64From(2)}.ToSelection()
	require.NoError(t, err)
	assert.Equal(t, entities.PairedSelection{EquipmentID: 1, WorkerID: 2}, sel)

	sel, err = EntryRequestItemDTO{RequestType: "worker", WorkerID: null.Int64From(2)}.ToSelection()
	require.NoError(t, err)
	assert.Equal(t, entities.WorkerSelection{WorkerID: 2}, sel)

	bad := []EntryRequestItemDTO{
		{RequestType: "equipment"},
		{RequestType: "equipment", EquipmentID: null.Int64From(1), WorkerID: null.Int64From(2)},
		{RequestType: "worker", EquipmentID: null.Int64From(1)},
		{RequestType: "equipment_with_worker", EquipmentID: null.Int64From(1)},
		{RequestType: "vehicle", EquipmentID: null.Int64From(1)},
	}
	for _, item := range bad {
		_, err := item.ToSelection()
		var inputErr *apperrors.InvalidInputError
		assert.ErrorAs(t, err, &inputErr, item.RequestType)
	}
}

func TestComplianceReport_Issues(t *testing.T) {
	r := ComplianceReport{Targets: []ComplianceTargetDTO{
		{ID: 1, Type: entities.TargetEquipment, Issues: []string{"insurance_certificate missing"}},
		{ID: 2, Type: entities.TargetWorker, Issues: []string{}},
	}}
	assert.Equal(t, []string{"equipment 1: insurance_certificate missing"}, r.Issues())

	target, ok := r.Target(entities.TargetWorker, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(2), target.ID)
	_, ok = r.Target(entities.TargetWorker, 1)
	assert.False(t, ok)
}
