package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

var allRoles = []entities.Role{entities.RoleOwner, entities.RoleBP, entities.RoleEP, entities.RoleAdmin}

var allOps = []Operation{OpStartBpReview, OpBpApprove, OpBpReject, OpStartEpReview, OpEpApprove, OpEpReject, OpCancel}

func TestMachine_EveryEdgeMovesForward(t *testing.T) {
	m := NewMachine()
	edges := m.Edges()
	require.NotEmpty(t, edges)

	for _, e := range edges {
		assert.Truef(t, IsForward(e.From, e.To), "%s --%s/%s--> %s goes backward", e.From, e.Op, e.Role, e.To)
		assert.NotEqual(t, entities.StatusOwnerRequested, e.To)
		assert.False(t, e.From.IsTerminal(), "terminal status %s has an outgoing edge", e.From)
	}
}

func TestMachine_TerminalStatesAcceptNothing(t *testing.T) {
	m := NewMachine()
	for _, st := range []entities.EntryRequestStatus{entities.StatusEpApproved, entities.StatusRejected, entities.StatusCancelled} {
		for _, op := range allOps {
			for _, role := range allRoles {
				_, err := m.Next(st, op, role)
				require.Error(t, err)
			}
		}
	}
}

func TestMachine_BpApprove(t *testing.T) {
	m := NewMachine()

	to, err := m.Next(entities.StatusOwnerRequested, OpBpApprove, entities.RoleBP)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusBpApproved, to)

	to, err = m.Next(entities.StatusBpReviewing, OpBpApprove, entities.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusBpApproved, to)

	_, err = m.Next(entities.StatusBpApproved, OpBpApprove, entities.RoleBP)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = m.Next(entities.StatusOwnerRequested, OpBpApprove, entities.RoleEP)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestMachine_EpApprove(t *testing.T) {
	m := NewMachine()

	to, err := m.Next(entities.StatusBpApproved, OpEpApprove, entities.RoleEP)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusEpApproved, to)

	_, err = m.Next(entities.StatusOwnerRequested, OpEpApprove, entities.RoleEP)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = m.Next(entities.StatusEpApproved, OpEpApprove, entities.RoleEP)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = m.Next(entities.StatusBpApproved, OpEpApprove, entities.RoleOwner)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestMachine_CancelWindow(t *testing.T) {
	m := NewMachine()

	cases := []struct {
		name string
		from entities.EntryRequestStatus
		role entities.Role
		err  error
	}{
		{"owner at owner_requested", entities.StatusOwnerRequested, entities.RoleOwner, nil},
		{"owner at bp_reviewing", entities.StatusBpReviewing, entities.RoleOwner, nil},
		{"owner at bp_approved", entities.StatusBpApproved, entities.RoleOwner, apperrors.ErrInvalidState},
		{"bp at bp_approved", entities.StatusBpApproved, entities.RoleBP, nil},
		{"bp at ep_reviewing", entities.StatusEpReviewing, entities.RoleBP, apperrors.ErrInvalidState},
		{"ep never", entities.StatusOwnerRequested, entities.RoleEP, apperrors.ErrForbidden},
		{"admin never", entities.StatusOwnerRequested, entities.RoleAdmin, apperrors.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			to, err := m.Next(tc.from, OpCancel, tc.role)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.StatusCancelled, to)
		})
	}
}

func TestMachine_RejectIsStageMatched(t *testing.T) {
	m := NewMachine()

	_, err := m.Next(entities.StatusOwnerRequested, OpBpReject, entities.RoleBP)
	assert.NoError(t, err)
	_, err = m.Next(entities.StatusBpApproved, OpBpReject, entities.RoleBP)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = m.Next(entities.StatusEpReviewing, OpEpReject, entities.RoleEP)
	assert.NoError(t, err)
	_, err = m.Next(entities.StatusOwnerRequested, OpEpReject, entities.RoleEP)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}
