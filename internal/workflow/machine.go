package workflow

import (
	"fmt"
	"sort"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

type Operation string

const (
	OpStartBpReview Operation = "start_bp_review"
	OpBpApprove     Operation = "bp_approve"
	OpBpReject      Operation = "bp_reject"
	OpStartEpReview Operation = "start_ep_review"
	OpEpApprove     Operation = "ep_approve"
	OpEpReject      Operation = "ep_reject"
	OpCancel        Operation = "cancel"
)

// OpCreate is recorded in history for the initial insert; it is not an edge.
const OpCreate Operation = "create"

type key struct {
	from entities.EntryRequestStatus
	op   Operation
	role entities.Role
}

type Edge struct {
	From entities.EntryRequestStatus
	Op   Operation
	Role entities.Role
	To   entities.EntryRequestStatus
}

// Machine is the approval DAG. It is immutable after construction and safe
// for concurrent use.
type Machine struct {
	table map[key]entities.EntryRequestStatus
	// allowed records which roles may ever perform an operation.
	allowed map[Operation]map[entities.Role]bool
}

func NewMachine() *Machine {
	m := &Machine{
		table:   make(map[key]entities.EntryRequestStatus),
		allowed: make(map[Operation]map[entities.Role]bool),
	}

	owner, bp, ep, admin := entities.RoleOwner, entities.RoleBP, entities.RoleEP, entities.RoleAdmin

	m.add(OpStartBpReview, []entities.Role{bp, admin}, entities.StatusBpReviewing,
		entities.StatusOwnerRequested)
	m.add(OpBpApprove, []entities.Role{bp, admin}, entities.StatusBpApproved,
		entities.StatusOwnerRequested, entities.StatusBpReviewing)
	m.add(OpBpReject, []entities.Role{bp, admin}, entities.StatusRejected,
		entities.StatusOwnerRequested, entities.StatusBpReviewing)

	m.add(OpStartEpReview, []entities.Role{ep, admin}, entities.StatusEpReviewing,
		entities.StatusBpApproved)
	m.add(OpEpApprove, []entities.Role{ep, admin}, entities.StatusEpApproved,
		entities.StatusBpApproved, entities.StatusEpReviewing)
	m.add(OpEpReject, []entities.Role{ep, admin}, entities.StatusRejected,
		entities.StatusBpApproved, entities.StatusEpReviewing)

	m.add(OpCancel, []entities.Role{owner}, entities.StatusCancelled,
		entities.StatusOwnerRequested, entities.StatusBpReviewing)
	m.add(OpCancel, []entities.Role{bp}, entities.StatusCancelled,
		entities.StatusOwnerRequested, entities.StatusBpReviewing, entities.StatusBpApproved)

	return m
}

func (m *Machine) add(op Operation, roles []entities.Role, to entities.EntryRequestStatus, from ...entities.EntryRequestStatus) {
	if m.allowed[op] == nil {
		m.allowed[op] = make(map[entities.Role]bool)
	}
	for _, role := range roles {
		m.allowed[op][role] = true
		for _, f := range from {
			m.table[key{from: f, op: op, role: role}] = to
		}
	}
}

// Next resolves (from, op, role) to the next status. ErrForbidden means the
// role can never perform op; ErrInvalidState means it cannot from this status.
func (m *Machine) Next(from entities.EntryRequestStatus, op Operation, role entities.Role) (entities.EntryRequestStatus, error) {
	if !m.allowed[op][role] {
		return "", fmt.Errorf("%w: role %q cannot %s", apperrors.ErrForbidden, role, op)
	}
	to, ok := m.table[key{from: from, op: op, role: role}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s from %q", apperrors.ErrInvalidState, op, from)
	}
	return to, nil
}

// CanPerform reports whether the role is ever allowed to perform op.
func (m *Machine) CanPerform(op Operation, role entities.Role) bool {
	return m.allowed[op][role]
}

// Edges lists every transition in a stable order.
func (m *Machine) Edges() []Edge {
	edges := make([]Edge, 0, len(m.table))
	for k, to := range m.table {
		edges = append(edges, Edge{From: k.from, Op: k.op, Role: k.role, To: to})
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		return a.Role < b.Role
	})
	return edges
}
