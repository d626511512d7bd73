package authz

import (
	"site-entry/internal/entities"
)

// Gatekeeper decides whether an actor's company is a party to a record.
// Role legality of an operation is the workflow machine's job, not this one.
type Gatekeeper struct{}

func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{}
}

// CanViewEntryRequest: admins see everything, others only requests their
// company takes part in.
func (g *Gatekeeper) CanViewEntryRequest(actor entities.Actor, req *entities.EntryRequest) bool {
	if actor.Role == entities.RoleAdmin {
		return true
	}
	return isParty(actor, req)
}

// CanActOnEntryRequest checks that the actor's company holds the seat its role
// implies on this request. For an EP that seat exists only once the BP has
// nominated it.
func (g *Gatekeeper) CanActOnEntryRequest(actor entities.Actor, req *entities.EntryRequest) bool {
	return actor.Role == entities.RoleAdmin || isParty(actor, req)
}

func (g *Gatekeeper) CanViewDeployment(actor entities.Actor, d *entities.Deployment) bool {
	switch actor.Role {
	case entities.RoleAdmin:
		return true
	case entities.RoleOwner:
		return d.OwnerID == actor.CompanyID
	case entities.RoleBP:
		return d.BpCompanyID == actor.CompanyID
	case entities.RoleEP:
		return d.EpCompanyID != nil && *d.EpCompanyID == actor.CompanyID
	}
	return false
}

// CanManageDeployment: the BP running the site or an admin may change a
// deployment. Owners may only read.
func (g *Gatekeeper) CanManageDeployment(actor entities.Actor, d *entities.Deployment) bool {
	switch actor.Role {
	case entities.RoleAdmin:
		return true
	case entities.RoleBP:
		return d.BpCompanyID == actor.CompanyID
	}
	return false
}
