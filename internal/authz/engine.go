package authz

import "site-entry/internal/entities"

func isParty(actor entities.Actor, req *entities.EntryRequest) bool {
	switch actor.Role {
	case entities.RoleOwner:
		return req.OwnerCompanyID == actor.CompanyID
	case entities.RoleBP:
		return req.TargetBpCompanyID == actor.CompanyID
	case entities.RoleEP:
		return req.TargetEpCompanyID != nil && *req.TargetEpCompanyID == actor.CompanyID
	}
	return false
}

// ScopeEntryRequestFilter narrows a list filter to what the actor may see.
func ScopeEntryRequestFilter(actor entities.Actor, f entities.EntryRequestFilter) entities.EntryRequestFilter {
	companyID := actor.CompanyID
	switch actor.Role {
	case entities.RoleOwner:
		f.OwnerCompanyID = &companyID
	case entities.RoleBP:
		f.TargetBpCompanyID = &companyID
	case entities.RoleEP:
		f.TargetEpCompanyID = &companyID
	}
	return f
}

func ScopeDeploymentFilter(actor entities.Actor, f entities.DeploymentFilter) entities.DeploymentFilter {
	companyID := actor.CompanyID
	switch actor.Role {
	case entities.RoleOwner:
		f.OwnerID = &companyID
	case entities.RoleBP:
		f.BpCompanyID = &companyID
	case entities.RoleEP:
		f.EpCompanyID = &companyID
	}
	return f
}
