package events

import "site-entry/internal/entities"

const (
	EntryRequestCreated       = "entry_request.created"
	EntryRequestBpReviewing   = "entry_request.bp_reviewing"
	EntryRequestBpApproved    = "entry_request.bp_approved"
	EntryRequestEpReviewing   = "entry_request.ep_reviewing"
	EntryRequestEpApproved    = "entry_request.ep_approved"
	EntryRequestRejected      = "entry_request.rejected"
	EntryRequestCancelled     = "entry_request.cancelled"
	EntryRequestWorkPlanAdded = "entry_request.work_plan_uploaded"
)

// EntryRequestEvent is published after an entry request change commits.
type EntryRequestEvent struct {
	Type       string                       `json:"type"`
	Request    entities.EntryRequest        `json:"request"`
	FromStatus *entities.EntryRequestStatus `json:"fromStatus,omitempty"`
	Actor      entities.Actor               `json:"actor"`
	Comment    *string                      `json:"comment,omitempty"`
}

func (e EntryRequestEvent) Name() string { return e.Type }

// Recipients are the companies party to the request.
func (e EntryRequestEvent) Recipients() []int64 {
	ids := []int64{e.Request.OwnerCompanyID, e.Request.TargetBpCompanyID}
	if e.Request.TargetEpCompanyID != nil {
		ids = append(ids, *e.Request.TargetEpCompanyID)
	}
	return ids
}
