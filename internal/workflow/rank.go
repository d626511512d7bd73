package workflow

import "site-entry/internal/entities"

// rank orders statuses along the approval DAG. Terminal failure states rank
// above every live status so no edge can lead out of them.
var rank = map[entities.EntryRequestStatus]int{
	entities.StatusOwnerRequested: 0,
	entities.StatusBpReviewing:    1,
	entities.StatusBpApproved:     2,
	entities.StatusEpReviewing:    3,
	entities.StatusEpApproved:     4,
	entities.StatusRejected:       5,
	entities.StatusCancelled:      5,
}

// IsForward reports whether moving from -> to advances along the DAG.
func IsForward(from, to entities.EntryRequestStatus) bool {
	rf, okF := rank[from]
	rt, okT := rank[to]
	return okF && okT && rt > rf
}
