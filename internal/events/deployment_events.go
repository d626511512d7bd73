package events

import "site-entry/internal/entities"

const (
	DeploymentCreated       = "deployment.created"
	DeploymentExtended      = "deployment.extended"
	DeploymentWorkerChanged = "deployment.worker_changed"
	DeploymentCompleted     = "deployment.completed"
)

type DeploymentEvent struct {
	Type       string                   `json:"type"`
	Deployment entities.Deployment      `json:"deployment"`
	Note       *entities.DeploymentNote `json:"note,omitempty"`
	Actor      entities.Actor           `json:"actor"`
}

func (e DeploymentEvent) Name() string { return e.Type }

func (e DeploymentEvent) Recipients() []int64 {
	ids := []int64{e.Deployment.OwnerID, e.Deployment.BpCompanyID}
	if e.Deployment.EpCompanyID != nil {
		ids = append(ids, *e.Deployment.EpCompanyID)
	}
	return ids
}

// Addressed is implemented by events that know which companies to notify.
type Addressed interface {
	Recipients() []int64
}
