package worker_types

import (
	"github.com/schoolvax/vax-app/vax/models"
)

const (
	SynchronizeKind       = "SynchronizeStatuses"
	CatchUpKind           = "CatchUpStatuses"
	CleanupIneligibleKind = "CleanupIneligibleStatuses"
)

// SynchronizeArgs scopes a synchronize run. Leaving both ids unset covers every patient.
type SynchronizeArgs struct {
	PatientID *int64 `json:"patient_id,omitempty"`
	SessionID *int64 `json:"session_id,omitempty"`
}

// Needed by River (queue library)
func (args SynchronizeArgs) Kind() string {
	return SynchronizeKind
}

func (args SynchronizeArgs) Scope() models.Scope {
	return models.Scope{PatientID: args.PatientID, SessionID: args.SessionID}
}

func NewSynchronizeArgs(scope models.Scope) SynchronizeArgs {
	return SynchronizeArgs{PatientID: scope.PatientID, SessionID: scope.SessionID}
}

// CatchUpArgs triggers the scheduled unscoped synchronize.
type CatchUpArgs struct{}

func (args CatchUpArgs) Kind() string {
	return CatchUpKind
}

type CleanupIneligibleArgs struct{}

func (args CleanupIneligibleArgs) Kind() string {
	return CleanupIneligibleKind
}
