package constants

const (
	SyncFailedErr         = "failed to synchronize statuses"
	CleanupFailedErr      = "failed to remove ineligible statuses"
	ProgrammeLoadErr      = "failed to load programmes"
	PatientSessionLoadErr = "failed to load patient sessions"
)
