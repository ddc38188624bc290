package models

import (
	"context"
	"errors"
)

// ErrStatusNotFound is returned when a (owner, programme) pair has no derived row,
// which is the case for every pair the patient is not eligible for.
var ErrStatusNotFound = errors.New("derived status not found")

// ProgrammeRepository reads the programme catalogue.
type ProgrammeRepository interface {
	GetProgrammes(ctx context.Context) ([]Programme, error)
}

// EventRepository reads the raw records the statuses are derived from.
type EventRepository interface {
	// GetPatients returns the patients covered by scope. A session scope
	// covers every patient in that session.
	GetPatients(ctx context.Context, scope Scope) ([]Patient, error)

	GetPatientSessions(ctx context.Context, scope Scope) ([]PatientSession, error)

	GetConsents(ctx context.Context, patientIDs []int64) ([]ConsentRecord, error)

	GetTriages(ctx context.Context, patientIDs []int64) ([]TriageRecord, error)

	GetVaccinationRecords(ctx context.Context, patientIDs []int64) ([]VaccinationRecord, error)

	GetAttendances(ctx context.Context, patientSessionIDs []int64) ([]AttendanceRecord, error)
}

// StatusRepository reads and writes the derived status tables.
type StatusRepository interface {
	// InsertMissing creates default rows for keys that have none yet and
	// returns how many rows were created. Existing rows are left untouched.
	InsertMissing(ctx context.Context, kind StatusKind, keys []StatusKey) (int64, error)

	// ListStatuses returns up to limit rows in scope with an id greater than afterID, ordered by id.
	ListStatuses(ctx context.Context, kind StatusKind, scope Scope, afterID int64, limit int) ([]DerivedStatus, error)

	// UpdateStatuses writes new status values to existing rows.
	UpdateStatuses(ctx context.Context, kind StatusKind, updates []StatusUpdate) (int64, error)

	// DeleteIneligible removes rows for programmeID whose patient was born
	// outside birthAcademicYears.
	DeleteIneligible(ctx context.Context, kind StatusKind, programmeID int64, birthAcademicYears []int) (int64, error)

	GetStatus(ctx context.Context, kind StatusKind, key StatusKey) (DerivedStatus, error)

	// GetOwnersWithStatus lists owner ids whose row for programmeID holds status.
	GetOwnersWithStatus(ctx context.Context, kind StatusKind, programmeID int64, status string) ([]int64, error)

	// GetSessionOverview joins all four statuses for every patient in a session.
	GetSessionOverview(ctx context.Context, sessionID, programmeID int64) ([]PatientSessionStatuses, error)
}

// PatientSessionStatuses is one patient's row in a session overview.
// Kinds without a stored row are left empty.
type PatientSessionStatuses struct {
	PatientSessionID int64
	PatientID        int64
	Session          SessionStatus
	Consent          ConsentStatus
	Triage           TriageStatus
	Vaccination      VaccinationStatus
}
