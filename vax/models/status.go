package models

import "fmt"

// StatusKind names one of the four derived status tables.
type StatusKind string

const (
	ConsentKind     StatusKind = "consent"
	SessionKind     StatusKind = "session"
	TriageKind      StatusKind = "triage"
	VaccinationKind StatusKind = "vaccination"
)

// StatusKinds lists the kinds in the order they must be synchronized.
// Triage reads the consent outcome and vaccination reads both.
var StatusKinds = []StatusKind{ConsentKind, SessionKind, TriageKind, VaccinationKind}

// ConsentStatus is the aggregate answer to "may we vaccinate?".
type ConsentStatus string

const (
	ConsentNoResponse ConsentStatus = "no_response"
	ConsentGiven      ConsentStatus = "given"
	ConsentRefused    ConsentStatus = "refused"
	ConsentConflicts  ConsentStatus = "conflicts"
)

func (s ConsentStatus) Valid() bool {
	switch s {
	case ConsentNoResponse, ConsentGiven, ConsentRefused, ConsentConflicts:
		return true
	}
	return false
}

// TriageStatus is the clinical-review state of a patient for a programme.
type TriageStatus string

const (
	TriageNotRequired      TriageStatus = "not_required"
	TriageRequired         TriageStatus = "required"
	TriageInProgress       TriageStatus = "in_progress"
	TriageReadyToVaccinate TriageStatus = "ready_to_vaccinate"
	TriageDoNotVaccinate   TriageStatus = "do_not_vaccinate"
	TriageDelayed          TriageStatus = "delayed"
)

func (s TriageStatus) Valid() bool {
	switch s {
	case TriageNotRequired, TriageRequired, TriageInProgress,
		TriageReadyToVaccinate, TriageDoNotVaccinate, TriageDelayed:
		return true
	}
	return false
}

// SessionStatus is the outcome of one patient's visit to one session for a programme.
type SessionStatus string

const (
	SessionNotRegistered        SessionStatus = "not_registered"
	SessionPresent              SessionStatus = "present"
	SessionAbsent               SessionStatus = "absent"
	SessionVaccinated           SessionStatus = "vaccinated"
	SessionAlreadyHad           SessionStatus = "already_had"
	SessionHadContraindications SessionStatus = "had_contraindications"
	SessionRefused              SessionStatus = "refused"
	SessionUnwell               SessionStatus = "unwell"
	SessionAbsentFromSchool     SessionStatus = "absent_from_school"
	SessionAbsentFromSession    SessionStatus = "absent_from_session"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionNotRegistered, SessionPresent, SessionAbsent, SessionVaccinated,
		SessionAlreadyHad, SessionHadContraindications, SessionRefused, SessionUnwell,
		SessionAbsentFromSchool, SessionAbsentFromSession:
		return true
	}
	return false
}

// VaccinationStatus is the overall vaccination state of a patient for a programme.
type VaccinationStatus string

const (
	VaccinationNoneYet           VaccinationStatus = "none_yet"
	VaccinationVaccinated        VaccinationStatus = "vaccinated"
	VaccinationCouldNotVaccinate VaccinationStatus = "could_not_vaccinate"
)

func (s VaccinationStatus) Valid() bool {
	switch s {
	case VaccinationNoneYet, VaccinationVaccinated, VaccinationCouldNotVaccinate:
		return true
	}
	return false
}

// DefaultStatus is the value a freshly inserted row of the given kind starts with.
func DefaultStatus(kind StatusKind) string {
	switch kind {
	case ConsentKind:
		return string(ConsentNoResponse)
	case SessionKind:
		return string(SessionNotRegistered)
	case TriageKind:
		return string(TriageNotRequired)
	case VaccinationKind:
		return string(VaccinationNoneYet)
	}
	panic(fmt.Sprintf("unknown status kind %q", kind))
}

// ValidStatus reports whether value belongs to the closed set of the given kind.
func ValidStatus(kind StatusKind, value string) bool {
	switch kind {
	case ConsentKind:
		return ConsentStatus(value).Valid()
	case SessionKind:
		return SessionStatus(value).Valid()
	case TriageKind:
		return TriageStatus(value).Valid()
	case VaccinationKind:
		return VaccinationStatus(value).Valid()
	}
	return false
}

// StatusKey identifies one derived row. OwnerID is a patient id for the
// consent, triage and vaccination kinds and a patient session id for the session kind.
type StatusKey struct {
	OwnerID     int64
	ProgrammeID int64
}

// DerivedStatus is a stored row of one of the derived status tables.
type DerivedStatus struct {
	ID          int64
	OwnerID     int64
	ProgrammeID int64
	Status      string
}

func (d DerivedStatus) Key() StatusKey {
	return StatusKey{OwnerID: d.OwnerID, ProgrammeID: d.ProgrammeID}
}

// StatusUpdate changes the status of an existing row.
type StatusUpdate struct {
	ID     int64
	Status string
}

// Scope restricts a synchronization run. A zero Scope covers every patient.
type Scope struct {
	PatientID *int64 `json:"patient_id,omitempty"`
	SessionID *int64 `json:"session_id,omitempty"`
}

func (s Scope) IsZero() bool {
	return s.PatientID == nil && s.SessionID == nil
}

func (s Scope) String() string {
	switch {
	case s.PatientID != nil && s.SessionID != nil:
		return fmt.Sprintf("patient %d in session %d", *s.PatientID, *s.SessionID)
	case s.PatientID != nil:
		return fmt.Sprintf("patient %d", *s.PatientID)
	case s.SessionID != nil:
		return fmt.Sprintf("session %d", *s.SessionID)
	}
	return "all patients"
}
