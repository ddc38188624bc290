package models

import (
	"sort"
	"time"
)

// ConsentResponse is a responder's answer.
type ConsentResponse string

const (
	ResponseGiven       ConsentResponse = "given"
	ResponseRefused     ConsentResponse = "refused"
	ResponseNotProvided ConsentResponse = "not_provided"
)

// ResponderKind says who gave a consent response.
type ResponderKind string

const (
	ResponderParent ResponderKind = "parent"
	ResponderSelf   ResponderKind = "self"
)

type ConsentRecord struct {
	ID            int64
	PatientID     int64
	ProgrammeID   int64
	Response      ConsentResponse
	ResponderKind ResponderKind
	ParentID      *int64
	// TriageNeeded is set when the health answers flag a follow-up.
	TriageNeeded  bool
	InvalidatedAt *time.Time
	CreatedAt     time.Time
}

func (c ConsentRecord) Invalidated() bool { return c.InvalidatedAt != nil }

// Responder identifies the person behind a consent record. All self
// responses from a patient share one identity. A parent response with no
// parent id is its own responder.
type Responder struct {
	Kind     ResponderKind
	ParentID int64
	RecordID int64
}

func (c ConsentRecord) Responder() Responder {
	r := Responder{Kind: c.ResponderKind}
	if c.ResponderKind == ResponderSelf {
		return r
	}
	if c.ParentID != nil {
		r.ParentID = *c.ParentID
	} else {
		r.RecordID = c.ID
	}
	return r
}

// TriageDecision is the decision recorded by a clinician.
type TriageDecision string

const (
	DecisionReadyToVaccinate TriageDecision = "ready_to_vaccinate"
	DecisionDoNotVaccinate   TriageDecision = "do_not_vaccinate"
	DecisionDelayVaccination TriageDecision = "delay_vaccination"
	DecisionNeedsFollowUp    TriageDecision = "needs_follow_up"
)

type TriageRecord struct {
	ID                int64
	PatientID         int64
	ProgrammeID       int64
	Decision          TriageDecision
	Notes             string
	PerformedByUserID *int64
	InvalidatedAt     *time.Time
	CreatedAt         time.Time
}

func (t TriageRecord) Invalidated() bool { return t.InvalidatedAt != nil }

type AttendanceRecord struct {
	ID               int64
	PatientSessionID int64
	// Attending is nil when attendance has not been recorded yet.
	Attending *bool
	CreatedAt time.Time
}

// VaccinationReason explains why a vaccination was not administered.
type VaccinationReason string

const (
	ReasonRefused           VaccinationReason = "refused"
	ReasonNotWell           VaccinationReason = "not_well"
	ReasonContraindications VaccinationReason = "contraindications"
	ReasonAlreadyHad        VaccinationReason = "already_had"
	ReasonAbsentFromSchool  VaccinationReason = "absent_from_school"
	ReasonAbsentFromSession VaccinationReason = "absent_from_session"
)

type VaccinationRecord struct {
	ID           int64
	PatientID    int64
	ProgrammeID  int64
	SessionID    *int64
	Administered bool
	Reason       VaccinationReason
	DoseSequence *int
	DiscardedAt  *time.Time
	PerformedAt  time.Time
}

func (v VaccinationRecord) Discarded() bool { return v.DiscardedAt != nil }

// ProgrammeEvents holds the raw records of one patient for one programme.
type ProgrammeEvents struct {
	Consents     []ConsentRecord
	Triages      []TriageRecord
	Vaccinations []VaccinationRecord
}

// PatientEvents maps programme id to the patient's records for it.
type PatientEvents map[int64]*ProgrammeEvents

// For returns the records for a programme. Missing programmes yield empty events.
func (p PatientEvents) For(programmeID int64) ProgrammeEvents {
	if e, ok := p[programmeID]; ok && e != nil {
		return *e
	}
	return ProgrammeEvents{}
}

func (p PatientEvents) entry(programmeID int64) *ProgrammeEvents {
	e, ok := p[programmeID]
	if !ok {
		e = &ProgrammeEvents{}
		p[programmeID] = e
	}
	return e
}

// EventSet maps patient id to that patient's events.
type EventSet map[int64]PatientEvents

// For returns the records of one patient for one programme.
func (s EventSet) For(patientID, programmeID int64) ProgrammeEvents {
	return s[patientID].For(programmeID)
}

func (s EventSet) patient(patientID int64) PatientEvents {
	p, ok := s[patientID]
	if !ok {
		p = PatientEvents{}
		s[patientID] = p
	}
	return p
}

// GroupEvents buckets flat record lists by patient and programme. Records
// keep their input order within a bucket.
func GroupEvents(consents []ConsentRecord, triages []TriageRecord, vaccinations []VaccinationRecord) EventSet {
	set := EventSet{}
	for _, c := range consents {
		e := set.patient(c.PatientID).entry(c.ProgrammeID)
		e.Consents = append(e.Consents, c)
	}
	for _, t := range triages {
		e := set.patient(t.PatientID).entry(t.ProgrammeID)
		e.Triages = append(e.Triages, t)
	}
	for _, v := range vaccinations {
		e := set.patient(v.PatientID).entry(v.ProgrammeID)
		e.Vaccinations = append(e.Vaccinations, v)
	}
	return set
}

// GroupAttendances buckets attendance records by patient session, latest first.
func GroupAttendances(records []AttendanceRecord) map[int64][]AttendanceRecord {
	out := make(map[int64][]AttendanceRecord)
	for _, r := range records {
		out[r.PatientSessionID] = append(out[r.PatientSessionID], r)
	}
	for _, rs := range out {
		sort.SliceStable(rs, func(i, j int) bool {
			if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
				return rs[i].ID > rs[j].ID
			}
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		})
	}
	return out
}
