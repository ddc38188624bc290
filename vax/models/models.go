package models

import (
	"time"
)

// ProgrammeType identifies a vaccination programme.
type ProgrammeType string

const (
	ProgrammeFlu     ProgrammeType = "flu"
	ProgrammeHPV     ProgrammeType = "hpv"
	ProgrammeMenACWY ProgrammeType = "menacwy"
	ProgrammeTdIPV   ProgrammeType = "td_ipv"
)

type Programme struct {
	ID   int64
	Type ProgrammeType
	// YearGroups are the school years the programme is offered to.
	YearGroups []int
}

type Patient struct {
	ID                int64
	DateOfBirth       time.Time
	BirthAcademicYear int
}

// PatientSession links a patient to a session they are expected to attend.
type PatientSession struct {
	ID        int64
	PatientID int64
	SessionID int64
	// BirthAcademicYear of the patient, loaded alongside for eligibility checks.
	BirthAcademicYear int
}

type Session struct {
	ID           int64
	AcademicYear int
}
