package service

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/outcome"
)

// Ensure service satisfies the interface
var _ Service = &service{}

// Service answers read queries over the derived statuses. It never derives
// anything itself; values are as fresh as the last synchronization.
type Service interface {
	ConsentStatus(ctx context.Context, patientID, programmeID int64) (models.ConsentStatus, error)

	TriageStatus(ctx context.Context, patientID, programmeID int64) (models.TriageStatus, error)

	VaccinationStatus(ctx context.Context, patientID, programmeID int64) (models.VaccinationStatus, error)

	// SessionStatus looks up a session status by patient-session id.
	SessionStatus(ctx context.Context, patientSessionID, programmeID int64) (models.SessionStatus, error)

	// PatientSessionStatus looks up the session status of a patient within a session.
	PatientSessionStatus(ctx context.Context, patientID, sessionID, programmeID int64) (models.SessionStatus, error)

	PatientsWithConsentStatus(ctx context.Context, programmeID int64, status models.ConsentStatus) ([]int64, error)

	// PatientsNeedingTriage lists patients whose triage is required or in progress.
	PatientsNeedingTriage(ctx context.Context, programmeID int64) ([]int64, error)

	// PatientsNeedingConsentFollowUp lists patients with no response or conflicting responses.
	PatientsNeedingConsentFollowUp(ctx context.Context, programmeID int64) ([]int64, error)

	// RegisterQueue lists patients in a session who have not been checked in.
	RegisterQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error)

	// RecordQueue lists patients in a session ready to be vaccinated.
	RecordQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error)

	// OutcomeQueue lists patients in a session whose visit has an outcome recorded.
	OutcomeQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error)
}

func NewService(r models.StatusRepository) Service {
	return &service{repository: r}
}

type service struct {
	repository models.StatusRepository
}

func (s *service) status(ctx context.Context, kind models.StatusKind, ownerID, programmeID int64) (string, error) {
	row, err := s.repository.GetStatus(ctx, kind, models.StatusKey{OwnerID: ownerID, ProgrammeID: programmeID})
	if err != nil {
		return "", err
	}
	if !models.ValidStatus(kind, row.Status) {
		return "", errors.Errorf("stored %s status %q for owner %d programme %d is not valid", kind, row.Status, ownerID, programmeID)
	}
	return row.Status, nil
}

func (s *service) ConsentStatus(ctx context.Context, patientID, programmeID int64) (models.ConsentStatus, error) {
	status, err := s.status(ctx, models.ConsentKind, patientID, programmeID)
	return models.ConsentStatus(status), err
}

func (s *service) TriageStatus(ctx context.Context, patientID, programmeID int64) (models.TriageStatus, error) {
	status, err := s.status(ctx, models.TriageKind, patientID, programmeID)
	return models.TriageStatus(status), err
}

func (s *service) VaccinationStatus(ctx context.Context, patientID, programmeID int64) (models.VaccinationStatus, error) {
	status, err := s.status(ctx, models.VaccinationKind, patientID, programmeID)
	return models.VaccinationStatus(status), err
}

func (s *service) SessionStatus(ctx context.Context, patientSessionID, programmeID int64) (models.SessionStatus, error) {
	status, err := s.status(ctx, models.SessionKind, patientSessionID, programmeID)
	return models.SessionStatus(status), err
}

func (s *service) PatientSessionStatus(ctx context.Context, patientID, sessionID, programmeID int64) (models.SessionStatus, error) {
	overview, err := s.repository.GetSessionOverview(ctx, sessionID, programmeID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to load overview for session %d", sessionID)
	}
	for _, p := range overview {
		if p.PatientID != patientID {
			continue
		}
		if !p.Session.Valid() {
			return "", errors.Errorf("stored session status %q for patient %d session %d programme %d is not valid",
				p.Session, patientID, sessionID, programmeID)
		}
		return p.Session, nil
	}
	return "", models.ErrStatusNotFound
}

func (s *service) PatientsWithConsentStatus(ctx context.Context, programmeID int64, status models.ConsentStatus) ([]int64, error) {
	if !status.Valid() {
		return nil, errors.Errorf("invalid consent status %q", status)
	}
	ids, err := s.repository.GetOwnersWithStatus(ctx, models.ConsentKind, programmeID, string(status))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patients by consent status")
	}
	return ids, nil
}

func (s *service) PatientsNeedingTriage(ctx context.Context, programmeID int64) ([]int64, error) {
	return s.ownersWithAny(ctx, models.TriageKind, programmeID,
		string(models.TriageRequired), string(models.TriageInProgress))
}

func (s *service) PatientsNeedingConsentFollowUp(ctx context.Context, programmeID int64) ([]int64, error) {
	return s.ownersWithAny(ctx, models.ConsentKind, programmeID,
		string(models.ConsentNoResponse), string(models.ConsentConflicts))
}

// ownersWithAny merges the owners holding any of statuses, in ascending id order.
func (s *service) ownersWithAny(ctx context.Context, kind models.StatusKind, programmeID int64, statuses ...string) ([]int64, error) {
	var ids []int64
	for _, status := range statuses {
		owners, err := s.repository.GetOwnersWithStatus(ctx, kind, programmeID, status)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list owners with %s status %s", kind, status)
		}
		ids = append(ids, owners...)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *service) RegisterQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error) {
	return s.queue(ctx, sessionID, programmeID, func(p models.PatientSessionStatuses) bool {
		return outcome.NeedsRegistration(p.Session)
	})
}

func (s *service) RecordQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error) {
	return s.queue(ctx, sessionID, programmeID, func(p models.PatientSessionStatuses) bool {
		return outcome.ReadyForVaccinator(p.Session, p.Consent, p.Triage, p.Vaccination)
	})
}

func (s *service) OutcomeQueue(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error) {
	return s.queue(ctx, sessionID, programmeID, func(p models.PatientSessionStatuses) bool {
		return outcome.Done(p.Session)
	})
}

func (s *service) queue(ctx context.Context, sessionID, programmeID int64, keep func(models.PatientSessionStatuses) bool) ([]models.PatientSessionStatuses, error) {
	overview, err := s.repository.GetSessionOverview(ctx, sessionID, programmeID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load overview for session %d", sessionID)
	}

	var out []models.PatientSessionStatuses
	for _, p := range overview {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
