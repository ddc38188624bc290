package outcome

import "github.com/schoolvax/vax-app/vax/models"

// NeedsRegistration reports whether the patient still has to be checked in.
func NeedsRegistration(s models.SessionStatus) bool {
	return s == models.SessionNotRegistered
}

// ReadyForVaccinator reports whether the patient belongs in the record queue:
// present, consented, cleared by triage and not yet vaccinated.
func ReadyForVaccinator(s models.SessionStatus, c models.ConsentStatus, t models.TriageStatus, v models.VaccinationStatus) bool {
	if s != models.SessionPresent || c != models.ConsentGiven || v != models.VaccinationNoneYet {
		return false
	}
	return t == models.TriageNotRequired || t == models.TriageReadyToVaccinate
}

// Done reports whether an outcome has been recorded for the session.
func Done(s models.SessionStatus) bool {
	switch s {
	case models.SessionNotRegistered, models.SessionPresent, models.SessionAbsent, "":
		return false
	}
	return true
}

func NeedsTriage(t models.TriageStatus) bool {
	return t == models.TriageRequired || t == models.TriageInProgress
}

func NeedsConsentFollowUp(c models.ConsentStatus) bool {
	return c == models.ConsentNoResponse || c == models.ConsentConflicts
}
