package outcome

import (
	"fmt"

	"github.com/schoolvax/vax-app/vax/models"
)

type TriageInput struct {
	Consent      ConsentOutcome
	Triages      []models.TriageRecord
	Vaccinations []models.VaccinationRecord
	// Current is the stored value, kept once the patient has been vaccinated.
	Current models.TriageStatus
}

// ResolveTriage derives the triage status of one patient for one programme.
func ResolveTriage(in TriageInput) models.TriageStatus {
	if in.Current.Valid() && Administered(in.Vaccinations) {
		return in.Current
	}

	if in.Consent.Status != models.ConsentGiven {
		return models.TriageNotRequired
	}

	if t := LatestTriage(in.Triages); t != nil {
		return triageStatusFor(t.Decision)
	}

	if in.Consent.TriageNeeded() {
		return models.TriageRequired
	}
	return models.TriageNotRequired
}

func triageStatusFor(d models.TriageDecision) models.TriageStatus {
	switch d {
	case models.DecisionReadyToVaccinate:
		return models.TriageReadyToVaccinate
	case models.DecisionDoNotVaccinate:
		return models.TriageDoNotVaccinate
	case models.DecisionDelayVaccination:
		return models.TriageDelayed
	case models.DecisionNeedsFollowUp:
		return models.TriageInProgress
	}
	panic(fmt.Sprintf("unknown triage decision %q", d))
}

// LatestTriage returns the most recent triage record that has not been invalidated.
func LatestTriage(records []models.TriageRecord) *models.TriageRecord {
	var latest *models.TriageRecord
	for i := range records {
		t := &records[i]
		if t.Invalidated() {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) ||
			(t.CreatedAt.Equal(latest.CreatedAt) && t.ID > latest.ID) {
			latest = t
		}
	}
	return latest
}
