package outcome

import (
	"github.com/schoolvax/vax-app/vax/models"
)

// ResolveVaccination derives the overall vaccination status of one patient for one programme.
func ResolveVaccination(consent models.ConsentStatus, triage models.TriageStatus, records []models.VaccinationRecord) models.VaccinationStatus {
	for _, v := range records {
		if v.Discarded() {
			continue
		}
		if v.Administered || v.Reason == models.ReasonAlreadyHad {
			return models.VaccinationVaccinated
		}
	}

	if consent == models.ConsentRefused || triage == models.TriageDoNotVaccinate {
		return models.VaccinationCouldNotVaccinate
	}
	return models.VaccinationNoneYet
}

// Administered reports whether any non-discarded record is an administered dose.
func Administered(records []models.VaccinationRecord) bool {
	for _, v := range records {
		if !v.Discarded() && v.Administered {
			return true
		}
	}
	return false
}

// LatestNotAdministered returns the most recently performed non-discarded
// record that was not administered, or nil.
func LatestNotAdministered(records []models.VaccinationRecord) *models.VaccinationRecord {
	var latest *models.VaccinationRecord
	for i := range records {
		v := &records[i]
		if v.Discarded() || v.Administered {
			continue
		}
		if latest == nil || v.PerformedAt.After(latest.PerformedAt) ||
			(v.PerformedAt.Equal(latest.PerformedAt) && v.ID > latest.ID) {
			latest = v
		}
	}
	return latest
}

// InSession keeps the records performed during sessionID.
func InSession(records []models.VaccinationRecord, sessionID int64) []models.VaccinationRecord {
	var out []models.VaccinationRecord
	for _, v := range records {
		if v.SessionID != nil && *v.SessionID == sessionID {
			out = append(out, v)
		}
	}
	return out
}
