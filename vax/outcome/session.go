package outcome

import (
	"fmt"

	"github.com/schoolvax/vax-app/vax/models"
)

// ResolveSession derives the session status of one patient session for one
// programme. vaccinations must already be restricted to the session and programme.
// A recorded vaccination outcome takes precedence over attendance.
func ResolveSession(attendances []models.AttendanceRecord, vaccinations []models.VaccinationRecord) models.SessionStatus {
	if Administered(vaccinations) {
		return models.SessionVaccinated
	}

	if v := LatestNotAdministered(vaccinations); v != nil {
		return sessionStatusFor(v.Reason)
	}

	a := latestAttendance(attendances)
	switch {
	case a == nil || a.Attending == nil:
		return models.SessionNotRegistered
	case *a.Attending:
		return models.SessionPresent
	default:
		return models.SessionAbsent
	}
}

func sessionStatusFor(r models.VaccinationReason) models.SessionStatus {
	switch r {
	case models.ReasonAlreadyHad:
		return models.SessionAlreadyHad
	case models.ReasonContraindications:
		return models.SessionHadContraindications
	case models.ReasonRefused:
		return models.SessionRefused
	case models.ReasonNotWell:
		return models.SessionUnwell
	case models.ReasonAbsentFromSchool:
		return models.SessionAbsentFromSchool
	case models.ReasonAbsentFromSession:
		return models.SessionAbsentFromSession
	}
	panic(fmt.Sprintf("unknown vaccination reason %q", r))
}

func latestAttendance(records []models.AttendanceRecord) *models.AttendanceRecord {
	var latest *models.AttendanceRecord
	for i := range records {
		a := &records[i]
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) ||
			(a.CreatedAt.Equal(latest.CreatedAt) && a.ID > latest.ID) {
			latest = a
		}
	}
	return latest
}
