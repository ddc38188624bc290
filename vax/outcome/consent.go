package outcome

import (
	"sort"

	"github.com/schoolvax/vax-app/vax/models"
)

// ConsentOutcome is the aggregate consent decision and the records it was decided from.
type ConsentOutcome struct {
	Status models.ConsentStatus
	// Latest holds the deciding record of each responder that counted.
	Latest []models.ConsentRecord
}

// TriageNeeded reports whether any deciding response flagged a health follow-up.
func (o ConsentOutcome) TriageNeeded() bool {
	if o.Status != models.ConsentGiven {
		return false
	}
	for _, c := range o.Latest {
		if c.TriageNeeded {
			return true
		}
	}
	return false
}

// ResolveConsent aggregates the consent records of one patient for one programme.
//
// Invalidated records and records that are neither given nor refused are
// ignored. Each responder counts once, through their most recent record. When
// the patient has responded for themselves only that response is considered.
func ResolveConsent(records []models.ConsentRecord) ConsentOutcome {
	latest := latestPerResponder(records)
	if len(latest) == 0 {
		return ConsentOutcome{Status: models.ConsentNoResponse}
	}

	deciding := latest
	var self []models.ConsentRecord
	for _, c := range latest {
		if c.ResponderKind == models.ResponderSelf {
			self = append(self, c)
		}
	}
	if len(self) > 0 {
		deciding = self
	}

	return ConsentOutcome{Status: aggregate(deciding), Latest: deciding}
}

func aggregate(records []models.ConsentRecord) models.ConsentStatus {
	var given, refused bool
	for _, c := range records {
		switch c.Response {
		case models.ResponseGiven:
			given = true
		case models.ResponseRefused:
			refused = true
		}
	}

	switch {
	case given && refused:
		return models.ConsentConflicts
	case given:
		return models.ConsentGiven
	default:
		return models.ConsentRefused
	}
}

func latestPerResponder(records []models.ConsentRecord) []models.ConsentRecord {
	byResponder := make(map[models.Responder]models.ConsentRecord)
	for _, c := range records {
		if c.Invalidated() {
			continue
		}
		if c.Response != models.ResponseGiven && c.Response != models.ResponseRefused {
			continue
		}

		r := c.Responder()
		if current, ok := byResponder[r]; !ok || consentAfter(c, current) {
			byResponder[r] = c
		}
	}

	latest := make([]models.ConsentRecord, 0, len(byResponder))
	for _, c := range byResponder {
		latest = append(latest, c)
	}
	sort.Slice(latest, func(i, j int) bool { return consentAfter(latest[j], latest[i]) })
	return latest
}

// consentAfter orders by creation time, breaking ties on the higher id.
func consentAfter(a, b models.ConsentRecord) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
