package outcome

import (
	"testing"
	"time"

	"github.com/schoolvax/vax-app/vax/models"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, time.September, 10, 9, 0, 0, 0, time.UTC)

func parentConsent(id, parentID int64, response models.ConsentResponse, at time.Time) models.ConsentRecord {
	return models.ConsentRecord{
		ID:            id,
		PatientID:     1,
		ProgrammeID:   1,
		Response:      response,
		ResponderKind: models.ResponderParent,
		ParentID:      &parentID,
		CreatedAt:     at,
	}
}

func selfConsent(id int64, response models.ConsentResponse, at time.Time) models.ConsentRecord {
	return models.ConsentRecord{
		ID:            id,
		PatientID:     1,
		ProgrammeID:   1,
		Response:      response,
		ResponderKind: models.ResponderSelf,
		CreatedAt:     at,
	}
}

func unknownParentConsent(id int64, response models.ConsentResponse, at time.Time) models.ConsentRecord {
	c := parentConsent(id, 0, response, at)
	c.ParentID = nil
	return c
}

func invalidated(c models.ConsentRecord) models.ConsentRecord {
	at := c.CreatedAt.Add(time.Minute)
	c.InvalidatedAt = &at
	return c
}

func TestResolveConsent(t *testing.T) {
	tests := []struct {
		name     string
		records  []models.ConsentRecord
		expected models.ConsentStatus
	}{
		{"no records", nil, models.ConsentNoResponse},
		{"only not provided", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseNotProvided, t0),
		}, models.ConsentNoResponse},
		{"only invalidated", []models.ConsentRecord{
			invalidated(parentConsent(1, 10, models.ResponseGiven, t0)),
		}, models.ConsentNoResponse},
		{"single parent given", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0),
		}, models.ConsentGiven},
		{"single parent refused", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
		}, models.ConsentRefused},
		{"two parents agree", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0),
			parentConsent(2, 11, models.ResponseGiven, t0.Add(time.Hour)),
		}, models.ConsentGiven},
		{"two parents disagree", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0),
			parentConsent(2, 11, models.ResponseRefused, t0.Add(time.Hour)),
		}, models.ConsentConflicts},
		{"two unidentified parents disagree", []models.ConsentRecord{
			unknownParentConsent(1, models.ResponseGiven, t0),
			unknownParentConsent(2, models.ResponseRefused, t0.Add(time.Hour)),
		}, models.ConsentConflicts},
		{"unidentified parent disagrees with a known parent", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
			unknownParentConsent(2, models.ResponseGiven, t0.Add(time.Hour)),
		}, models.ConsentConflicts},
		{"parent changes their mind", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
			parentConsent(2, 10, models.ResponseGiven, t0.Add(time.Hour)),
		}, models.ConsentGiven},
		{"later not provided is ignored", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
			parentConsent(2, 10, models.ResponseNotProvided, t0.Add(time.Hour)),
		}, models.ConsentRefused},
		{"later invalidated response is ignored", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0),
			invalidated(parentConsent(2, 10, models.ResponseRefused, t0.Add(time.Hour))),
		}, models.ConsentGiven},
		{"invalidated conflict leaves the other parent", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0),
			invalidated(parentConsent(2, 11, models.ResponseRefused, t0.Add(time.Hour))),
		}, models.ConsentGiven},
		{"equal timestamps break on id", []models.ConsentRecord{
			parentConsent(5, 10, models.ResponseGiven, t0),
			parentConsent(4, 10, models.ResponseRefused, t0),
		}, models.ConsentGiven},
		{"self consent overrides parents", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
			parentConsent(2, 11, models.ResponseRefused, t0),
			selfConsent(3, models.ResponseGiven, t0.Add(time.Hour)),
		}, models.ConsentGiven},
		{"self refusal overrides parent consent", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseGiven, t0.Add(2*time.Hour)),
			selfConsent(2, models.ResponseRefused, t0),
		}, models.ConsentRefused},
		{"latest self response wins", []models.ConsentRecord{
			selfConsent(1, models.ResponseRefused, t0),
			selfConsent(2, models.ResponseGiven, t0.Add(time.Hour)),
		}, models.ConsentGiven},
		{"invalidated self consent falls back to parents", []models.ConsentRecord{
			parentConsent(1, 10, models.ResponseRefused, t0),
			invalidated(selfConsent(2, models.ResponseGiven, t0.Add(time.Hour))),
		}, models.ConsentRefused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveConsent(tt.records).Status)
		})
	}
}

func TestResolveConsentLatestRecords(t *testing.T) {
	records := []models.ConsentRecord{
		parentConsent(1, 10, models.ResponseRefused, t0),
		parentConsent(2, 10, models.ResponseGiven, t0.Add(time.Hour)),
		parentConsent(3, 11, models.ResponseGiven, t0.Add(30*time.Minute)),
	}

	o := ResolveConsent(records)
	ids := []int64{}
	for _, c := range o.Latest {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{3, 2}, ids)
}

func TestResolveConsentIsOrderIndependent(t *testing.T) {
	records := []models.ConsentRecord{
		parentConsent(1, 10, models.ResponseGiven, t0),
		parentConsent(2, 11, models.ResponseRefused, t0.Add(time.Hour)),
		parentConsent(3, 11, models.ResponseGiven, t0.Add(2*time.Hour)),
	}
	reversed := []models.ConsentRecord{records[2], records[1], records[0]}

	assert.Equal(t, ResolveConsent(records), ResolveConsent(reversed))
	assert.Equal(t, models.ConsentGiven, ResolveConsent(records).Status)
}

func TestConsentOutcomeTriageNeeded(t *testing.T) {
	flagged := parentConsent(1, 10, models.ResponseGiven, t0)
	flagged.TriageNeeded = true
	plain := parentConsent(2, 11, models.ResponseGiven, t0)

	assert.True(t, ResolveConsent([]models.ConsentRecord{flagged, plain}).TriageNeeded())
	assert.False(t, ResolveConsent([]models.ConsentRecord{plain}).TriageNeeded())

	// A superseded flagged response no longer counts.
	later := parentConsent(3, 10, models.ResponseGiven, t0.Add(time.Hour))
	assert.False(t, ResolveConsent([]models.ConsentRecord{flagged, later}).TriageNeeded())

	// Refusals never need triage.
	refusedFlagged := parentConsent(4, 10, models.ResponseRefused, t0)
	refusedFlagged.TriageNeeded = true
	assert.False(t, ResolveConsent([]models.ConsentRecord{refusedFlagged}).TriageNeeded())
}
