package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/schoolvax/vax-app/vax/models"
)

type RepositoryTestSuite struct {
	suite.Suite

	db         *sql.DB
	mock       sqlmock.Sqlmock
	repository *Repository
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (r *RepositoryTestSuite) SetupTest() {
	var err error
	r.db, r.mock, err = sqlmock.New()
	require.NoError(r.T(), err)
	r.repository = NewRepository(r.db)
}

func (r *RepositoryTestSuite) TearDownTest() {
	assert.NoError(r.T(), r.mock.ExpectationsWereMet())
	r.db.Close()
}

func exact(query string) string {
	return fmt.Sprintf("^%s$", regexp.QuoteMeta(query))
}

func (r *RepositoryTestSuite) TestGetProgrammes() {
	rows := sqlmock.NewRows([]string{"id", "type", "year_group"}).
		AddRow(1, "flu", 0).
		AddRow(1, "flu", 1).
		AddRow(2, "hpv", 8).
		AddRow(3, "menacwy", nil)
	r.mock.ExpectQuery(regexp.QuoteMeta("FROM programmes p LEFT JOIN programme_year_groups g ON g.programme_id = p.id")).
		WillReturnRows(rows)

	programmes, err := r.repository.GetProgrammes(context.Background())
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.Programme{
		{ID: 1, Type: models.ProgrammeFlu, YearGroups: []int{0, 1}},
		{ID: 2, Type: models.ProgrammeHPV, YearGroups: []int{8}},
		{ID: 3, Type: models.ProgrammeMenACWY},
	}, programmes)
}

func (r *RepositoryTestSuite) TestGetProgrammesError() {
	r.mock.ExpectQuery("FROM programmes").WillReturnError(sql.ErrConnDone)

	_, err := r.repository.GetProgrammes(context.Background())
	assert.ErrorIs(r.T(), err, sql.ErrConnDone)
}

func (r *RepositoryTestSuite) TestGetPatients() {
	patientID, sessionID := int64(4), int64(9)
	dob := time.Date(2011, time.October, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		scope models.Scope
		query string
		args  []driver.Value
	}{
		{"all", models.Scope{},
			`SELECT id, date_of_birth, birth_academic_year FROM patients WHERE id IN (SELECT patient_id FROM patient_sessions) ORDER BY id`, nil},
		{"patient", models.Scope{PatientID: &patientID},
			`SELECT id, date_of_birth, birth_academic_year FROM patients WHERE id = $1 AND id IN (SELECT patient_id FROM patient_sessions) ORDER BY id`,
			[]driver.Value{patientID}},
		{"session", models.Scope{SessionID: &sessionID},
			`SELECT id, date_of_birth, birth_academic_year FROM patients WHERE id IN (SELECT patient_id FROM patient_sessions WHERE session_id = $1) ORDER BY id`,
			[]driver.Value{sessionID}},
		{"patient in session", models.Scope{PatientID: &patientID, SessionID: &sessionID},
			`SELECT id, date_of_birth, birth_academic_year FROM patients WHERE id = $1 AND id IN (SELECT patient_id FROM patient_sessions WHERE session_id = $2) ORDER BY id`,
			[]driver.Value{patientID, sessionID}},
	}
	for _, tt := range tests {
		r.T().Run(tt.name, func(t *testing.T) {
			rows := sqlmock.NewRows([]string{"id", "date_of_birth", "birth_academic_year"}).AddRow(patientID, dob, 2011)
			expected := r.mock.ExpectQuery(exact(tt.query))
			if tt.args != nil {
				expected.WithArgs(tt.args...)
			}
			expected.WillReturnRows(rows)

			patients, err := r.repository.GetPatients(context.Background(), tt.scope)
			require.NoError(t, err)
			assert.Equal(t, []models.Patient{{ID: patientID, DateOfBirth: dob, BirthAcademicYear: 2011}}, patients)
		})
	}
}

func (r *RepositoryTestSuite) TestGetPatientSessions() {
	sessionID := int64(9)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "session_id", "birth_academic_year"}).
		AddRow(1, 4, sessionID, 2011).
		AddRow(2, 5, sessionID, 2010)
	r.mock.ExpectQuery(exact(`SELECT ps.id, ps.patient_id, ps.session_id, p.birth_academic_year FROM patient_sessions ps JOIN patients p ON p.id = ps.patient_id WHERE ps.session_id = $1 ORDER BY ps.id`)).
		WithArgs(sessionID).
		WillReturnRows(rows)

	patientSessions, err := r.repository.GetPatientSessions(context.Background(), models.Scope{SessionID: &sessionID})
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.PatientSession{
		{ID: 1, PatientID: 4, SessionID: sessionID, BirthAcademicYear: 2011},
		{ID: 2, PatientID: 5, SessionID: sessionID, BirthAcademicYear: 2010},
	}, patientSessions)
}

func (r *RepositoryTestSuite) TestGetConsents() {
	created := time.Date(2024, time.September, 10, 9, 0, 0, 0, time.UTC)
	invalidated := created.Add(time.Hour)
	parentID := int64(30)

	rows := sqlmock.NewRows([]string{"id", "patient_id", "programme_id", "response", "responder_kind",
		"parent_id", "triage_needed", "invalidated_at", "created_at"}).
		AddRow(1, 4, 2, "given", "parent", parentID, true, nil, created).
		AddRow(2, 5, 2, "refused", "self", nil, false, invalidated, created)
	r.mock.ExpectQuery(exact(`SELECT id, patient_id, programme_id, response, responder_kind, parent_id, triage_needed, invalidated_at, created_at FROM consents WHERE patient_id IN ($1, $2) ORDER BY id`)).
		WithArgs(int64(4), int64(5)).
		WillReturnRows(rows)

	consents, err := r.repository.GetConsents(context.Background(), []int64{4, 5})
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.ConsentRecord{
		{ID: 1, PatientID: 4, ProgrammeID: 2, Response: models.ResponseGiven, ResponderKind: models.ResponderParent,
			ParentID: &parentID, TriageNeeded: true, CreatedAt: created},
		{ID: 2, PatientID: 5, ProgrammeID: 2, Response: models.ResponseRefused, ResponderKind: models.ResponderSelf,
			InvalidatedAt: &invalidated, CreatedAt: created},
	}, consents)
}

func (r *RepositoryTestSuite) TestGetConsentsError() {
	r.mock.ExpectQuery("FROM consents").WillReturnError(sql.ErrConnDone)

	_, err := r.repository.GetConsents(context.Background(), []int64{4})
	assert.ErrorContains(r.T(), err, "failed to query consents")
	assert.ErrorIs(r.T(), err, sql.ErrConnDone)
}

func (r *RepositoryTestSuite) TestEmptyIDsSkipQuery() {
	ctx := context.Background()

	consents, err := r.repository.GetConsents(ctx, nil)
	assert.NoError(r.T(), err)
	assert.Nil(r.T(), consents)

	triages, err := r.repository.GetTriages(ctx, []int64{})
	assert.NoError(r.T(), err)
	assert.Nil(r.T(), triages)

	records, err := r.repository.GetVaccinationRecords(ctx, nil)
	assert.NoError(r.T(), err)
	assert.Nil(r.T(), records)

	attendances, err := r.repository.GetAttendances(ctx, nil)
	assert.NoError(r.T(), err)
	assert.Nil(r.T(), attendances)
}

func (r *RepositoryTestSuite) TestGetTriages() {
	created := time.Date(2024, time.September, 11, 9, 0, 0, 0, time.UTC)
	userID := int64(77)

	rows := sqlmock.NewRows([]string{"id", "patient_id", "programme_id", "status", "notes",
		"performed_by_user_id", "invalidated_at", "created_at"}).
		AddRow(1, 4, 2, "ready_to_vaccinate", "fine", userID, nil, created)
	r.mock.ExpectQuery(exact(`SELECT id, patient_id, programme_id, status, notes, performed_by_user_id, invalidated_at, created_at FROM triages WHERE patient_id IN ($1) ORDER BY id`)).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	triages, err := r.repository.GetTriages(context.Background(), []int64{4})
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.TriageRecord{
		{ID: 1, PatientID: 4, ProgrammeID: 2, Decision: models.DecisionReadyToVaccinate, Notes: "fine",
			PerformedByUserID: &userID, CreatedAt: created},
	}, triages)
}

func (r *RepositoryTestSuite) TestGetVaccinationRecords() {
	performed := time.Date(2024, time.October, 1, 10, 0, 0, 0, time.UTC)
	discarded := performed.Add(24 * time.Hour)
	sessionID := int64(9)
	dose := 1

	rows := sqlmock.NewRows([]string{"id", "patient_id", "programme_id", "session_id", "administered",
		"reason", "dose_sequence", "discarded_at", "performed_at"}).
		AddRow(1, 4, 2, sessionID, true, nil, dose, nil, performed).
		AddRow(2, 4, 2, nil, false, "not_well", nil, discarded, performed)
	r.mock.ExpectQuery(exact(`SELECT id, patient_id, programme_id, session_id, administered, reason, dose_sequence, discarded_at, performed_at FROM vaccination_records WHERE patient_id IN ($1) ORDER BY id`)).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	records, err := r.repository.GetVaccinationRecords(context.Background(), []int64{4})
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.VaccinationRecord{
		{ID: 1, PatientID: 4, ProgrammeID: 2, SessionID: &sessionID, Administered: true, DoseSequence: &dose, PerformedAt: performed},
		{ID: 2, PatientID: 4, ProgrammeID: 2, Reason: models.ReasonNotWell, DiscardedAt: &discarded, PerformedAt: performed},
	}, records)
}

func (r *RepositoryTestSuite) TestGetAttendances() {
	created := time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)
	attending := true

	rows := sqlmock.NewRows([]string{"id", "patient_session_id", "attending", "created_at"}).
		AddRow(1, 7, true, created).
		AddRow(2, 8, nil, created)
	r.mock.ExpectQuery(exact(`SELECT id, patient_session_id, attending, created_at FROM session_attendances WHERE patient_session_id IN ($1, $2) ORDER BY id`)).
		WithArgs(int64(7), int64(8)).
		WillReturnRows(rows)

	attendances, err := r.repository.GetAttendances(context.Background(), []int64{7, 8})
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []models.AttendanceRecord{
		{ID: 1, PatientSessionID: 7, Attending: &attending, CreatedAt: created},
		{ID: 2, PatientSessionID: 8, CreatedAt: created},
	}, attendances)
}
