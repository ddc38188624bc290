package postgres

import (
	"context"
	"database/sql"

	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/vax/models"
)

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type executable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	sqlFlavor = sqlbuilder.PostgreSQL
)

// Ensure Repository satisfies the interfaces
var (
	_ models.ProgrammeRepository = &Repository{}
	_ models.EventRepository     = &Repository{}
)

// Repository reads programmes and raw patient records.
type Repository struct {
	queryable
	executable
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db, db}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	return &Repository{tx, tx}
}

func (r *Repository) GetProgrammes(ctx context.Context) ([]models.Programme, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("p.id", "p.type", "g.year_group")
	sb.From("programmes p")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "programme_year_groups g", "g.programme_id = p.id")
	sb.OrderBy("p.id", "g.year_group")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programmes []models.Programme
	for rows.Next() {
		var (
			id        int64
			typ       string
			yearGroup sql.NullInt64
		)
		if err := rows.Scan(&id, &typ, &yearGroup); err != nil {
			return nil, err
		}

		if len(programmes) == 0 || programmes[len(programmes)-1].ID != id {
			programmes = append(programmes, models.Programme{ID: id, Type: models.ProgrammeType(typ)})
		}
		if yearGroup.Valid {
			p := &programmes[len(programmes)-1]
			p.YearGroups = append(p.YearGroups, int(yearGroup.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return programmes, nil
}

// GetPatients returns the patients in scope that belong to at least one session.
func (r *Repository) GetPatients(ctx context.Context, scope models.Scope) ([]models.Patient, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "date_of_birth", "birth_academic_year").From("patients")
	if scope.PatientID != nil {
		sb.Where(sb.Equal("id", *scope.PatientID))
	}
	// only patients placed in a session get derived statuses
	sessions := "SELECT patient_id FROM patient_sessions"
	if scope.SessionID != nil {
		sessions += " WHERE session_id = " + sb.Var(*scope.SessionID)
	}
	sb.Where("id IN (" + sessions + ")")
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var p models.Patient
		if err := rows.Scan(&p.ID, &p.DateOfBirth, &p.BirthAcademicYear); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return patients, nil
}

func (r *Repository) GetPatientSessions(ctx context.Context, scope models.Scope) ([]models.PatientSession, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("ps.id", "ps.patient_id", "ps.session_id", "p.birth_academic_year")
	sb.From("patient_sessions ps")
	sb.Join("patients p", "p.id = ps.patient_id")
	if scope.PatientID != nil {
		sb.Where(sb.Equal("ps.patient_id", *scope.PatientID))
	}
	if scope.SessionID != nil {
		sb.Where(sb.Equal("ps.session_id", *scope.SessionID))
	}
	sb.OrderBy("ps.id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patientSessions []models.PatientSession
	for rows.Next() {
		var ps models.PatientSession
		if err := rows.Scan(&ps.ID, &ps.PatientID, &ps.SessionID, &ps.BirthAcademicYear); err != nil {
			return nil, err
		}
		patientSessions = append(patientSessions, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return patientSessions, nil
}

func (r *Repository) GetConsents(ctx context.Context, patientIDs []int64) ([]models.ConsentRecord, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "patient_id", "programme_id", "response", "responder_kind", "parent_id",
		"triage_needed", "invalidated_at", "created_at")
	sb.From("consents")
	sb.Where(sb.In("patient_id", sqlbuilder.Flatten(patientIDs)...))
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query consents")
	}
	defer rows.Close()

	var consents []models.ConsentRecord
	for rows.Next() {
		var (
			c                   models.ConsentRecord
			response, responder string
			parentID            sql.NullInt64
			invalidatedAt       sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.PatientID, &c.ProgrammeID, &response, &responder, &parentID,
			&c.TriageNeeded, &invalidatedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Response = models.ConsentResponse(response)
		c.ResponderKind = models.ResponderKind(responder)
		c.ParentID = int64Ptr(parentID)
		c.InvalidatedAt = timePtr(invalidatedAt)
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return consents, nil
}

func (r *Repository) GetTriages(ctx context.Context, patientIDs []int64) ([]models.TriageRecord, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "patient_id", "programme_id", "status", "notes", "performed_by_user_id",
		"invalidated_at", "created_at")
	sb.From("triages")
	sb.Where(sb.In("patient_id", sqlbuilder.Flatten(patientIDs)...))
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query triages")
	}
	defer rows.Close()

	var triages []models.TriageRecord
	for rows.Next() {
		var (
			t             models.TriageRecord
			decision      string
			performedBy   sql.NullInt64
			invalidatedAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.PatientID, &t.ProgrammeID, &decision, &t.Notes, &performedBy,
			&invalidatedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Decision = models.TriageDecision(decision)
		t.PerformedByUserID = int64Ptr(performedBy)
		t.InvalidatedAt = timePtr(invalidatedAt)
		triages = append(triages, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return triages, nil
}

func (r *Repository) GetVaccinationRecords(ctx context.Context, patientIDs []int64) ([]models.VaccinationRecord, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "patient_id", "programme_id", "session_id", "administered", "reason",
		"dose_sequence", "discarded_at", "performed_at")
	sb.From("vaccination_records")
	sb.Where(sb.In("patient_id", sqlbuilder.Flatten(patientIDs)...))
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query vaccination records")
	}
	defer rows.Close()

	var records []models.VaccinationRecord
	for rows.Next() {
		var (
			v            models.VaccinationRecord
			sessionID    sql.NullInt64
			reason       sql.NullString
			doseSequence sql.NullInt64
			discardedAt  sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.PatientID, &v.ProgrammeID, &sessionID, &v.Administered, &reason,
			&doseSequence, &discardedAt, &v.PerformedAt); err != nil {
			return nil, err
		}
		v.SessionID = int64Ptr(sessionID)
		v.Reason = models.VaccinationReason(reason.String)
		if doseSequence.Valid {
			d := int(doseSequence.Int64)
			v.DoseSequence = &d
		}
		v.DiscardedAt = timePtr(discardedAt)
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *Repository) GetAttendances(ctx context.Context, patientSessionIDs []int64) ([]models.AttendanceRecord, error) {
	if len(patientSessionIDs) == 0 {
		return nil, nil
	}

	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "patient_session_id", "attending", "created_at")
	sb.From("session_attendances")
	sb.Where(sb.In("patient_session_id", sqlbuilder.Flatten(patientSessionIDs)...))
	sb.OrderBy("id")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query session attendances")
	}
	defer rows.Close()

	var attendances []models.AttendanceRecord
	for rows.Next() {
		var (
			a         models.AttendanceRecord
			attending sql.NullBool
		)
		if err := rows.Scan(&a.ID, &a.PatientSessionID, &attending, &a.CreatedAt); err != nil {
			return nil, err
		}
		if attending.Valid {
			b := attending.Bool
			a.Attending = &b
		}
		attendances = append(attendances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attendances, nil
}
