package postgres

import (
	"context"
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/vax/models"
)

// pgxQuerier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ models.StatusRepository = &StatusRepository{}

// StatusRepository reads and writes the derived status tables in bulk through pgx.
type StatusRepository struct {
	db pgxQuerier
}

func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{db: pool}
}

func NewStatusRepositoryTx(tx pgx.Tx) *StatusRepository {
	return &StatusRepository{db: tx}
}

type statusTable struct {
	name  string
	owner string
}

var statusTables = map[models.StatusKind]statusTable{
	models.ConsentKind:     {"patient_consent_statuses", "patient_id"},
	models.TriageKind:      {"patient_triage_statuses", "patient_id"},
	models.VaccinationKind: {"patient_vaccination_statuses", "patient_id"},
	models.SessionKind:     {"patient_session_session_statuses", "patient_session_id"},
}

func tableFor(kind models.StatusKind) (statusTable, error) {
	t, ok := statusTables[kind]
	if !ok {
		return statusTable{}, fmt.Errorf("unknown status kind %q", kind)
	}
	return t, nil
}

func (r *StatusRepository) InsertMissing(ctx context.Context, kind models.StatusKind, keys []models.StatusKey) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	owners := make([]int64, len(keys))
	programmes := make([]int64, len(keys))
	for i, k := range keys {
		owners[i] = k.OwnerID
		programmes[i] = k.ProgrammeID
	}

	query := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, programme_id, status)
		SELECT u.owner_id, u.programme_id, $3 FROM unnest($1::bigint[], $2::bigint[]) AS u(owner_id, programme_id)
		ON CONFLICT (%[2]s, programme_id) DO NOTHING`, t.name, t.owner)

	tag, err := r.db.Exec(ctx, query, owners, programmes, models.DefaultStatus(kind))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert %s statuses", kind)
	}
	return tag.RowsAffected(), nil
}

func (r *StatusRepository) ListStatuses(ctx context.Context, kind models.StatusKind, scope models.Scope, afterID int64, limit int) ([]models.DerivedStatus, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var query string
	if kind == models.SessionKind {
		query = fmt.Sprintf(`SELECT s.id, s.%[2]s, s.programme_id, s.status FROM %[1]s s
			JOIN patient_sessions ps ON ps.id = s.%[2]s
			WHERE s.id > $1
			AND ($2::bigint IS NULL OR ps.patient_id = $2)
			AND ($3::bigint IS NULL OR ps.session_id = $3)
			ORDER BY s.id LIMIT $4`, t.name, t.owner)
	} else {
		query = fmt.Sprintf(`SELECT s.id, s.%[2]s, s.programme_id, s.status FROM %[1]s s
			WHERE s.id > $1
			AND ($2::bigint IS NULL OR s.%[2]s = $2)
			AND ($3::bigint IS NULL OR s.%[2]s IN (SELECT patient_id FROM patient_sessions WHERE session_id = $3))
			ORDER BY s.id LIMIT $4`, t.name, t.owner)
	}

	rows, err := r.db.Query(ctx, query, afterID, nullable(scope.PatientID), nullable(scope.SessionID), limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s statuses", kind)
	}
	defer rows.Close()

	var statuses []models.DerivedStatus
	for rows.Next() {
		var s models.DerivedStatus
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.ProgrammeID, &s.Status); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *StatusRepository) UpdateStatuses(ctx context.Context, kind models.StatusKind, updates []models.StatusUpdate) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(updates))
	values := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
		values[i] = u.Status
	}

	query := fmt.Sprintf(`UPDATE %s AS s SET status = u.status
		FROM unnest($1::bigint[], $2::text[]) AS u(id, status)
		WHERE s.id = u.id AND s.status IS DISTINCT FROM u.status`, t.name)

	tag, err := r.db.Exec(ctx, query, ids, values)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to update %s statuses", kind)
	}
	return tag.RowsAffected(), nil
}

func (r *StatusRepository) DeleteIneligible(ctx context.Context, kind models.StatusKind, programmeID int64, birthAcademicYears []int) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	years := make([]int32, len(birthAcademicYears))
	for i, y := range birthAcademicYears {
		if years[i], err = safecast.ToInt32(y); err != nil {
			return 0, errors.Wrap(err, "invalid birth academic year")
		}
	}

	var query string
	if kind == models.SessionKind {
		query = fmt.Sprintf(`DELETE FROM %s s USING patient_sessions ps, patients p
			WHERE s.patient_session_id = ps.id AND ps.patient_id = p.id
			AND s.programme_id = $1 AND NOT (p.birth_academic_year = ANY($2::int[]))`, t.name)
	} else {
		query = fmt.Sprintf(`DELETE FROM %s s USING patients p
			WHERE s.patient_id = p.id
			AND s.programme_id = $1 AND NOT (p.birth_academic_year = ANY($2::int[]))`, t.name)
	}

	tag, err := r.db.Exec(ctx, query, programmeID, years)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to delete ineligible %s statuses", kind)
	}
	return tag.RowsAffected(), nil
}

func (r *StatusRepository) GetStatus(ctx context.Context, kind models.StatusKind, key models.StatusKey) (models.DerivedStatus, error) {
	t, err := tableFor(kind)
	if err != nil {
		return models.DerivedStatus{}, err
	}

	query := fmt.Sprintf(`SELECT id, %[2]s, programme_id, status FROM %[1]s WHERE %[2]s = $1 AND programme_id = $2`,
		t.name, t.owner)

	var s models.DerivedStatus
	err = r.db.QueryRow(ctx, query, key.OwnerID, key.ProgrammeID).Scan(&s.ID, &s.OwnerID, &s.ProgrammeID, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DerivedStatus{}, models.ErrStatusNotFound
	}
	if err != nil {
		return models.DerivedStatus{}, errors.Wrapf(err, "failed to get %s status", kind)
	}
	return s, nil
}

func (r *StatusRepository) GetOwnersWithStatus(ctx context.Context, kind models.StatusKind, programmeID int64, status string) ([]int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE programme_id = $1 AND status = $2 ORDER BY %[2]s`, t.name, t.owner)

	rows, err := r.db.Query(ctx, query, programmeID, status)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s owners", kind)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return owners, nil
}

const sessionOverviewQuery = `SELECT ps.id, ps.patient_id,
	COALESCE(ss.status, ''), COALESCE(cs.status, ''), COALESCE(ts.status, ''), COALESCE(vs.status, '')
	FROM patient_sessions ps
	LEFT JOIN patient_session_session_statuses ss ON ss.patient_session_id = ps.id AND ss.programme_id = $2
	LEFT JOIN patient_consent_statuses cs ON cs.patient_id = ps.patient_id AND cs.programme_id = $2
	LEFT JOIN patient_triage_statuses ts ON ts.patient_id = ps.patient_id AND ts.programme_id = $2
	LEFT JOIN patient_vaccination_statuses vs ON vs.patient_id = ps.patient_id AND vs.programme_id = $2
	WHERE ps.session_id = $1
	ORDER BY ps.id`

func (r *StatusRepository) GetSessionOverview(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error) {
	rows, err := r.db.Query(ctx, sessionOverviewQuery, sessionID, programmeID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query session overview")
	}
	defer rows.Close()

	var overview []models.PatientSessionStatuses
	for rows.Next() {
		var (
			o                                   models.PatientSessionStatuses
			session, consent, triage, vaccinate string
		)
		if err := rows.Scan(&o.PatientSessionID, &o.PatientID, &session, &consent, &triage, &vaccinate); err != nil {
			return nil, err
		}
		o.Session = models.SessionStatus(session)
		o.Consent = models.ConsentStatus(consent)
		o.Triage = models.TriageStatus(triage)
		o.Vaccination = models.VaccinationStatus(vaccinate)
		overview = append(overview, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overview, nil
}
