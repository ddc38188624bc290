package statusupdater

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/eligibility"
	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/outcome"
)

// ErrRowsFailed is returned after a run in which some rows could not be
// derived. Every other row of the run has been written.
var ErrRowsFailed = errors.New("statuses could not be derived for some rows")

// Catalogue builds the eligibility index for an academic year.
type Catalogue interface {
	Index(ctx context.Context, academicYear int) (*eligibility.Index, error)
}

// Synchronizer materializes the derived statuses of every eligible
// (patient, programme) and (patient session, programme) pair in scope.
type Synchronizer struct {
	events    models.EventRepository
	statuses  models.StatusRepository
	catalogue Catalogue

	batchSize    int
	academicYear int
	writeRetries int

	now          func() time.Time
	writeBackOff func() backoff.BackOff
}

func NewSynchronizer(events models.EventRepository, statuses models.StatusRepository, catalogue Catalogue, cfg Config) *Synchronizer {
	s := &Synchronizer{
		events:       events,
		statuses:     statuses,
		catalogue:    catalogue,
		batchSize:    cfg.BatchSize,
		academicYear: cfg.AcademicYear,
		writeRetries: cfg.WriteRetries,
		now:          time.Now,
	}
	if s.batchSize <= 0 {
		s.batchSize = constants.DefaultBatchSize
	}
	s.writeBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(max(s.writeRetries, 0)))
	}
	return s
}

// PassResult counts what one pass did.
type PassResult struct {
	Inserted  int64
	Updated   int64
	Unchanged int64
	Skipped   int64
	Failed    int64
}

type Result struct {
	Passes map[models.StatusKind]PassResult
}

func (r Result) Failed() int64 {
	var n int64
	for _, p := range r.Passes {
		n += p.Failed
	}
	return n
}

func (r Result) Updated() int64 {
	var n int64
	for _, p := range r.Passes {
		n += p.Updated
	}
	return n
}

func (r Result) Inserted() int64 {
	var n int64
	for _, p := range r.Passes {
		n += p.Inserted
	}
	return n
}

// Synchronize brings every derived status in scope in line with the raw records.
// Running it again without new records changes nothing.
func (s *Synchronizer) Synchronize(ctx context.Context, scope models.Scope) (Result, error) {
	result := Result{Passes: make(map[models.StatusKind]PassResult, len(models.StatusKinds))}
	ctx, logger := log.SetLoggerFields(ctx, logrus.Fields{"scope": scope.String()})

	academicYear := s.academicYear
	if academicYear == 0 {
		academicYear = eligibility.AcademicYear(s.now())
	}

	idx, err := s.catalogue.Index(ctx, academicYear)
	if err != nil {
		return result, errors.Wrap(err, constants.ProgrammeLoadErr)
	}

	patients, err := s.events.GetPatients(ctx, scope)
	if err != nil {
		return result, errors.Wrap(err, "failed to load patients")
	}
	patientSessions, err := s.events.GetPatientSessions(ctx, scope)
	if err != nil {
		return result, errors.Wrap(err, constants.PatientSessionLoadErr)
	}

	r := newRun(s, idx, scope, patients, patientSessions)
	for _, kind := range models.StatusKinds {
		pr, err := r.pass(ctx, kind)
		result.Passes[kind] = pr
		if err != nil {
			return result, errors.Wrapf(err, "%s pass", kind)
		}

		logger.WithFields(logrus.Fields{
			"kind":      kind,
			"inserted":  pr.Inserted,
			"updated":   pr.Updated,
			"unchanged": pr.Unchanged,
			"skipped":   pr.Skipped,
			"failed":    pr.Failed,
		}).Info("Synchronized statuses")
	}

	if failed := result.Failed(); failed > 0 {
		return result, errors.Wrapf(ErrRowsFailed, "%d rows failed", failed)
	}
	return result, nil
}

// write runs a bulk write, retrying transient failures.
func (s *Synchronizer) write(ctx context.Context, op func() error) error {
	return backoff.RetryNotify(op, backoff.WithContext(s.writeBackOff(), ctx), func(err error, next time.Duration) {
		log.GetCtxLogger(ctx).Warnf("Status write failed, retrying in %s: %s", next, err)
	})
}

type run struct {
	*Synchronizer
	idx             *eligibility.Index
	scope           models.Scope
	patients        map[int64]models.Patient
	patientSessions map[int64]models.PatientSession
	// ordered ids keep candidate generation deterministic
	patientIDs        []int64
	patientSessionIDs []int64
}

func newRun(s *Synchronizer, idx *eligibility.Index, scope models.Scope, patients []models.Patient, patientSessions []models.PatientSession) *run {
	r := &run{
		Synchronizer:    s,
		idx:             idx,
		scope:           scope,
		patients:        make(map[int64]models.Patient, len(patients)),
		patientSessions: make(map[int64]models.PatientSession, len(patientSessions)),
	}
	for _, p := range patients {
		r.patients[p.ID] = p
		r.patientIDs = append(r.patientIDs, p.ID)
	}
	for _, ps := range patientSessions {
		r.patientSessions[ps.ID] = ps
		r.patientSessionIDs = append(r.patientSessionIDs, ps.ID)
	}
	return r
}

func (r *run) pass(ctx context.Context, kind models.StatusKind) (PassResult, error) {
	var res PassResult

	candidates := r.candidates(kind)
	for start := 0; start < len(candidates); start += r.batchSize {
		chunk := candidates[start:min(start+r.batchSize, len(candidates))]
		var inserted int64
		err := r.write(ctx, func() error {
			n, err := r.statuses.InsertMissing(ctx, kind, chunk)
			if err != nil {
				return err
			}
			inserted = n
			return nil
		})
		if err != nil {
			return res, err
		}
		res.Inserted += inserted
	}

	var afterID int64
	for {
		rows, err := r.statuses.ListStatuses(ctx, kind, r.scope, afterID, r.batchSize)
		if err != nil {
			return res, err
		}
		if len(rows) == 0 {
			break
		}
		afterID = rows[len(rows)-1].ID

		updates, err := r.resolveBatch(ctx, kind, rows, &res)
		if err != nil {
			return res, err
		}

		if len(updates) > 0 {
			err = r.write(ctx, func() error {
				_, err := r.statuses.UpdateStatuses(ctx, kind, updates)
				return err
			})
			if err != nil {
				return res, err
			}
			res.Updated += int64(len(updates))
		}

		if len(rows) < r.batchSize {
			break
		}
	}

	return res, nil
}

// candidates lists every eligible pair of the kind within scope.
func (r *run) candidates(kind models.StatusKind) []models.StatusKey {
	var keys []models.StatusKey
	if kind == models.SessionKind {
		for _, id := range r.patientSessionIDs {
			ps := r.patientSessions[id]
			for _, programmeID := range r.idx.EligibleProgrammes(ps.BirthAcademicYear) {
				keys = append(keys, models.StatusKey{OwnerID: ps.ID, ProgrammeID: programmeID})
			}
		}
		return keys
	}

	for _, id := range r.patientIDs {
		p := r.patients[id]
		for _, programmeID := range r.idx.EligibleProgrammes(p.BirthAcademicYear) {
			keys = append(keys, models.StatusKey{OwnerID: p.ID, ProgrammeID: programmeID})
		}
	}
	return keys
}

// eligible reports whether a stored row still belongs to an eligible pair known to this run.
func (r *run) eligible(kind models.StatusKind, row models.DerivedStatus) bool {
	if kind == models.SessionKind {
		ps, ok := r.patientSessions[row.OwnerID]
		return ok && r.idx.IsEligible(row.ProgrammeID, ps.BirthAcademicYear)
	}
	p, ok := r.patients[row.OwnerID]
	return ok && r.idx.IsEligible(row.ProgrammeID, p.BirthAcademicYear)
}

func (r *run) resolveBatch(ctx context.Context, kind models.StatusKind, rows []models.DerivedStatus, res *PassResult) ([]models.StatusUpdate, error) {
	var live []models.DerivedStatus
	for _, row := range rows {
		if r.eligible(kind, row) {
			live = append(live, row)
		} else {
			res.Skipped++
		}
	}
	if len(live) == 0 {
		return nil, nil
	}

	resolve, err := r.resolver(ctx, kind, live)
	if err != nil {
		return nil, err
	}

	var updates []models.StatusUpdate
	for _, row := range live {
		status, ok := r.safely(ctx, kind, row, resolve)
		if !ok {
			res.Failed++
			continue
		}
		if status == row.Status {
			res.Unchanged++
			continue
		}
		updates = append(updates, models.StatusUpdate{ID: row.ID, Status: status})
	}
	return updates, nil
}

// safely resolves one row, turning a panic or an out-of-set value into a logged failure.
func (r *run) safely(ctx context.Context, kind models.StatusKind, row models.DerivedStatus, resolve func(models.DerivedStatus) string) (status string, ok bool) {
	logger := log.GetCtxLogger(ctx).WithFields(logrus.Fields{
		"kind":         kind,
		"owner_id":     row.OwnerID,
		"programme_id": row.ProgrammeID,
	})

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Failed to derive status: %v\n%s", rec, debug.Stack())
			status, ok = "", false
		}
	}()

	status = resolve(row)
	if !models.ValidStatus(kind, status) {
		logger.Errorf("Derived status %q is not a valid %s status", status, kind)
		return "", false
	}
	return status, true
}

// resolver loads the records for a batch and returns a function deriving the new status of one row.
func (r *run) resolver(ctx context.Context, kind models.StatusKind, rows []models.DerivedStatus) (func(models.DerivedStatus) string, error) {
	switch kind {
	case models.ConsentKind:
		events, err := r.loadEvents(ctx, ownerIDs(rows), false)
		if err != nil {
			return nil, err
		}
		return func(row models.DerivedStatus) string {
			return string(outcome.ResolveConsent(events.For(row.OwnerID, row.ProgrammeID).Consents).Status)
		}, nil

	case models.TriageKind:
		events, err := r.loadEvents(ctx, ownerIDs(rows), true)
		if err != nil {
			return nil, err
		}
		return func(row models.DerivedStatus) string {
			e := events.For(row.OwnerID, row.ProgrammeID)
			return string(outcome.ResolveTriage(outcome.TriageInput{
				Consent:      outcome.ResolveConsent(e.Consents),
				Triages:      e.Triages,
				Vaccinations: e.Vaccinations,
				Current:      models.TriageStatus(row.Status),
			}))
		}, nil

	case models.VaccinationKind:
		events, err := r.loadEvents(ctx, ownerIDs(rows), true)
		if err != nil {
			return nil, err
		}
		return func(row models.DerivedStatus) string {
			e := events.For(row.OwnerID, row.ProgrammeID)
			consent := outcome.ResolveConsent(e.Consents)
			// An administered dose short-circuits to vaccinated, so the
			// frozen triage value is never needed here.
			triage := outcome.ResolveTriage(outcome.TriageInput{
				Consent:      consent,
				Triages:      e.Triages,
				Vaccinations: e.Vaccinations,
			})
			return string(outcome.ResolveVaccination(consent.Status, triage, e.Vaccinations))
		}, nil

	case models.SessionKind:
		return r.sessionResolver(ctx, rows)
	}
	return nil, fmt.Errorf("unknown status kind %q", kind)
}

func (r *run) sessionResolver(ctx context.Context, rows []models.DerivedStatus) (func(models.DerivedStatus) string, error) {
	psIDs := ownerIDs(rows)
	patientIDs := make([]int64, 0, len(psIDs))
	seen := make(map[int64]struct{}, len(psIDs))
	for _, id := range psIDs {
		pid := r.patientSessions[id].PatientID
		if _, ok := seen[pid]; !ok {
			seen[pid] = struct{}{}
			patientIDs = append(patientIDs, pid)
		}
	}

	attendances, err := r.events.GetAttendances(ctx, psIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load attendances")
	}
	vaccinations, err := r.events.GetVaccinationRecords(ctx, patientIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vaccination records")
	}

	byPatientSession := models.GroupAttendances(attendances)
	events := models.GroupEvents(nil, nil, vaccinations)

	return func(row models.DerivedStatus) string {
		ps := r.patientSessions[row.OwnerID]
		inSession := outcome.InSession(events.For(ps.PatientID, row.ProgrammeID).Vaccinations, ps.SessionID)
		return string(outcome.ResolveSession(byPatientSession[ps.ID], inSession))
	}, nil
}

func (r *run) loadEvents(ctx context.Context, patientIDs []int64, full bool) (models.EventSet, error) {
	consents, err := r.events.GetConsents(ctx, patientIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load consents")
	}
	if !full {
		return models.GroupEvents(consents, nil, nil), nil
	}

	triages, err := r.events.GetTriages(ctx, patientIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load triages")
	}
	vaccinations, err := r.events.GetVaccinationRecords(ctx, patientIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vaccination records")
	}
	return models.GroupEvents(consents, triages, vaccinations), nil
}

// ownerIDs returns the distinct owners of rows in first-seen order.
func ownerIDs(rows []models.DerivedStatus) []int64 {
	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.OwnerID]; !ok {
			seen[row.OwnerID] = struct{}{}
			ids = append(ids, row.OwnerID)
		}
	}
	return ids
}
