package statusupdater

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/vax/models"
)

// memStore keeps raw records and derived statuses in memory. It satisfies
// the programme, event and status repositories so the synchronizer can run
// end to end without a database.
type memStore struct {
	mu sync.Mutex

	programmes      []models.Programme
	patients        []models.Patient
	patientSessions []models.PatientSession
	consents        []models.ConsentRecord
	triages         []models.TriageRecord
	vaccinations    []models.VaccinationRecord
	attendances     []models.AttendanceRecord

	statuses map[models.StatusKind]map[models.StatusKey]*models.DerivedStatus
	nextID   int64

	// failUpdates makes that many UpdateStatuses calls fail before succeeding.
	failUpdates int
	// failInserts makes that many InsertMissing calls report a count and fail without writing.
	failInserts int
	listCalls   map[models.StatusKind]int
	updated     map[models.StatusKind]int
}

var errStoreUnavailable = errors.New("store unavailable")

func newMemStore() *memStore {
	s := &memStore{
		statuses:  make(map[models.StatusKind]map[models.StatusKey]*models.DerivedStatus),
		listCalls: make(map[models.StatusKind]int),
		updated:   make(map[models.StatusKind]int),
	}
	for _, kind := range models.StatusKinds {
		s.statuses[kind] = make(map[models.StatusKey]*models.DerivedStatus)
	}
	return s
}

func (s *memStore) addPatient(id int64, birthAcademicYear int) {
	s.patients = append(s.patients, models.Patient{ID: id, BirthAcademicYear: birthAcademicYear})
}

func (s *memStore) addPatientSession(id, patientID, sessionID int64) {
	ps := models.PatientSession{ID: id, PatientID: patientID, SessionID: sessionID}
	for _, p := range s.patients {
		if p.ID == patientID {
			ps.BirthAcademicYear = p.BirthAcademicYear
		}
	}
	s.patientSessions = append(s.patientSessions, ps)
}

// put stores a row directly, bypassing eligibility.
func (s *memStore) put(kind models.StatusKind, key models.StatusKey, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.statuses[kind][key] = &models.DerivedStatus{ID: s.nextID, OwnerID: key.OwnerID, ProgrammeID: key.ProgrammeID, Status: status}
}

func (s *memStore) status(kind models.StatusKind, ownerID, programmeID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.statuses[kind][models.StatusKey{OwnerID: ownerID, ProgrammeID: programmeID}]
	if !ok {
		return "", false
	}
	return row.Status, true
}

func (s *memStore) count(kind models.StatusKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses[kind])
}

func (s *memStore) GetProgrammes(ctx context.Context) ([]models.Programme, error) {
	return s.programmes, nil
}

func (s *memStore) inScope(scope models.Scope, patientID int64) bool {
	if scope.PatientID != nil && *scope.PatientID != patientID {
		return false
	}
	if scope.SessionID == nil {
		return true
	}
	for _, ps := range s.patientSessions {
		if ps.PatientID == patientID && ps.SessionID == *scope.SessionID {
			return true
		}
	}
	return false
}

func (s *memStore) patientSessionInScope(scope models.Scope, ps models.PatientSession) bool {
	if scope.PatientID != nil && *scope.PatientID != ps.PatientID {
		return false
	}
	return scope.SessionID == nil || *scope.SessionID == ps.SessionID
}

func (s *memStore) GetPatients(ctx context.Context, scope models.Scope) ([]models.Patient, error) {
	var out []models.Patient
	for _, p := range s.patients {
		if s.inScope(scope, p.ID) && s.inAnySession(p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) inAnySession(patientID int64) bool {
	for _, ps := range s.patientSessions {
		if ps.PatientID == patientID {
			return true
		}
	}
	return false
}

func (s *memStore) GetPatientSessions(ctx context.Context, scope models.Scope) ([]models.PatientSession, error) {
	var out []models.PatientSession
	for _, ps := range s.patientSessions {
		if s.patientSessionInScope(scope, ps) {
			out = append(out, ps)
		}
	}
	return out, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *memStore) GetConsents(ctx context.Context, patientIDs []int64) ([]models.ConsentRecord, error) {
	var out []models.ConsentRecord
	for _, c := range s.consents {
		if contains(patientIDs, c.PatientID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetTriages(ctx context.Context, patientIDs []int64) ([]models.TriageRecord, error) {
	var out []models.TriageRecord
	for _, t := range s.triages {
		if contains(patientIDs, t.PatientID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) GetVaccinationRecords(ctx context.Context, patientIDs []int64) ([]models.VaccinationRecord, error) {
	var out []models.VaccinationRecord
	for _, v := range s.vaccinations {
		if contains(patientIDs, v.PatientID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memStore) GetAttendances(ctx context.Context, patientSessionIDs []int64) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, a := range s.attendances {
		if contains(patientSessionIDs, a.PatientSessionID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) InsertMissing(ctx context.Context, kind models.StatusKind, keys []models.StatusKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failInserts > 0 {
		s.failInserts--
		return int64(len(keys)), errStoreUnavailable
	}

	var n int64
	for _, key := range keys {
		if _, ok := s.statuses[kind][key]; ok {
			continue
		}
		s.nextID++
		s.statuses[kind][key] = &models.DerivedStatus{
			ID:          s.nextID,
			OwnerID:     key.OwnerID,
			ProgrammeID: key.ProgrammeID,
			Status:      models.DefaultStatus(kind),
		}
		n++
	}
	return n, nil
}

func (s *memStore) ownerInScope(kind models.StatusKind, scope models.Scope, ownerID int64) bool {
	if kind != models.SessionKind {
		return s.inScope(scope, ownerID)
	}
	for _, ps := range s.patientSessions {
		if ps.ID == ownerID {
			return s.patientSessionInScope(scope, ps)
		}
	}
	return false
}

func (s *memStore) ListStatuses(ctx context.Context, kind models.StatusKind, scope models.Scope, afterID int64, limit int) ([]models.DerivedStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls[kind]++

	var rows []models.DerivedStatus
	for _, row := range s.statuses[kind] {
		if row.ID > afterID && s.ownerInScope(kind, scope, row.OwnerID) {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *memStore) UpdateStatuses(ctx context.Context, kind models.StatusKind, updates []models.StatusUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdates > 0 {
		s.failUpdates--
		return 0, errStoreUnavailable
	}

	byID := make(map[int64]string, len(updates))
	for _, u := range updates {
		byID[u.ID] = u.Status
	}

	var n int64
	for _, row := range s.statuses[kind] {
		if status, ok := byID[row.ID]; ok && row.Status != status {
			row.Status = status
			n++
		}
	}
	s.updated[kind] += int(n)
	return n, nil
}

func (s *memStore) DeleteIneligible(ctx context.Context, kind models.StatusKind, programmeID int64, birthAcademicYears []int) (int64, error) {
	return 0, errors.New("not supported")
}

func (s *memStore) GetStatus(ctx context.Context, kind models.StatusKind, key models.StatusKey) (models.DerivedStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.statuses[kind][key]; ok {
		return *row, nil
	}
	return models.DerivedStatus{}, models.ErrStatusNotFound
}

func (s *memStore) GetOwnersWithStatus(ctx context.Context, kind models.StatusKind, programmeID int64, status string) ([]int64, error) {
	return nil, errors.New("not supported")
}

func (s *memStore) GetSessionOverview(ctx context.Context, sessionID, programmeID int64) ([]models.PatientSessionStatuses, error) {
	return nil, errors.New("not supported")
}
