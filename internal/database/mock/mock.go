// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

// MockReferenceRepository is a mock implementation of database.ReferenceWriter
type MockReferenceRepository struct {
	mu         sync.RWMutex
	references map[int64][]database.EnrolledIdentity
	versions   map[int64]int64
	loads      int

	// Error injection
	LoadError    error
	ReplaceError error
}

// NewMockReferenceRepository creates a new mock reference repository
func NewMockReferenceRepository() *MockReferenceRepository {
	return &MockReferenceRepository{
		references: make(map[int64][]database.EnrolledIdentity),
		versions:   make(map[int64]int64),
	}
}

// AddReference adds an identity to the mock store
func (m *MockReferenceRepository) AddReference(identity database.EnrolledIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references[identity.SubjectID] = append(m.references[identity.SubjectID], identity)
	m.versions[identity.SubjectID]++
}

// Loads returns how many times LoadReferences was called
func (m *MockReferenceRepository) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

// LoadReferences returns the identities of a subject ordered by roll
func (m *MockReferenceRepository) LoadReferences(ctx context.Context, subjectID int64) ([]database.EnrolledIdentity, error) {
	m.mu.Lock()
	m.loads++
	m.mu.Unlock()

	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.EnrolledIdentity, len(m.references[subjectID]))
	copy(out, m.references[subjectID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Roll < out[j].Roll })
	return out, nil
}

// ReferenceVersion returns how many times the subject's references changed
func (m *MockReferenceRepository) ReferenceVersion(ctx context.Context, subjectID int64) (int64, error) {
	if m.LoadError != nil {
		return 0, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[subjectID], nil
}

// ReplaceReferences swaps the whole store of a subject
func (m *MockReferenceRepository) ReplaceReferences(ctx context.Context, subjectID int64, identities []database.EnrolledIdentity) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]database.EnrolledIdentity, len(identities))
	for i, id := range identities {
		id.SubjectID = subjectID
		stored[i] = id
	}
	m.references[subjectID] = stored
	m.versions[subjectID]++
	return nil
}

// MockStudentRepository is a mock implementation of database.StudentReader
type MockStudentRepository struct {
	mu       sync.RWMutex
	students []database.Student
	nextID   int64

	// Error injection
	FindError error
	ListError error
}

// NewMockStudentRepository creates a new mock student repository
func NewMockStudentRepository() *MockStudentRepository {
	return &MockStudentRepository{nextID: 1}
}

// AddStudent adds a student and returns it with its assigned ID
func (m *MockStudentRepository) AddStudent(s database.Student) database.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
		m.nextID++
	}
	m.students = append(m.students, s)
	return s
}

// FindByRoll returns the student with the roll compared case-insensitively
func (m *MockStudentRepository) FindByRoll(ctx context.Context, subjectID int64, roll string) (*database.Student, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.SubjectID == subjectID && strings.EqualFold(s.Roll, roll) {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

// ListBySubject returns the students of a subject ordered by roll
func (m *MockStudentRepository) ListBySubject(ctx context.Context, subjectID int64) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Student
	for _, s := range m.students {
		if s.SubjectID == subjectID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Roll < out[j].Roll })
	return out, nil
}

// MockSessionRepository is a mock implementation of database.SessionWriter
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*database.ClassSession
	nextID   int64

	// Error injection
	GetError    error
	CreateError error
}

// NewMockSessionRepository creates a new mock session repository
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[int64]*database.ClassSession),
		nextID:   1,
	}
}

// AddSession adds a session and returns it with its assigned ID
func (m *MockSessionRepository) AddSession(s database.ClassSession) database.ClassSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
		m.nextID++
	}
	m.sessions[s.ID] = &s
	return s
}

// GetSession returns a session by ID, nil if not found
func (m *MockSessionRepository) GetSession(ctx context.Context, sessionID int64) (*database.ClassSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	found := *s
	return &found, nil
}

// CreateSession stores a session and sets its ID
func (m *MockSessionRepository) CreateSession(ctx context.Context, s *database.ClassSession) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := m.AddSession(*s)
	s.ID = stored.ID
	return nil
}

// MockAttendanceRepository is a mock implementation of database.AttendanceWriter.
// It enforces the same uniqueness rules as the PostgreSQL schema.
type MockAttendanceRepository struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	nextID  int64

	// Error injection
	FindError   error
	CreateError error
	ListError   error
}

// NewMockAttendanceRepository creates a new mock attendance repository
func NewMockAttendanceRepository() *MockAttendanceRepository {
	return &MockAttendanceRepository{nextID: 1}
}

// AddRecord adds a record without uniqueness checks
func (m *MockAttendanceRepository) AddRecord(rec database.AttendanceRecord) database.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
		m.nextID++
	}
	m.records = append(m.records, rec)
	return rec
}

// Records returns a copy of all stored records
func (m *MockAttendanceRepository) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// CreateAttendance stores a record, returns database.ErrDuplicateAttendance on conflict
func (m *MockAttendanceRepository) CreateAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ClassSessionID == rec.ClassSessionID && r.StudentID == rec.StudentID {
			return database.ErrDuplicateAttendance
		}
		if rec.Status == database.AttendancePresent && r.Status == database.AttendancePresent &&
			r.StudentID == rec.StudentID && r.SubjectID == rec.SubjectID && sameDay(r.Date, rec.Date) {
			return database.ErrDuplicateAttendance
		}
	}
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *rec)
	return nil
}

// FindInSession returns the student's record in a session, nil if none
func (m *MockAttendanceRepository) FindInSession(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ClassSessionID == sessionID && r.StudentID == studentID {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

// FindOnDate returns any record of the student in the subject on the date, nil if none
func (m *MockAttendanceRepository) FindOnDate(ctx context.Context, subjectID, studentID int64, date time.Time) (*database.AttendanceRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.SubjectID == subjectID && r.StudentID == studentID && sameDay(r.Date, date) {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

// ListBySession returns the records of a session ordered by timestamp
func (m *MockAttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceRecord
	for _, r := range m.records {
		if r.ClassSessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func sameDay(a, b time.Time) bool {
	return database.DateOf(a).Equal(database.DateOf(b))
}

var (
	_ database.ReferenceWriter  = (*MockReferenceRepository)(nil)
	_ database.StudentReader    = (*MockStudentRepository)(nil)
	_ database.SessionWriter    = (*MockSessionRepository)(nil)
	_ database.AttendanceWriter = (*MockAttendanceRepository)(nil)
)
