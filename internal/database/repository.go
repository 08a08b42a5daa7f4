package database

import (
	"context"
	"time"
)

// ReferenceReader provides read-only access to a subject's reference store
type ReferenceReader interface {
	// LoadReferences returns the enrolled identities of a subject ordered by roll.
	// An untrained subject returns an empty slice.
	LoadReferences(ctx context.Context, subjectID int64) ([]EnrolledIdentity, error)

	// ReferenceVersion returns a counter that grows with every replacement of
	// the subject's references. An untrained subject is at version 0.
	ReferenceVersion(ctx context.Context, subjectID int64) (int64, error)
}

// ReferenceWriter provides write access to reference stores
type ReferenceWriter interface {
	ReferenceReader

	// ReplaceReferences atomically swaps the whole reference store of a subject.
	ReplaceReferences(ctx context.Context, subjectID int64, identities []EnrolledIdentity) error
}

// StudentReader resolves roll numbers to students
type StudentReader interface {
	// FindByRoll returns the student of the subject with the given roll, compared
	// case-insensitively. Returns nil if not found.
	FindByRoll(ctx context.Context, subjectID int64, roll string) (*Student, error)
	// ListBySubject returns all students of a subject ordered by roll.
	ListBySubject(ctx context.Context, subjectID int64) ([]Student, error)
}

// SessionReader provides read-only access to class sessions
type SessionReader interface {
	// GetSession returns a class session by ID, returns nil if not found
	GetSession(ctx context.Context, sessionID int64) (*ClassSession, error)
}

// SessionWriter creates class sessions
type SessionWriter interface {
	SessionReader

	// CreateSession stores a new session and sets its ID.
	CreateSession(ctx context.Context, session *ClassSession) error
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// FindInSession returns the student's record in a session, returns nil if none
	FindInSession(ctx context.Context, sessionID, studentID int64) (*AttendanceRecord, error)
	// FindOnDate returns any record of the student in the subject on the given date, returns nil if none
	FindOnDate(ctx context.Context, subjectID, studentID int64, date time.Time) (*AttendanceRecord, error)
	// ListBySession returns all records of a session ordered by timestamp
	ListBySession(ctx context.Context, sessionID int64) ([]AttendanceRecord, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// CreateAttendance stores a record and sets its ID. Returns ErrDuplicateAttendance
	// when the store's uniqueness rules reject it.
	CreateAttendance(ctx context.Context, record *AttendanceRecord) error
}
