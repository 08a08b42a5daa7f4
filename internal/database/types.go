package database

import (
	"time"
)

// EnrolledIdentity is the reference embedding of one student in one subject.
// Embedding is unit length.
type EnrolledIdentity struct {
	SubjectID  int64
	Roll       string
	Embedding  []float32
	ImageCount int
	EnrolledAt time.Time
}

// Student is a person enrolled in a subject.
type Student struct {
	ID        int64
	Name      string
	Roll      string
	SubjectID int64
}

// ClassSession is one meeting of a subject on a calendar date.
type ClassSession struct {
	ID        int64
	SubjectID int64
	Date      time.Time // calendar date, time of day is zero
	StartTime time.Time
	EndTime   *time.Time
}

// AttendanceStatus is the recorded presence of a student in a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord is a persisted attendance verdict. SubjectID and Date are
// copied from the class session so the per-day rule can be enforced by the store.
type AttendanceRecord struct {
	ID             int64
	ClassSessionID int64
	StudentID      int64
	SubjectID      int64
	Date           time.Time
	Timestamp      time.Time
	Status         AttendanceStatus
	Confidence     float64
	Reason         string
	Edited         bool
}

// DateOf truncates t to its calendar date in t's location, expressed in UTC
// so dates compare equal across stores.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
