package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// AttendanceRepository provides PostgreSQL-backed attendance storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, class_session_id, student_id, subject_id, to_char(session_date, 'YYYY-MM-DD'),
	timestamp, status, confidence, reason, edited`

func scanAttendance(row interface{ Scan(...any) error }) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var date, status string
	if err := row.Scan(&rec.ID, &rec.ClassSessionID, &rec.StudentID, &rec.SubjectID, &date,
		&rec.Timestamp, &status, &rec.Confidence, &rec.Reason, &rec.Edited); err != nil {
		return nil, err
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rec.Date = d
	rec.Status = database.AttendanceStatus(status)
	return &rec, nil
}

// CreateAttendance stores a record and sets its ID
func (r *AttendanceRepository) CreateAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (class_session_id, student_id, subject_id, session_date, timestamp, status, confidence, reason, edited)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		rec.ClassSessionID, rec.StudentID, rec.SubjectID, rec.Date.Format(dateLayout),
		rec.Timestamp, string(rec.Status), rec.Confidence, rec.Reason, rec.Edited,
	).Scan(&rec.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("create attendance (%s): %w", pqErr.Constraint, database.ErrDuplicateAttendance)
	}
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// FindInSession returns the student's record in a session, returns nil if none
func (r *AttendanceRepository) FindInSession(ctx context.Context, sessionID, studentID int64) (*database.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE class_session_id = $1 AND student_id = $2 LIMIT 1`

	rec, err := scanAttendance(r.pool.QueryRow(ctx, query, sessionID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance in session: %w", err)
	}
	return rec, nil
}

// FindOnDate returns any record of the student in the subject on the given date, returns nil if none
func (r *AttendanceRepository) FindOnDate(ctx context.Context, subjectID, studentID int64, date time.Time) (*database.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance
		WHERE subject_id = $1 AND student_id = $2 AND session_date = $3::date
		ORDER BY timestamp
		LIMIT 1`

	rec, err := scanAttendance(r.pool.QueryRow(ctx, query, subjectID, studentID, date.Format(dateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance on date: %w", err)
	}
	return rec, nil
}

// ListBySession returns all records of a session ordered by timestamp
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE class_session_id = $1 ORDER BY timestamp, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}
