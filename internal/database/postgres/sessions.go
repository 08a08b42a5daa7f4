package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

const dateLayout = "2006-01-02"

// SessionRepository provides PostgreSQL-backed class session storage
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession stores a class session and sets its ID
func (r *SessionRepository) CreateSession(ctx context.Context, s *database.ClassSession) error {
	query := `
		INSERT INTO class_sessions (subject_id, date, start_time, end_time)
		VALUES ($1, $2::date, $3, $4)
		RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query, s.SubjectID, s.Date.Format(dateLayout), s.StartTime, s.EndTime).Scan(&s.ID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a class session by ID, returns nil if not found
func (r *SessionRepository) GetSession(ctx context.Context, sessionID int64) (*database.ClassSession, error) {
	query := `
		SELECT id, subject_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time
		FROM class_sessions
		WHERE id = $1
	`

	var s database.ClassSession
	var date string
	var end sql.NullTime
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&s.ID, &s.SubjectID, &date, &s.StartTime, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if end.Valid {
		s.EndTime = &end.Time
	}
	return &s, nil
}

func parseDate(s string) (t time.Time, err error) {
	t, err = time.Parse(dateLayout, s)
	if err != nil {
		return t, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
