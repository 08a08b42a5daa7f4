package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
)

// RosterRepository reads students from the attendance front-end's `student` table.
// The table is owned by the front-end, this package never writes to it.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a roster reader on top of the pool.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// FindByRoll returns the student of the subject with the given roll, nil if not found.
func (r *RosterRepository) FindByRoll(ctx context.Context, subjectID int64, roll string) (*database.Student, error) {
	query := `
		SELECT id, name, roll, subject_id
		FROM student
		WHERE subject_id = ? AND LOWER(roll) = LOWER(?)
		ORDER BY id
		LIMIT 1
	`

	var s database.Student
	err := r.pool.db.QueryRowContext(ctx, query, subjectID, roll).Scan(&s.ID, &s.Name, &s.Roll, &s.SubjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find student by roll: %w", err)
	}
	return &s, nil
}

// ListBySubject returns all students of a subject ordered by roll.
func (r *RosterRepository) ListBySubject(ctx context.Context, subjectID int64) ([]database.Student, error) {
	query := `SELECT id, name, roll, subject_id FROM student WHERE subject_id = ? ORDER BY roll`

	rows, err := r.pool.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Roll, &s.SubjectID); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

var _ database.StudentReader = (*RosterRepository)(nil)
