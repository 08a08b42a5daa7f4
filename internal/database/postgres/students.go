package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
)

// StudentRepository reads the local students table
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// FindByRoll returns the student with the given roll, compared case-insensitively, or nil
func (r *StudentRepository) FindByRoll(ctx context.Context, subjectID int64, roll string) (*database.Student, error) {
	query := `
		SELECT id, name, roll, subject_id
		FROM students
		WHERE subject_id = $1 AND lower(roll) = lower($2)
		ORDER BY id
		LIMIT 1
	`

	var s database.Student
	err := r.pool.QueryRow(ctx, query, subjectID, roll).Scan(&s.ID, &s.Name, &s.Roll, &s.SubjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &s, nil
}

// ListBySubject returns all students of a subject ordered by roll
func (r *StudentRepository) ListBySubject(ctx context.Context, subjectID int64) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, roll, subject_id FROM students WHERE subject_id = $1 ORDER BY roll", subjectID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []database.Student
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Roll, &s.SubjectID); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

// CreateStudent stores a student and sets its ID
func (r *StudentRepository) CreateStudent(ctx context.Context, s *database.Student) error {
	query := `INSERT INTO students (subject_id, name, roll) VALUES ($1, $2, $3) RETURNING id`
	if err := r.pool.QueryRow(ctx, query, s.SubjectID, s.Name, s.Roll).Scan(&s.ID); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
