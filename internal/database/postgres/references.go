package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/pgvector/pgvector-go"
)

// ReferenceRepository provides PostgreSQL-backed reference embedding storage
type ReferenceRepository struct {
	pool *Pool
}

// NewReferenceRepository creates a new PostgreSQL reference repository
func NewReferenceRepository(pool *Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// LoadReferences returns the enrolled identities of a subject ordered by roll
func (r *ReferenceRepository) LoadReferences(ctx context.Context, subjectID int64) ([]database.EnrolledIdentity, error) {
	query := `
		SELECT subject_id, roll, embedding, image_count, enrolled_at
		FROM reference_embeddings
		WHERE subject_id = $1
		ORDER BY roll
	`

	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	defer rows.Close()

	var out []database.EnrolledIdentity
	for rows.Next() {
		var id database.EnrolledIdentity
		var vec pgvector.Vector
		if err := rows.Scan(&id.SubjectID, &id.Roll, &vec, &id.ImageCount, &id.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		id.Embedding = vec.Slice()
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}

// ReferenceVersion returns the replacement counter of a subject, 0 if it was never trained
func (r *ReferenceRepository) ReferenceVersion(ctx context.Context, subjectID int64) (int64, error) {
	var version int64
	err := r.pool.QueryRow(ctx, "SELECT version FROM reference_versions WHERE subject_id = $1", subjectID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read reference version: %w", err)
	}
	return version, nil
}

// ReplaceReferences deletes a subject's reference store and writes the new one in a single transaction
func (r *ReferenceRepository) ReplaceReferences(ctx context.Context, subjectID int64, identities []database.EnrolledIdentity) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM reference_embeddings WHERE subject_id = $1", subjectID); err != nil {
		return fmt.Errorf("delete references: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_embeddings (subject_id, roll, embedding, image_count, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare reference insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range identities {
		if _, err := stmt.ExecContext(ctx, subjectID, id.Roll, pgvector.NewVector(id.Embedding), id.ImageCount, id.EnrolledAt); err != nil {
			return fmt.Errorf("insert reference %s: %w", id.Roll, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reference_versions (subject_id, version) VALUES ($1, 1)
		ON CONFLICT (subject_id) DO UPDATE SET version = reference_versions.version + 1
	`, subjectID); err != nil {
		return fmt.Errorf("bump reference version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit references: %w", err)
	}
	return nil
}
