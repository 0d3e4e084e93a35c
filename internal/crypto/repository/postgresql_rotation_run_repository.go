// Package repository persists the key rotation run log.
//
// Each rotation attempt writes one row to rotation_runs when it starts and
// updates it when it finishes, so an interrupted process leaves a "sweeping" row
// behind for an operator to find.
//
// # Database Support
//
//   - PostgreSQL: native UUID id, TIMESTAMPTZ timestamps
//   - MySQL: BINARY(16) id, DATETIME(6) timestamps
//
// Both implementations resolve their querier with database.GetTx().
package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/database"
	apperrors "github.com/trustchecker/atrest/internal/errors"
)

// PostgreSQLRotationRunRepository implements rotation run persistence for PostgreSQL.
type PostgreSQLRotationRunRepository struct {
	db *sql.DB
}

// Create inserts a new rotation run.
func (p *PostgreSQLRotationRunRepository) Create(ctx context.Context, run *cryptoDomain.RotationRun) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_runs (id, status, old_fingerprint, new_fingerprint, reencrypted, errors,
			  error_message, started_at, finished_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		run.ID,
		run.Status,
		run.OldFingerprint,
		run.NewFingerprint,
		run.Reencrypted,
		run.Errors,
		run.ErrorMessage,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation run")
	}
	return nil
}

// Update stores the outcome of a rotation run.
func (p *PostgreSQLRotationRunRepository) Update(ctx context.Context, run *cryptoDomain.RotationRun) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_runs
			  SET status = $1,
				  reencrypted = $2,
				  errors = $3,
				  error_message = $4,
				  finished_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(
		ctx,
		query,
		run.Status,
		run.Reencrypted,
		run.Errors,
		run.ErrorMessage,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation run")
	}
	return nil
}

// ListRecent returns the latest rotation runs, newest first.
func (p *PostgreSQLRotationRunRepository) ListRecent(
	ctx context.Context,
	limit int,
) ([]*cryptoDomain.RotationRun, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, status, old_fingerprint, new_fingerprint, reencrypted, errors, error_message,
			  started_at, finished_at
			  FROM rotation_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation runs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []*cryptoDomain.RotationRun
	for rows.Next() {
		var run cryptoDomain.RotationRun
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.Status,
			&run.OldFingerprint,
			&run.NewFingerprint,
			&run.Reencrypted,
			&run.Errors,
			&run.ErrorMessage,
			&run.StartedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// NewPostgreSQLRotationRunRepository creates a new PostgreSQL rotation run repository.
func NewPostgreSQLRotationRunRepository(db *sql.DB) *PostgreSQLRotationRunRepository {
	return &PostgreSQLRotationRunRepository{db: db}
}
