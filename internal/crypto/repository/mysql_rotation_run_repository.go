package repository

import (
	"context"
	"database/sql"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	"github.com/trustchecker/atrest/internal/database"
	apperrors "github.com/trustchecker/atrest/internal/errors"
)

// MySQLRotationRunRepository implements rotation run persistence for MySQL.
type MySQLRotationRunRepository struct {
	db *sql.DB
}

// Create inserts a new rotation run.
func (m *MySQLRotationRunRepository) Create(ctx context.Context, run *cryptoDomain.RotationRun) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rotation_runs (id, status, old_fingerprint, new_fingerprint, reencrypted, errors,
			  error_message, started_at, finished_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := run.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation run id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLRotationRunRepository) Update(ctx context.Context, run *cryptoDomain.RotationRun) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rotation_runs
			  SET status = ?,
				  reencrypted = ?,
				  errors = ?,
				  error_message = ?,
				  finished_at = ?
			  WHERE id = ?`

	id, err := run.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation run id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		run.Status,
		run.Reencrypted,
		run.Errors,
		run.ErrorMessage,
		run.FinishedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation run")
	}
	return nil
}

// ListRecent returns the latest rotation runs, newest first.
func (m *MySQLRotationRunRepository) ListRecent(
	ctx context.Context,
	limit int,
) ([]*cryptoDomain.RotationRun, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, status, old_fingerprint, new_fingerprint, reencrypted, errors, error_message,
			  started_at, finished_at
			  FROM rotation_runs ORDER BY started_at DESC LIMIT ?`

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
		var id []byte
		var finishedAt sql.NullTime

		err := rows.Scan(
			&id,
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

		if err := run.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal rotation run id")
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

// NewMySQLRotationRunRepository creates a new MySQL rotation run repository.
func NewMySQLRotationRunRepository(db *sql.DB) *MySQLRotationRunRepository {
	return &MySQLRotationRunRepository{db: db}
}
