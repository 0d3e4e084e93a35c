package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/trustchecker/atrest/internal/database"
	apperrors "github.com/trustchecker/atrest/internal/errors"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

// PostgreSQLRecordRepository implements record access for PostgreSQL.
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// ListBatch returns up to limit records of entity with an id greater than
// afterID, ordered by id. An empty afterID starts from the first record.
func (p *PostgreSQLRecordRepository) ListBatch(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	afterID string,
	limit int,
) ([]*piiDomain.Record, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, p.db)

	query := buildListBatchQuery(entity, afterID, pgQuote, pgPlaceholder)
	args := []any{}
	if afterID != "" {
		args = append(args, afterID)
	}
	args = append(args, limit)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to list %s", entity.Table)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRecords(rows, entity)
}

// UpdateFields overwrites the given PII columns of one record.
func (p *PostgreSQLRecordRepository) UpdateFields(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	id string,
	fields map[string]string,
) error {
	if len(fields) == 0 {
		return nil
	}
	if err := entity.Validate(); err != nil {
		return err
	}
	querier := database.GetTx(ctx, p.db)

	query, names, err := buildUpdateFieldsQuery(entity, fields, pgQuote, pgPlaceholder)
	if err != nil {
		return err
	}
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		args = append(args, fields[name])
	}
	args = append(args, id)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrapf(err, "failed to update %s", entity.Table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL record repository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}

func pgQuote(ident string) string {
	return `"` + ident + `"`
}

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}
