package repository

import (
	"context"
	"database/sql"

	"github.com/trustchecker/atrest/internal/database"
	apperrors "github.com/trustchecker/atrest/internal/errors"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

// MySQLRecordRepository implements record access for MySQL.
type MySQLRecordRepository struct {
	db *sql.DB
}

// ListBatch returns up to limit records of entity with an id greater than
// afterID, ordered by id. An empty afterID starts from the first record.
func (m *MySQLRecordRepository) ListBatch(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	afterID string,
	limit int,
) ([]*piiDomain.Record, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, m.db)

	query := buildListBatchQuery(entity, afterID, mysqlQuote, mysqlPlaceholder)
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
//
// MySQL reports zero affected rows when the new values equal the stored ones,
// so a missing record is not detected here.
func (m *MySQLRecordRepository) UpdateFields(
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
	querier := database.GetTx(ctx, m.db)

	query, names, err := buildUpdateFieldsQuery(entity, fields, mysqlQuote, mysqlPlaceholder)
	if err != nil {
		return err
	}
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		args = append(args, fields[name])
	}
	args = append(args, id)

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrapf(err, "failed to update %s", entity.Table)
	}
	return nil
}

// NewMySQLRecordRepository creates a new MySQL record repository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

func mysqlQuote(ident string) string {
	return "`" + ident + "`"
}

func mysqlPlaceholder(int) string {
	return "?"
}
