// Package repository reads and rewrites the PII columns of application tables
// for the key rotation sweep.
//
// Table and column names come from the static PII field map and are validated as
// SQL identifiers before they are quoted into a query. Values are always bound as
// parameters. Every method resolves its querier with database.GetTx, so a batch
// can be rewritten inside a single transaction.
package repository

import (
	"database/sql"
	"sort"
	"strings"

	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

// quoteFunc quotes a validated identifier for one SQL dialect.
type quoteFunc func(ident string) string

// placeholderFunc returns the bind placeholder for the n-th (1-based) argument.
type placeholderFunc func(n int) string

func buildListBatchQuery(
	entity piiDomain.EntitySpec,
	afterID string,
	quote quoteFunc,
	placeholder placeholderFunc,
) string {
	columns := make([]string, 0, len(entity.Fields)+2)
	columns = append(columns, quote(entity.IDColumn), quote(entity.TenantColumn))
	for _, f := range entity.Fields {
		columns = append(columns, quote(f))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quote(entity.Table))

	n := 1
	if afterID != "" {
		b.WriteString(" WHERE ")
		b.WriteString(quote(entity.IDColumn))
		b.WriteString(" > ")
		b.WriteString(placeholder(n))
		n++
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(quote(entity.IDColumn))
	b.WriteString(" LIMIT ")
	b.WriteString(placeholder(n))
	return b.String()
}

// buildUpdateFieldsQuery returns the UPDATE statement and the sorted field names
// whose values must be bound, in order, before the id.
func buildUpdateFieldsQuery(
	entity piiDomain.EntitySpec,
	fields map[string]string,
	quote quoteFunc,
	placeholder placeholderFunc,
) (string, []string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if !entity.HasField(name) {
			return "", nil, piiDomain.ErrInvalidEntitySpec
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	for i, name := range names {
		sets = append(sets, quote(name)+" = "+placeholder(i+1))
	}

	query := "UPDATE " + quote(entity.Table) +
		" SET " + strings.Join(sets, ", ") +
		" WHERE " + quote(entity.IDColumn) + " = " + placeholder(len(names)+1)
	return query, names, nil
}

func scanRecords(rows *sql.Rows, entity piiDomain.EntitySpec) ([]*piiDomain.Record, error) {
	var records []*piiDomain.Record
	for rows.Next() {
		var id string
		var tenantID sql.NullString
		values := make([]sql.NullString, len(entity.Fields))

		dest := make([]any, 0, len(entity.Fields)+2)
		dest = append(dest, &id, &tenantID)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		record := &piiDomain.Record{
			ID:       id,
			TenantID: tenantID.String,
			Fields:   make(map[string]string, len(entity.Fields)),
		}
		for i, f := range entity.Fields {
			if values[i].Valid {
				record.Fields[f] = values[i].String
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
