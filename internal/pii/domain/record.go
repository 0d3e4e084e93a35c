package domain

// Record is one row loaded by the rotation sweep. Fields holds only the non-null
// PII columns of the entity.
type Record struct {
	ID       string
	TenantID string
	Fields   map[string]string
}
