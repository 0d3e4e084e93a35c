package domain

import (
	"sort"

	validation "github.com/jellydator/validation"

	customValidation "github.com/trustchecker/atrest/internal/validation"
)

const (
	// DefaultIDColumn is the primary key column used for keyset pagination.
	DefaultIDColumn = "id"
	// DefaultTenantColumn holds the tenant identifier on every PII entity.
	DefaultTenantColumn = "organization_id"
)

// EntitySpec describes one table whose string columns are encrypted.
type EntitySpec struct {
	Model        string
	Table        string
	IDColumn     string
	TenantColumn string
	Fields       []string
}

// Validate checks every identifier that ends up interpolated into SQL.
func (e EntitySpec) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Model, validation.Required),
		validation.Field(&e.Table, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&e.IDColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&e.TenantColumn, validation.Required, customValidation.SQLIdentifier),
		validation.Field(&e.Fields, validation.Required, validation.Each(validation.Required, customValidation.SQLIdentifier)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	return nil
}

// HasField reports whether name is one of the encrypted fields.
func (e EntitySpec) HasField(name string) bool {
	for _, f := range e.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// PiiFieldMap maps a model name to the entity that carries its PII.
// It is static configuration and is never modified after startup.
type PiiFieldMap map[string]EntitySpec

// DefaultPiiFieldMap returns the entities encrypted by the application.
func DefaultPiiFieldMap() PiiFieldMap {
	return PiiFieldMap{
		"User": {
			Model:        "User",
			Table:        "users",
			IDColumn:     DefaultIDColumn,
			TenantColumn: DefaultTenantColumn,
			Fields:       []string{"email"},
		},
		"KYCBusiness": {
			Model:        "KYCBusiness",
			Table:        "kyc_businesses",
			IDColumn:     DefaultIDColumn,
			TenantColumn: DefaultTenantColumn,
			Fields:       []string{"representative_name", "representative_email"},
		},
		"ConsentRecord": {
			Model:        "ConsentRecord",
			Table:        "consent_records",
			IDColumn:     DefaultIDColumn,
			TenantColumn: DefaultTenantColumn,
			Fields:       []string{"data_subject_email", "data_subject_name"},
		},
		"AuditLog": {
			Model:        "AuditLog",
			Table:        "audit_logs",
			IDColumn:     DefaultIDColumn,
			TenantColumn: DefaultTenantColumn,
			Fields:       []string{"actor_email"},
		},
	}
}

// Lookup returns the EntitySpec registered for model.
func (m PiiFieldMap) Lookup(model string) (EntitySpec, bool) {
	spec, ok := m[model]
	return spec, ok
}

// Entities returns the entity specs sorted by model name so sweeps run in a stable order.
func (m PiiFieldMap) Entities() []EntitySpec {
	specs := make([]EntitySpec, 0, len(m))
	for _, spec := range m {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Model < specs[j].Model
	})
	return specs
}

// TotalFields returns the number of encrypted columns across all entities.
func (m PiiFieldMap) TotalFields() int {
	total := 0
	for _, spec := range m {
		total += len(spec.Fields)
	}
	return total
}

// Validate validates every entity and checks that map keys match model names.
func (m PiiFieldMap) Validate() error {
	for model, spec := range m {
		if spec.Model != model {
			return ErrInvalidEntitySpec
		}
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	return nil
}
