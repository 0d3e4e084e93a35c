// Package hook encrypts PII fields on their way into the database and decrypts
// them on their way out.
//
// The hook is a middleware around a persistence call: writes for mapped models
// have their string PII fields replaced by envelopes before the call runs, and
// records returned by the call have those fields opened again.
package hook

import (
	"context"
	"log/slog"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
)

// FieldCipher encrypts and decrypts single field values for a tenant.
type FieldCipher interface {
	Encrypt(plaintext, tenantID string) (string, error)
	Decrypt(value, tenantID string) string
}

// Next runs the intercepted persistence call.
type Next func(ctx context.Context, params *piiDomain.Params) (any, error)

// Hook is the PII persistence middleware.
type Hook struct {
	fields piiDomain.PiiFieldMap
	cipher FieldCipher
	logger *slog.Logger
}

// NewHook creates a Hook for the entities in fields.
func NewHook(fields piiDomain.PiiFieldMap, cipher FieldCipher, logger *slog.Logger) *Hook {
	return &Hook{
		fields: fields,
		cipher: cipher,
		logger: logger,
	}
}

// Middleware encrypts the write payloads in params, calls next and decrypts the
// records it returns. Unmapped models pass straight through.
//
// Under the fail-closed policy an encryption error aborts the write: next is not
// called and the error is returned.
func (h *Hook) Middleware(ctx context.Context, params *piiDomain.Params, next Next) (any, error) {
	spec, ok := h.fields.Lookup(params.Model)
	if !ok {
		return next(ctx, params)
	}

	tenantID := h.resolveTenant(spec, params)

	if params.Action.IsWrite() {
		if err := h.encryptWrite(spec, params, tenantID); err != nil {
			h.logger.Error("pii write rejected",
				slog.String("model", params.Model),
				slog.String("action", string(params.Action)),
				slog.String("tenant_id", tenantID),
				slog.Any("error", err),
			)
			return nil, err
		}
	}

	result, err := next(ctx, params)
	if err != nil {
		return result, err
	}

	if params.Action.ReturnsRecords() {
		h.decryptResult(spec, result, tenantID)
	}
	return result, nil
}

// stagedField is an encrypted value waiting to replace its plaintext.
type stagedField struct {
	obj   map[string]any
	field string
	value string
}

// encryptWrite encrypts every payload of params. Nothing is replaced until all
// fields have encrypted, so a rejected write leaves the caller's maps as given.
func (h *Hook) encryptWrite(spec piiDomain.EntitySpec, params *piiDomain.Params, tenantID string) error {
	payloads := []map[string]any{params.Data}
	tenants := []string{tenantID}
	for _, item := range params.DataMany {
		payloads = append(payloads, item)
		tenants = append(tenants, tenantOf(spec, item, tenantID))
	}
	if params.Action == piiDomain.ActionUpsert {
		payloads = append(payloads, params.Create, params.Update)
		tenants = append(tenants, tenantOf(spec, params.Create, tenantID), tenantOf(spec, params.Update, tenantID))
	}

	var staged []stagedField
	for i, obj := range payloads {
		var err error
		if staged, err = h.encryptFields(spec, obj, tenants[i], staged); err != nil {
			return err
		}
	}

	for _, s := range staged {
		s.obj[s.field] = s.value
	}
	return nil
}

func (h *Hook) encryptFields(
	spec piiDomain.EntitySpec,
	obj map[string]any,
	tenantID string,
	staged []stagedField,
) ([]stagedField, error) {
	if obj == nil {
		return staged, nil
	}
	for _, field := range spec.Fields {
		value, ok := obj[field].(string)
		if !ok || value == "" {
			continue
		}
		encrypted, err := h.cipher.Encrypt(value, tenantID)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stagedField{obj: obj, field: field, value: encrypted})
	}
	return staged, nil
}

func (h *Hook) decryptResult(spec piiDomain.EntitySpec, result any, tenantID string) {
	switch r := result.(type) {
	case map[string]any:
		h.decryptFields(spec, r, tenantOf(spec, r, tenantID))
	case []map[string]any:
		for _, item := range r {
			h.decryptFields(spec, item, tenantOf(spec, item, tenantID))
		}
	case []any:
		for _, item := range r {
			if m, ok := item.(map[string]any); ok {
				h.decryptFields(spec, m, tenantOf(spec, m, tenantID))
			}
		}
	}
}

func (h *Hook) decryptFields(spec piiDomain.EntitySpec, obj map[string]any, tenantID string) {
	if obj == nil {
		return
	}
	for _, field := range spec.Fields {
		value, ok := obj[field].(string)
		if !ok || value == "" {
			continue
		}
		obj[field] = h.cipher.Decrypt(value, tenantID)
	}
}

// resolveTenant picks the call's tenant from the write payload, then the filter,
// then the upsert create branch, falling back to the default tenant.
func (h *Hook) resolveTenant(spec piiDomain.EntitySpec, params *piiDomain.Params) string {
	for _, source := range []map[string]any{params.Data, params.Where, params.Create} {
		if tenantID, ok := tenantValue(spec, source); ok {
			return tenantID
		}
	}
	return cryptoDomain.DefaultTenant
}

// tenantOf returns obj's own tenant when it carries one, else fallback.
func tenantOf(spec piiDomain.EntitySpec, obj map[string]any, fallback string) string {
	if tenantID, ok := tenantValue(spec, obj); ok {
		return tenantID
	}
	return fallback
}

func tenantValue(spec piiDomain.EntitySpec, obj map[string]any) (string, bool) {
	if obj == nil {
		return "", false
	}
	tenantID, ok := obj[spec.TenantColumn].(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}
