// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/trustchecker/atrest/internal/errors"
)

var (
	// hexKeyRegex matches a 256-bit key written as 64 hex characters.
	hexKeyRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

	// sqlIdentifierRegex matches unquoted table and column names.
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

	// secretNameRegex matches logical secret names (e.g., "jwt_secret", "stripe-key").
	secretNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-./]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// HexKey256 validates a 64 character hex string (32 bytes).
var HexKey256 = validation.NewStringRuleWithError(
	func(s string) bool {
		return hexKeyRegex.MatchString(s)
	},
	validation.NewError("validation_hex_key", "must be 64 hex characters (32 bytes)"),
)

// SQLIdentifier validates a table or column name that is interpolated into SQL.
var SQLIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return sqlIdentifierRegex.MatchString(s)
	},
	validation.NewError("validation_sql_identifier", "must be a valid SQL identifier"),
)

// SecretName validates a logical secret name.
var SecretName = validation.NewStringRuleWithError(
	func(s string) bool {
		return secretNameRegex.MatchString(s)
	},
	validation.NewError("validation_secret_name", "must be a valid secret name"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
