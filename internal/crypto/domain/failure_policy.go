package domain

import "fmt"

// FailurePolicy decides what happens when a field cannot be encrypted on the write path.
type FailurePolicy string

const (
	// FailOpen stores the plaintext, logs and counts the failure. Losing the write is
	// considered worse than storing one access-controlled value unencrypted.
	FailOpen FailurePolicy = "fail-open"

	// FailClosed rejects the write with ErrEncryptionFailed or ErrEncryptionInactive.
	FailClosed FailurePolicy = "fail-closed"
)

// ParseFailurePolicy converts a configuration value into a FailurePolicy.
// An empty value selects FailOpen.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, s)
	}
}
