package domain

// EncryptionStatus is the operator view of field-level encryption.
type EncryptionStatus struct {
	Active         bool          `json:"active"`
	Algorithm      Algorithm     `json:"algorithm"`
	FailurePolicy  FailurePolicy `json:"failure_policy"`
	KeyFingerprint string        `json:"key_fingerprint,omitempty"`
	KMSWrapped     bool          `json:"kms_wrapped"`
	Rotating       bool          `json:"rotating"`
	Encryptions    int64         `json:"encryptions"`
	Decryptions    int64         `json:"decryptions"`
	Errors         int64         `json:"errors"`
	PiiModels      int           `json:"pii_models"`
	TotalPiiFields int           `json:"total_pii_fields"`
	LastRotation   *RotationRun  `json:"last_rotation,omitempty"`
}
