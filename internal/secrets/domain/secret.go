package domain

import "time"

// Well-known secret names resolved at boot.
const (
	JWTSecret           = "jwt_secret"
	JWTRefreshSecret    = "jwt_refresh_secret"
	DatabaseURL         = "database_url"
	RedisURL            = "redis_url"
	StripeKey           = "stripe_key"
	StripeWebhookSecret = "stripe_webhook_secret"
	LicenseSigningKey   = "license_signing_key"
	EncryptionMasterKey = "encryption_master_key"
	AIAPIKey            = "ai_api_key"
	SMTPPassword        = "smtp_password"
)

// KnownSecretNames is the fixed list warmed by Preload, in preload order.
var KnownSecretNames = []string{
	JWTSecret,
	JWTRefreshSecret,
	DatabaseURL,
	RedisURL,
	StripeKey,
	StripeWebhookSecret,
	LicenseSigningKey,
	EncryptionMasterKey,
	AIAPIKey,
	SMTPPassword,
}

// AuditAction is the kind of secret access recorded in the audit ring.
type AuditAction string

const (
	AuditRead             AuditAction = "read"
	AuditWrite            AuditAction = "write"
	AuditRotationDetected AuditAction = "rotation-detected"
)

// AuditCapacity is the number of entries the audit ring keeps.
const AuditCapacity = 200

// AuditRecord is one entry of the diagnostic access trail. It is bounded and
// in-memory only; it is not a compliance ledger.
type AuditRecord struct {
	Key       string      `json:"key"`
	Action    AuditAction `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
	Provider  string      `json:"provider"`
}

// PreloadResult reports which known secrets resolved to a non-empty value.
type PreloadResult struct {
	Loaded  []string `json:"loaded"`
	Missing []string `json:"missing"`
}

// Status is the secrets vault summary exposed on the admin API.
type Status struct {
	Provider              string `json:"provider"`
	CachedSecrets         int    `json:"cached_secrets"`
	RotationWatcherActive bool   `json:"rotation_watcher_active"`
	KnownKeys             int    `json:"known_keys"`
	AuditEntries          int    `json:"audit_entries"`
}
