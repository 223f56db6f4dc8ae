// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging level, CORS). AppConfig is everything specific to ClarityMDT:
// database connection, sessions, file storage, the Telegram side channel,
// OAuth, and audit logging. The struct is passed to most lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: claritymdt-session)
	SessionDomain string // Cookie domain (blank means current host)

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads/attachments")
	StorageLocalURL  string // URL prefix for serving local files

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region string
	StorageS3Bucket string
	StorageS3Prefix string

	// Telegram side channel
	TelegramBotToken      string // Bot API token; blank disables the side channel
	TelegramWebhookSecret string // Path secret for the webhook endpoint
	TelegramPolling       bool   // Long-poll for updates instead of the webhook

	// Account linking
	LinkCodeExpiry time.Duration // Verification code lifetime

	// PDF preview
	SofficePath string // LibreOffice binary for attachment conversion

	// Audit logging settings: 'all' (db+log), 'db', 'log', or 'off' per category
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogClinical string
	AuditLogTelegram string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callbacks (e.g., "https://mdt.clarityhealth.example")
	BaseURL string
}
