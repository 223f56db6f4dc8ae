// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ClarityMDT.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CLARITYMDT_MONGO_URI, CLARITYMDT_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "claritymdt", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "claritymdt-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/attachments", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files/attachments", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "attachments/", Desc: "S3 key prefix"},

	// Telegram side channel
	{Name: "telegram_bot_token", Default: "", Desc: "Telegram Bot API token (blank disables the side channel)"},
	{Name: "telegram_webhook_secret", Default: "", Desc: "Path secret for the Telegram webhook endpoint"},
	{Name: "telegram_polling", Default: false, Desc: "Long-poll the Bot API for updates instead of using the webhook"},

	// Account linking
	{Name: "link_code_expiry", Default: "10m", Desc: "Telegram verification code expiry (e.g., 10m, 1h)"},

	// PDF preview
	{Name: "soffice_path", Default: "", Desc: "LibreOffice binary path for attachment PDF previews (blank uses PATH)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_clinical", Default: "all", Desc: "Clinical event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_telegram", Default: "all", Desc: "Telegram event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Base URL for OAuth callbacks
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for OAuth callbacks"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CLARITYMDT_* for app), and
// command-line flags, merged with precedence: flags > env > files >
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLARITYMDT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),

		TelegramBotToken:      appValues.String("telegram_bot_token"),
		TelegramWebhookSecret: appValues.String("telegram_webhook_secret"),
		TelegramPolling:       appValues.Bool("telegram_polling"),

		LinkCodeExpiry: appValues.Duration("link_code_expiry", 10*time.Minute),

		SofficePath: appValues.String("soffice_path"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogClinical: appValues.String("audit_log_clinical"),
		AuditLogTelegram: appValues.String("audit_log_telegram"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		BaseURL: appValues.String("base_url"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Catching configuration errors here, before connecting to anything, beats
// a half-started server.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type 'local' requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Region == "" || appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type 's3' requires storage_s3_region and storage_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 's3')", appCfg.StorageType)
	}

	// The webhook endpoint is unauthenticated apart from the path secret,
	// so a bot token without either a secret or polling is a misconfig.
	if appCfg.TelegramBotToken != "" && !appCfg.TelegramPolling && appCfg.TelegramWebhookSecret == "" {
		return fmt.Errorf("telegram_bot_token is set: enable telegram_polling or set telegram_webhook_secret")
	}

	if appCfg.LinkCodeExpiry <= 0 {
		return fmt.Errorf("link_code_expiry must be positive")
	}

	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		return fmt.Errorf("google_client_id and google_client_secret must be set together")
	}

	return nil
}
