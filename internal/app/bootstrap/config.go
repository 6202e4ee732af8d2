// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for VeriHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: VERIHUB_MONGO_URI, VERIHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "verihub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "verihub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "12h", Desc: "Session lifetime without remember-me"},
	{Name: "session_remember_ttl", Default: "720h", Desc: "Session lifetime with remember-me"},

	// Bearer tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-too-FEDCBA9876543210", Desc: "HMAC secret for first-party API tokens"},
	{Name: "jwt_issuer", Default: "verihub", Desc: "Issuer claim for issued tokens"},
	{Name: "federated_jwks_url", Default: "", Desc: "JWKS endpoint for federated RS256 tokens (blank disables)"},

	// Blob storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 'minio'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded media"},
	{Name: "minio_endpoint", Default: "", Desc: "MinIO/S3 endpoint (host:port)"},
	{Name: "minio_access_key", Default: "", Desc: "MinIO access key"},
	{Name: "minio_secret_key", Default: "", Desc: "MinIO secret key"},
	{Name: "minio_bucket", Default: "verihub-media", Desc: "MinIO bucket for uploaded media"},
	{Name: "minio_use_ssl", Default: true, Desc: "Use TLS for the MinIO connection"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs email instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@verihub.io", Desc: "From email address"},
	{Name: "site_name", Default: "VeriHub", Desc: "Display name used in outbound email"},

	// Registration OTP settings
	{Name: "otp_expiry", Default: "10m", Desc: "Registration code expiry (e.g., 10m, 1h)"},

	// Verification settings
	{Name: "face_match_threshold", Default: 80, Desc: "Face similarity threshold (0-100)"},

	// Biometric provider endpoints
	{Name: "oracle_ocr_url", Default: "", Desc: "OCR provider base URL"},
	{Name: "oracle_face_url", Default: "", Desc: "Face-match provider base URL"},
	{Name: "oracle_liveness_url", Default: "", Desc: "Liveness provider base URL"},
	{Name: "oracle_speaker_url", Default: "", Desc: "Speaker-verification provider base URL"},
	{Name: "oracle_api_key", Default: "", Desc: "API key sent to the biometric providers"},
	{Name: "oracle_timeout", Default: "30s", Desc: "Per-call timeout for provider requests"},

	// Verification logging settings
	{Name: "verify_log_attempts", Default: "all", Desc: "Attempt recording: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "verify_log_auth", Default: "all", Desc: "Auth event logging: 'all', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, VERIHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "VERIHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:         appValues.String("session_key"),
		SessionName:        appValues.String("session_name"),
		SessionDomain:      appValues.String("session_domain"),
		SessionTTL:         appValues.Duration("session_ttl", 12*time.Hour),
		SessionRememberTTL: appValues.Duration("session_remember_ttl", 30*24*time.Hour),

		JWTSecret:        appValues.String("jwt_secret"),
		JWTIssuer:        appValues.String("jwt_issuer"),
		FederatedJWKSURL: appValues.String("federated_jwks_url"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		MinioEndpoint:    appValues.String("minio_endpoint"),
		MinioAccessKey:   appValues.String("minio_access_key"),
		MinioSecretKey:   appValues.String("minio_secret_key"),
		MinioBucket:      appValues.String("minio_bucket"),
		MinioUseSSL:      appValues.Bool("minio_use_ssl"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		SiteName:     appValues.String("site_name"),

		OTPExpiry: appValues.Duration("otp_expiry", 10*time.Minute),

		FaceMatchThreshold: float64(appValues.Int("face_match_threshold")),

		OracleOCRURL:      appValues.String("oracle_ocr_url"),
		OracleFaceURL:     appValues.String("oracle_face_url"),
		OracleLivenessURL: appValues.String("oracle_liveness_url"),
		OracleSpeakerURL:  appValues.String("oracle_speaker_url"),
		OracleAPIKey:      appValues.String("oracle_api_key"),
		OracleTimeout:     appValues.Duration("oracle_timeout", 30*time.Second),

		VerifyLogAttempts: appValues.String("verify_log_attempts"),
		VerifyLogAuth:     appValues.String("verify_log_auth"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// VeriHub validates the MongoDB URI format and the cross-field storage
// invariants early, before attempting any connections.
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
	case "minio":
		if appCfg.MinioEndpoint == "" || appCfg.MinioAccessKey == "" || appCfg.MinioSecretKey == "" {
			return fmt.Errorf("storage_type 'minio' requires minio_endpoint, minio_access_key, and minio_secret_key")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 'minio', got %q", appCfg.StorageType)
	}

	if appCfg.FaceMatchThreshold < 0 || appCfg.FaceMatchThreshold > 100 {
		return fmt.Errorf("face_match_threshold must be between 0 and 100, got %v", appCfg.FaceMatchThreshold)
	}

	return nil
}
