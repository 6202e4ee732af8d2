// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and request limits. AppConfig is where
// everything specific to VeriHub lives: the Mongo connection, session
// and token secrets, blob storage, the mail relay, and the biometric
// provider endpoints.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey         string        // Secret key for signing session cookies (must be strong in production)
	SessionName        string        // Cookie name for sessions
	SessionDomain      string        // Cookie domain (blank means current host)
	SessionTTL         time.Duration // Session lifetime without remember-me
	SessionRememberTTL time.Duration // Session lifetime with remember-me

	// Bearer token configuration
	JWTSecret        string // HMAC secret for first-party API tokens
	JWTIssuer        string
	FederatedJWKSURL string // JWKS endpoint for federated RS256 tokens (blank disables)

	// Blob storage configuration
	StorageType      string // Storage backend: "local" or "minio"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	SiteName     string // Display name used in outbound email

	// Registration OTP settings
	OTPExpiry time.Duration

	// Verification settings
	FaceMatchThreshold float64 // Similarity threshold (0-100) for face checks

	// Biometric provider endpoints
	OracleOCRURL      string
	OracleFaceURL     string
	OracleLivenessURL string
	OracleSpeakerURL  string
	OracleAPIKey      string
	OracleTimeout     time.Duration

	// Verification logging settings
	VerifyLogAttempts string // "all", "db", "log", or "off"
	VerifyLogAuth     string // "all", "log", or "off"
}
