// internal/app/system/verifylog/logger.go
package verifylog

import (
	"context"
	"net/http"

	attemptstore "github.com/lamnbh/verihub/internal/app/store/attempts"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds verification logging configuration.
type Config struct {
	// Attempts controls where completed verification checks are recorded.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled).
	// Production runs "all" or "db"; anything else forfeits the queryable history.
	Attempts string
	// Auth controls zap logging for authentication events (login, OTP, registration).
	// Values: "all"/"log" (enabled), "off" (disabled).
	Auth string
}

// Logger records completed verification checks to the attempts ledger and
// mirrors them to structured logs. Authentication events go to zap only;
// they carry failure reasons the client responses deliberately omit.
type Logger struct {
	store  *attemptstore.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new verification Logger.
func New(store *attemptstore.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(a models.VerificationAttempt) {
	fields := []zap.Field{
		zap.Bool("verification", true),
		zap.String("type", a.Type),
		zap.Bool("step_passed", a.StepPassed),
	}
	if a.UserID != nil {
		fields = append(fields, zap.String("user_id", a.UserID.Hex()))
	}
	if a.BusinessID != nil {
		fields = append(fields, zap.String("business_id", a.BusinessID.Hex()))
	}
	if a.FaceMatch != nil {
		fields = append(fields, zap.Float64("similarity", a.FaceMatch.Similarity))
	}
	if a.Liveness != nil {
		fields = append(fields,
			zap.Bool("is_live", a.Liveness.IsLive),
			zap.Float64("spoof_probability", a.Liveness.SpoofProbability))
	}
	if a.Voice != nil {
		fields = append(fields, zap.Float64("score", a.Voice.Score))
	}

	if a.StepPassed {
		l.zapLog.Info("verification attempt", fields...)
	} else {
		l.zapLog.Warn("verification attempt", fields...)
	}
}

// Record persists a completed check per configuration. A check is
// "completed" when the oracle produced a verdict; failed oracle calls
// must not reach this method.
// If the logger is nil, this is a no-op (allows tests to use nil logger).
func (l *Logger) Record(ctx context.Context, a models.VerificationAttempt) {
	if l == nil {
		return
	}

	setting := l.config.Attempts
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(a)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Append(ctx, &a); err != nil {
			l.zapLog.Error("failed to store verification attempt",
				zap.Error(err),
				zap.String("type", a.Type),
			)
		}
	}
}

func (l *Logger) authEnabled() bool {
	return l != nil && l.config.Auth != "off"
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(r *http.Request, accountID primitive.ObjectID, email string) {
	if !l.authEnabled() {
		return
	}
	l.zapLog.Info("login succeeded",
		zap.String("account_id", accountID.Hex()),
		zap.String("email", email),
		zap.String("ip", getClientIP(r)),
		zap.String("user_agent", r.UserAgent()))
}

// LoginFailedUnknownEmail logs a login attempt against an unknown email.
func (l *Logger) LoginFailedUnknownEmail(r *http.Request, email string) {
	if !l.authEnabled() {
		return
	}
	l.zapLog.Warn("login failed",
		zap.String("reason", "unknown email"),
		zap.String("email", email),
		zap.String("ip", getClientIP(r)))
}

// LoginFailedWrongPassword logs a login attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(r *http.Request, accountID primitive.ObjectID, email string) {
	if !l.authEnabled() {
		return
	}
	l.zapLog.Warn("login failed",
		zap.String("reason", "wrong password"),
		zap.String("account_id", accountID.Hex()),
		zap.String("email", email),
		zap.String("ip", getClientIP(r)))
}

// LoginFailedBanned logs a login attempt against a banned account.
func (l *Logger) LoginFailedBanned(r *http.Request, accountID primitive.ObjectID, email string) {
	if !l.authEnabled() {
		return
	}
	l.zapLog.Warn("login failed",
		zap.String("reason", "account banned"),
		zap.String("account_id", accountID.Hex()),
		zap.String("email", email),
		zap.String("ip", getClientIP(r)))
}

// OTPSent logs a registration code send.
func (l *Logger) OTPSent(r *http.Request, email string) {
	if !l.authEnabled() {
		return
	}
	l.zapLog.Info("registration code sent",
		zap.String("email", email),
		zap.String("ip", getClientIP(r)))
}

// Registered logs a completed registration.
func (l *Logger) Registered(r *http.Request, accountID primitive.ObjectID, email string, ownerBusinessID *primitive.ObjectID) {
	if !l.authEnabled() {
		return
	}
	fields := []zap.Field{
		zap.String("account_id", accountID.Hex()),
		zap.String("email", email),
		zap.String("ip", getClientIP(r)),
	}
	if ownerBusinessID != nil {
		fields = append(fields, zap.String("owner_business_id", ownerBusinessID.Hex()))
	}
	l.zapLog.Info("account registered", fields...)
}
