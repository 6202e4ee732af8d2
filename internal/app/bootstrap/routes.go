// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	minioclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	adminfeature "github.com/lamnbh/verihub/internal/app/features/admin"
	authapifeature "github.com/lamnbh/verihub/internal/app/features/authapi"
	businessfeature "github.com/lamnbh/verihub/internal/app/features/business"
	ekycfeature "github.com/lamnbh/verihub/internal/app/features/ekyc"
	healthfeature "github.com/lamnbh/verihub/internal/app/features/health"
	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	attemptstore "github.com/lamnbh/verihub/internal/app/store/attempts"
	documentstore "github.com/lamnbh/verihub/internal/app/store/documents"
	otpstore "github.com/lamnbh/verihub/internal/app/store/otps"
	"github.com/lamnbh/verihub/internal/app/system/auth"
	"github.com/lamnbh/verihub/internal/app/system/blob"
	"github.com/lamnbh/verihub/internal/app/system/mailer"
	"github.com/lamnbh/verihub/internal/app/system/oracle"
	"github.com/lamnbh/verihub/internal/app/system/ratelimit"
	"github.com/lamnbh/verihub/internal/app/system/verifylog"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. VeriHub builds the session manager and
// token service, the blob store, the biometric provider clients, and the
// Mongo-backed stores, then mounts the feature routers: auth, ekyc
// enrollment, business verification, admin, and health.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Bearer tokens: HMAC for first-party clients, optional JWKS for
	// federated identity providers.
	tokens := auth.NewTokenService(appCfg.JWTSecret, appCfg.JWTIssuer, logger)
	if appCfg.FederatedJWKSURL != "" {
		if err := tokens.EnableFederated(context.Background(), appCfg.FederatedJWKSURL); err != nil {
			logger.Error("federated token setup failed", zap.Error(err))
			return nil, err
		}
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionTTL, appCfg.SessionRememberTTL,
		secure, tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	blobs, err := buildBlobStore(appCfg, logger)
	if err != nil {
		logger.Error("blob store init failed", zap.Error(err))
		return nil, err
	}

	// Mongo-backed stores.
	accounts := accountstore.New(deps.MongoDatabase)
	documents := documentstore.New(deps.MongoDatabase)
	attempts := attemptstore.New(deps.MongoDatabase)
	otps := otpstore.New(deps.MongoDatabase, appCfg.OTPExpiry)

	vlog := verifylog.New(attempts, logger, verifylog.Config{
		Attempts: appCfg.VerifyLogAttempts,
		Auth:     appCfg.VerifyLogAuth,
	})

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
	}, logger)

	// Biometric provider clients.
	ocr := oracle.NewHTTPOCR(oracle.Config{
		BaseURL: appCfg.OracleOCRURL, APIKey: appCfg.OracleAPIKey, Timeout: appCfg.OracleTimeout,
	}, logger)
	faces := oracle.NewHTTPFaceMatcher(oracle.Config{
		BaseURL: appCfg.OracleFaceURL, APIKey: appCfg.OracleAPIKey, Timeout: appCfg.OracleTimeout,
	}, logger)
	liveness := oracle.NewHTTPLiveness(oracle.Config{
		BaseURL: appCfg.OracleLivenessURL, APIKey: appCfg.OracleAPIKey, Timeout: appCfg.OracleTimeout,
	}, logger)
	speaker := oracle.NewHTTPSpeaker(oracle.Config{
		BaseURL: appCfg.OracleSpeakerURL, APIKey: appCfg.OracleAPIKey, Timeout: appCfg.OracleTimeout,
	}, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the principal into context from the
	// session cookie or a bearer token.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Get("/health", healthHandler.Serve)

	// Authentication and registration. Login attempts are rate limited per
	// IP and per email.
	loginLimiter := ratelimit.NewLoginLimiter()
	authHandler := authapifeature.NewHandler(accounts, otps, mail, sessionMgr, vlog, loginLimiter, logger, appCfg.SiteName)
	r.Mount("/auth", authapifeature.Routes(authHandler))

	// End-user enrollment pipeline.
	ekycHandler := &ekycfeature.Handler{
		Documents:     documents,
		Blobs:         blobs,
		OCR:           ocr,
		Faces:         faces,
		Speaker:       speaker,
		VerifyLog:     vlog,
		Log:           logger,
		FaceThreshold: appCfg.FaceMatchThreshold,
	}
	r.Mount("/ekyc", ekycfeature.Routes(ekycHandler, sessionMgr))

	// Business verification endpoints.
	businessHandler := &businessfeature.Handler{
		Accounts:      accounts,
		Documents:     documents,
		Attempts:      attempts,
		Blobs:         blobs,
		Liveness:      liveness,
		Faces:         faces,
		Speaker:       speaker,
		VerifyLog:     vlog,
		Log:           logger,
		FaceThreshold: appCfg.FaceMatchThreshold,
	}
	r.Mount("/business", businessfeature.Routes(businessHandler, sessionMgr))

	// Platform administration.
	adminHandler := adminfeature.NewHandler(accounts, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler, sessionMgr))

	return r, nil
}

func buildBlobStore(appCfg AppConfig, logger *zap.Logger) (blob.Store, error) {
	switch appCfg.StorageType {
	case "minio":
		client, err := minioclient.New(appCfg.MinioEndpoint, &minioclient.Options{
			Creds:  credentials.NewStaticV4(appCfg.MinioAccessKey, appCfg.MinioSecretKey, ""),
			Secure: appCfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		logger.Info("using minio blob storage",
			zap.String("endpoint", appCfg.MinioEndpoint),
			zap.String("bucket", appCfg.MinioBucket))
		return blob.NewMinio(context.Background(), client, appCfg.MinioBucket)
	default:
		logger.Info("using local blob storage", zap.String("path", appCfg.StorageLocalPath))
		return blob.NewLocal(appCfg.StorageLocalPath)
	}
}
