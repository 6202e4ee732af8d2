// Package authapi serves account registration and sign-in for all three
// roles. Registration for end users is OTP-gated: a code goes to the
// email, and the register call must present it together with the API key
// of the business the user will belong to.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	otpstore "github.com/lamnbh/verihub/internal/app/store/otps"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/auth"
	"github.com/lamnbh/verihub/internal/app/system/mailer"
	"github.com/lamnbh/verihub/internal/app/system/normalize"
	"github.com/lamnbh/verihub/internal/app/system/ratelimit"
	"github.com/lamnbh/verihub/internal/app/system/respond"
	"github.com/lamnbh/verihub/internal/app/system/timeouts"
	"github.com/lamnbh/verihub/internal/app/system/verifylog"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler holds dependencies for the auth endpoints.
type Handler struct {
	Accounts   *accountstore.Store
	OTPs       *otpstore.Store
	Mailer     *mailer.Mailer
	SessionMgr *auth.SessionManager
	VerifyLog  *verifylog.Logger
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
	SiteName   string
}

func NewHandler(
	accounts *accountstore.Store,
	otps *otpstore.Store,
	mail *mailer.Mailer,
	sessionMgr *auth.SessionManager,
	vlog *verifylog.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
	siteName string,
) *Handler {
	return &Handler{
		Accounts:   accounts,
		OTPs:       otps,
		Mailer:     mail,
		SessionMgr: sessionMgr,
		VerifyLog:  vlog,
		Limiter:    limiter,
		Log:        logger,
		SiteName:   siteName,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("malformed JSON body")
	}
	return nil
}

// HandleSendOTP handles POST /auth/otp/send.
func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		respond.Error(w, h.Log, apperr.Invalid("a valid email is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	code, err := h.OTPs.Issue(ctx, email)
	if err != nil {
		if errors.Is(err, otpstore.ErrResendTooSoon) {
			respond.Error(w, h.Log, apperr.Conflict("a code was sent recently, try again shortly"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	msg := mailer.BuildOTPEmail(mailer.OTPEmailData{
		SiteName:  h.SiteName,
		Code:      code,
		ExpiresIn: formatExpiry(h.OTPs.Expiry()),
	})
	msg.To = email
	if err := h.Mailer.Send(msg); err != nil {
		h.Log.Error("failed to send registration code", zap.Error(err), zap.String("email", email))
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	h.VerifyLog.OTPSent(r, email)
	respond.JSON(w, http.StatusOK, map[string]string{"message": "code sent"})
}

// HandleRegister handles POST /auth/register. End users register with an
// OTP plus the API key of their owning business.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
		APIKey   string `json:"api_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	req.Username = normalize.Username(req.Username)
	req.Email = normalize.Email(req.Email)
	switch {
	case req.Username == "":
		respond.Error(w, h.Log, apperr.Invalid("username is required"))
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		respond.Error(w, h.Log, apperr.Invalid("a valid email is required"))
		return
	case len(req.Password) < 8:
		respond.Error(w, h.Log, apperr.Invalid("password must be at least 8 characters"))
		return
	case req.OTP == "":
		respond.Error(w, h.Log, apperr.Invalid("verification code is required"))
		return
	case req.APIKey == "":
		respond.Error(w, h.Log, apperr.Invalid("business api key is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.OTPs.Verify(ctx, req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, otpstore.ErrNotFound), errors.Is(err, otpstore.ErrInvalidCode):
			respond.Error(w, h.Log, apperr.Invalid("invalid or expired verification code"))
		case errors.Is(err, otpstore.ErrTooManyAttempts):
			respond.Error(w, h.Log, apperr.Invalid("too many attempts, request a new code"))
		default:
			respond.Error(w, h.Log, apperr.Internal(err))
		}
		return
	}

	// The API key identifies the business that will own this user.
	biz, err := h.Accounts.GetByAPIKey(ctx, req.APIKey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.Invalid("unknown business api key"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	acct, err := h.Accounts.Create(ctx, models.Account{
		Username:        req.Username,
		Email:           req.Email,
		PasswordHash:    string(hash),
		Role:            models.RoleUser,
		OwnerBusinessID: &biz.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, accountstore.ErrDuplicateEmail),
			errors.Is(err, accountstore.ErrDuplicateUsername):
			respond.Error(w, h.Log, apperr.Wrap(apperr.CodeConflict, err.Error(), err))
		default:
			respond.Error(w, h.Log, apperr.Internal(err))
		}
		return
	}

	h.VerifyLog.Registered(r, acct.ID, acct.Email, acct.OwnerBusinessID)
	respond.JSON(w, http.StatusCreated, accountView(acct))
}

// HandleLogin handles POST /auth/login. Success sets the session cookie and
// returns a bearer token for non-browser clients.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	email := normalize.Email(req.Email)
	if h.Limiter != nil {
		if err := h.Limiter.Check(r, email); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	acct, err := h.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// The audit trail distinguishes failure reasons; the client
			// never does.
			h.VerifyLog.LoginFailedUnknownEmail(r, email)
			respond.Error(w, h.Log, apperr.Unauthorized("invalid email or password"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		h.VerifyLog.LoginFailedWrongPassword(r, acct.ID, email)
		respond.Error(w, h.Log, apperr.Unauthorized("invalid email or password"))
		return
	}

	if acct.IsBanned {
		h.VerifyLog.LoginFailedBanned(r, acct.ID, email)
		respond.Error(w, h.Log, apperr.Forbidden("account is banned"))
		return
	}

	su := sessionUser(acct)
	if err := h.SessionMgr.SignIn(w, r, su, req.RememberMe); err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	token, err := h.SessionMgr.Tokens().Issue(su, h.SessionMgr.TTL(req.RememberMe))
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.VerifyLog.LoginSuccess(r, acct.ID, email)
	respond.JSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"account": accountView(*acct),
	})
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apperr.Unauthorized("sign in required"))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{
		"id":                u.ID,
		"username":          u.Username,
		"email":             u.Email,
		"role":              u.Role,
		"owner_business_id": u.OwnerBusinessID,
	})
}

func sessionUser(a *models.Account) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:       a.ID.Hex(),
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
	if a.OwnerBusinessID != nil {
		su.OwnerBusinessID = a.OwnerBusinessID.Hex()
	}
	return su
}

type accountResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	OwnerBusinessID string `json:"owner_business_id,omitempty"`
}

func accountView(a models.Account) accountResponse {
	v := accountResponse{
		ID:       a.ID.Hex(),
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
	if a.OwnerBusinessID != nil {
		v.OwnerBusinessID = a.OwnerBusinessID.Hex()
	}
	return v
}

func formatExpiry(d time.Duration) string {
	mins := int(d.Round(time.Minute).Minutes())
	if mins <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
