// Package admin serves platform administration: account listings, ban
// management, and business onboarding.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/normalize"
	"github.com/lamnbh/verihub/internal/app/system/paging"
	"github.com/lamnbh/verihub/internal/app/system/respond"
	"github.com/lamnbh/verihub/internal/app/system/timeouts"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler holds dependencies for the admin endpoints.
type Handler struct {
	Accounts *accountstore.Store
	Log      *zap.Logger
}

func NewHandler(accounts *accountstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Accounts: accounts, Log: logger}
}

// HandleListAccounts handles GET /admin/accounts.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	accounts, err := h.Accounts.List(ctx, page.Limit, page.Offset)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// HandleSetBanned handles PATCH /admin/accounts/{id}/ban with body
// {"banned": true|false}. Banned accounts fail login on their next attempt.
func (h *Handler) HandleSetBanned(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, apperr.Invalid("account id is not a valid id"))
		return
	}

	var req struct {
		Banned *bool `json:"banned"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(&req); err != nil || req.Banned == nil {
		respond.Error(w, h.Log, apperr.Invalid(`body must be {"banned": true|false}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Accounts.SetBanned(ctx, id, *req.Banned); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.NotFound("account not found"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	h.Log.Info("account ban updated",
		zap.String("account_id", id.Hex()),
		zap.Bool("banned", *req.Banned))
	respond.JSON(w, http.StatusOK, map[string]any{"id": id.Hex(), "banned": *req.Banned})
}

// HandleCreateBusiness handles POST /admin/businesses: onboards a business
// tenant and returns its first API key.
func (h *Handler) HandleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("malformed JSON body"))
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
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	acct, err := h.Accounts.Create(ctx, models.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleBusiness,
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

	// The first key is issued on creation; the business rotates it later.
	key, err := h.Accounts.RotateAPIKey(ctx, acct.ID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	h.Log.Info("business onboarded",
		zap.String("business_id", acct.ID.Hex()),
		zap.String("email", acct.Email))
	respond.JSON(w, http.StatusCreated, map[string]any{
		"id":       acct.ID.Hex(),
		"username": acct.Username,
		"email":    acct.Email,
		"role":     acct.Role,
		"api_key":  key,
	})
}
