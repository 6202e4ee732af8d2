// Package business serves the verification endpoints a tenant calls
// against its own users: liveness, face re-verification, voice
// verification, composite verdicts, and the verification history. Every
// operation resolves ownership at request time before touching user data.
package business

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lamnbh/verihub/internal/app/policy/tenantpolicy"
	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	attemptstore "github.com/lamnbh/verihub/internal/app/store/attempts"
	documentstore "github.com/lamnbh/verihub/internal/app/store/documents"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/authz"
	"github.com/lamnbh/verihub/internal/app/system/blob"
	"github.com/lamnbh/verihub/internal/app/system/oracle"
	"github.com/lamnbh/verihub/internal/app/system/paging"
	"github.com/lamnbh/verihub/internal/app/system/respond"
	"github.com/lamnbh/verihub/internal/app/system/timeouts"
	"github.com/lamnbh/verihub/internal/app/system/verifylog"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	maxImageSize = 10 << 20
	maxAudioSize = 20 << 20
	maxVideoSize = 50 << 20
)

// Handler holds dependencies for the business verification endpoints.
type Handler struct {
	Accounts      *accountstore.Store
	Documents     *documentstore.Store
	Attempts      *attemptstore.Store
	Blobs         blob.Store
	Liveness      oracle.Liveness
	Faces         oracle.FaceMatcher
	Speaker       oracle.Speaker
	VerifyLog     *verifylog.Logger
	Log           *zap.Logger
	FaceThreshold float64
}

// resolveTargetUser parses the userId form value and asserts the caller
// may act on that user.
func (h *Handler) resolveTargetUser(ctx context.Context, r *http.Request) (primitive.ObjectID, error) {
	raw := r.FormValue("userId")
	if raw == "" {
		return primitive.NilObjectID, apperr.Invalid("userId is required")
	}
	userID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("userId is not a valid id")
	}
	if err := tenantpolicy.AssertOwnership(ctx, h.Accounts, r, userID); err != nil {
		return primitive.NilObjectID, err
	}
	return userID, nil
}

// registeredDocument loads the user's identity document; every
// re-verification needs one.
func (h *Handler) registeredDocument(ctx context.Context, userID primitive.ObjectID) (*models.IdentityDocument, error) {
	doc, err := h.Documents.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user has no registered identity document")
		}
		return nil, apperr.Internal(err)
	}
	return doc, nil
}

func readFilePart(r *http.Request, field string, maxSize int64) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, apperr.Invalid("file field " + field + " is required")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, apperr.Invalid("could not read file field " + field)
	}
	if int64(len(data)) > maxSize {
		return nil, apperr.Invalid("file field " + field + " exceeds the size limit")
	}
	if len(data) == 0 {
		return nil, apperr.Invalid("file field " + field + " is empty")
	}
	return data, nil
}

func (h *Handler) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.Blobs.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HandleLivenessCheck handles POST /business/liveness-check: a short video
// of the user is checked for liveness against their registered document
// front image. A registered document is enough; face enrollment is not
// required. The video is ephemeral; it is removed from blob storage on
// every exit path.
func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := r.ParseMultipartForm(maxVideoSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with userId and video is required"))
		return
	}

	userID, err := h.resolveTargetUser(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	video, err := readFilePart(r, "video", maxVideoSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	doc, err := h.registeredDocument(ctx, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	reference, err := h.readBlob(ctx, doc.IDFrontURL)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	videoKey := blob.Key("liveness", userID.Hex(), "check.mp4")
	if err := h.Blobs.Upload(ctx, videoKey, bytes.NewReader(video), int64(len(video)), "video/mp4"); err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	defer h.releaseBlob(videoKey)

	res, err := h.Liveness.Check(ctx, reference, video)
	if err != nil {
		// Failed oracle call: no verdict, no ledger entry.
		respond.Error(w, h.Log, err)
		return
	}

	passed := res.IsLive && res.IsMatch
	businessID := h.callerBusinessID(r)
	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		BusinessID: businessID,
		Type:       models.AttemptLiveness,
		StepPassed: passed,
		Liveness: &models.LivenessOutcome{
			IsLive:           res.IsLive,
			IsMatch:          res.IsMatch,
			Similarity:       res.Similarity,
			SpoofProbability: res.SpoofProbability,
		},
	})

	respond.JSON(w, http.StatusOK, map[string]any{
		"passed":            passed,
		"is_live":           res.IsLive,
		"is_match":          res.IsMatch,
		"similarity":        res.Similarity,
		"spoof_probability": res.SpoofProbability,
	})
}

// HandleVerifyFace handles POST /business/verify-face: a fresh photo is
// matched against the user's registered ID front image.
func (h *Handler) HandleVerifyFace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with userId and photo is required"))
		return
	}

	userID, err := h.resolveTargetUser(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	photo, err := readFilePart(r, "photo", maxImageSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	doc, err := h.registeredDocument(ctx, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	reference, err := h.readBlob(ctx, doc.IDFrontURL)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	res, err := h.Faces.Compare(ctx, reference, photo)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	passed := res.Similarity >= h.FaceThreshold
	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		BusinessID: h.callerBusinessID(r),
		Type:       models.AttemptFaceMatch,
		StepPassed: passed,
		FaceMatch:  &models.FaceMatchOutcome{IsMatch: passed, Similarity: res.Similarity},
	})

	respond.JSON(w, http.StatusOK, map[string]any{
		"passed":     passed,
		"similarity": res.Similarity,
	})
}

// HandleVerifyVoice handles POST /business/verify-voice: an audio sample
// is verified against the user's stored speaker profile.
func (h *Handler) HandleVerifyVoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := r.ParseMultipartForm(maxAudioSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with userId and audio is required"))
		return
	}

	userID, err := h.resolveTargetUser(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	audio, err := readFilePart(r, "audio", maxAudioSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	doc, err := h.registeredDocument(ctx, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !doc.VoiceEnrolled() {
		respond.Error(w, h.Log, apperr.Conflict("user has not completed voice enrollment"))
		return
	}

	res, err := h.Speaker.Verify(ctx, doc.VoiceProfileRef, audio)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		BusinessID: h.callerBusinessID(r),
		Type:       models.AttemptVoice,
		StepPassed: res.IsMatch,
		Voice:      &models.VoiceOutcome{IsMatch: res.IsMatch, Score: res.Score},
	})

	respond.JSON(w, http.StatusOK, map[string]any{
		"passed": res.IsMatch,
		"score":  res.Score,
	})
}

// HandleVerificationResult handles POST /business/verification-result: the
// caller composes the verdict of the checks it ran (logical AND) and the
// composite lands in the ledger alongside the per-check entries.
func (h *Handler) HandleVerificationResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Passed *bool  `json:"passed"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("malformed JSON body"))
		return
	}
	if req.UserID == "" || req.Passed == nil {
		respond.Error(w, h.Log, apperr.Invalid("user_id and passed are required"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Invalid("user_id is not a valid id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := tenantpolicy.AssertOwnership(ctx, h.Accounts, r, userID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		BusinessID: h.callerBusinessID(r),
		Type:       models.AttemptComposite,
		StepPassed: *req.Passed,
	})

	respond.JSON(w, http.StatusOK, map[string]any{"recorded": true, "passed": *req.Passed})
}

// HandleVerificationLog handles GET /business/verification-log: attempts
// for the caller's owned users, newest first, paginated. The owned-user
// set is resolved on every request.
func (h *Handler) HandleVerificationLog(w http.ResponseWriter, r *http.Request) {
	scope := tenantpolicy.OwnedScope(r)
	if !scope.CanList {
		respond.Error(w, h.Log, apperr.Forbidden("not allowed to read the verification log"))
		return
	}

	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userIDs, err := h.Accounts.OwnedUserIDs(ctx, scope.BusinessID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	attempts, err := h.Attempts.ListForUsers(ctx, userIDs, page.Limit, page.Offset)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	total, err := h.Attempts.CountForUsers(ctx, userIDs)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"attempts": attempts,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// HandleListUsers handles GET /business/users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	scope := tenantpolicy.OwnedScope(r)
	if !scope.CanList {
		respond.Error(w, h.Log, apperr.Forbidden("not allowed to list users"))
		return
	}

	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Accounts.ListOwned(ctx, scope.BusinessID, page.Limit, page.Offset)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"users":  users,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// HandleUpdateAPIKey handles PATCH /business/update-api-key: rotates the
// caller's API key. The old key stops working immediately.
func (h *Handler) HandleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	role, accountID, ok := authz.UserCtx(r)
	if !ok || (role != "business" && role != "admin") {
		respond.Error(w, h.Log, apperr.Forbidden("only business and admin accounts hold api keys"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	key, err := h.Accounts.RotateAPIKey(ctx, accountID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.NotFound("account not found"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	h.Log.Info("api key rotated", zap.String("account_id", accountID.Hex()), zap.String("role", role))
	respond.JSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (h *Handler) callerBusinessID(r *http.Request) *primitive.ObjectID {
	role, id, ok := authz.UserCtx(r)
	if !ok || role != "business" {
		return nil
	}
	return &id
}

// releaseBlob removes an ephemeral upload once the check is over,
// whatever the outcome was.
func (h *Handler) releaseBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	if err := h.Blobs.Delete(ctx, key); err != nil {
		h.Log.Warn("failed to release blob", zap.String("key", key), zap.Error(err))
	}
}
