// Package ekyc serves the end-user enrollment pipeline: national ID
// registration, face enrollment, and voice enrollment. The stages are
// strictly ordered and each transition is written with a conditional
// update so a repeated success surfaces as a Conflict instead of
// silently rewriting biometric state.
package ekyc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	documentstore "github.com/lamnbh/verihub/internal/app/store/documents"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/authz"
	"github.com/lamnbh/verihub/internal/app/system/blob"
	"github.com/lamnbh/verihub/internal/app/system/oracle"
	"github.com/lamnbh/verihub/internal/app/system/respond"
	"github.com/lamnbh/verihub/internal/app/system/timeouts"
	"github.com/lamnbh/verihub/internal/app/system/verifylog"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	maxImageSize = 10 << 20 // 10 MiB per ID/face image
	maxAudioSize = 20 << 20 // 20 MiB per voice sample
)

// Handler holds dependencies for the enrollment endpoints.
type Handler struct {
	Documents     *documentstore.Store
	Blobs         blob.Store
	OCR           oracle.OCR
	Faces         oracle.FaceMatcher
	Speaker       oracle.Speaker
	VerifyLog     *verifylog.Logger
	Log           *zap.Logger
	FaceThreshold float64
}

// allowedImageTypes is the MIME whitelist for uploaded document and face
// images. Types are sniffed from content, not taken from the client.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// readFilePart reads one uploaded file from an already-parsed multipart
// form, bounded by maxSize.
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

func requireImage(field string, data []byte) error {
	if !allowedImageTypes[http.DetectContentType(data)] {
		return apperr.Invalid(field + " must be a JPEG, PNG, or WebP image")
	}
	return nil
}

func currentUserID(r *http.Request) (primitive.ObjectID, error) {
	_, id, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("sign in required")
	}
	return id, nil
}

// documentResponse is the client view of an identity document. Blob keys
// stay internal.
type documentResponse struct {
	IDNumber      string `json:"id_number"`
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Verified      bool   `json:"verified"`
	FaceEnrolled  bool   `json:"face_enrolled"`
	VoiceEnrolled bool   `json:"voice_enrolled"`
	Complete      bool   `json:"enrollment_complete"`
}

func documentView(d *models.IdentityDocument) documentResponse {
	return documentResponse{
		IDNumber:      d.IDNumber,
		FullName:      d.FullName,
		DateOfBirth:   d.DateOfBirth,
		Verified:      d.Verified,
		FaceEnrolled:  d.FaceEnrolled(),
		VoiceEnrolled: d.VoiceEnrolled(),
		Complete:      d.EnrollmentComplete(),
	}
}

// HandleValidateCCCD handles POST /ekyc/cccd/validate: multipart idFront +
// idBack images, OCR extraction, and document registration.
func (h *Handler) HandleValidateCCCD(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := r.ParseMultipartForm(2 * maxImageSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with idFront and idBack is required"))
		return
	}

	front, err := readFilePart(r, "idFront", maxImageSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	back, err := readFilePart(r, "idBack", maxImageSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := requireImage("idFront", front); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := requireImage("idBack", back); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	info, err := h.OCR.ReadDocument(ctx, front, back)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	frontKey := blob.Key("cccd", userID.Hex(), "front.jpg")
	backKey := blob.Key("cccd", userID.Hex(), "back.jpg")
	if err := h.Blobs.Upload(ctx, frontKey, bytesReader(front), int64(len(front)), http.DetectContentType(front)); err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	if err := h.Blobs.Upload(ctx, backKey, bytesReader(back), int64(len(back)), http.DetectContentType(back)); err != nil {
		h.cleanupBlob(frontKey)
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	doc, err := h.Documents.Create(ctx, models.IdentityDocument{
		UserID:      userID,
		IDNumber:    info.IDNumber,
		FullName:    info.FullName,
		DateOfBirth: info.DateOfBirth,
		IDFrontURL:  frontKey,
		IDBackURL:   backKey,
		Verified:    true,
	})
	if err != nil {
		// The scans are orphaned if the record didn't land; remove them.
		h.cleanupBlob(frontKey)
		h.cleanupBlob(backKey)
		switch {
		case errors.Is(err, documentstore.ErrDuplicateIDNumber),
			errors.Is(err, documentstore.ErrDuplicateUserDocument):
			respond.Error(w, h.Log, apperr.Wrap(apperr.CodeConflict, err.Error(), err))
		default:
			respond.Error(w, h.Log, apperr.Internal(err))
		}
		return
	}

	respond.JSON(w, http.StatusCreated, documentView(&doc))
}

// HandleCCCDInfo handles GET /ekyc/cccd/info.
func (h *Handler) HandleCCCDInfo(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Documents.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.NotFound("no identity document registered"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	respond.JSON(w, http.StatusOK, documentView(doc))
}

// HandleFaceVerify handles POST /ekyc/face-verify: a live photo is matched
// against the registered ID front image; at or above the similarity
// threshold the photo becomes the enrolled face, exactly once.
func (h *Handler) HandleFaceVerify(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with a photo file is required"))
		return
	}
	photo, err := readFilePart(r, "photo", maxImageSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := requireImage("photo", photo); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	doc, err := h.Documents.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.NotFound("register an identity document first"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	reference, err := h.readBlob(ctx, doc.IDFrontURL)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	res, err := h.Faces.Compare(ctx, reference, photo)
	if err != nil {
		// A failed oracle call is not a completed check; nothing is logged.
		respond.Error(w, h.Log, err)
		return
	}

	passed := res.Similarity >= h.FaceThreshold
	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		Type:       models.AttemptFaceMatch,
		StepPassed: passed,
		FaceMatch:  &models.FaceMatchOutcome{IsMatch: passed, Similarity: res.Similarity},
	})

	if !passed {
		respond.JSON(w, http.StatusOK, map[string]any{
			"passed":     false,
			"similarity": res.Similarity,
		})
		return
	}

	faceKey := blob.Key("face", userID.Hex(), "photo.jpg")
	if err := h.Blobs.Upload(ctx, faceKey, bytesReader(photo), int64(len(photo)), http.DetectContentType(photo)); err != nil {
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}

	if err := h.Documents.SetFaceURL(ctx, userID, faceKey); err != nil {
		h.cleanupBlob(faceKey)
		switch {
		case errors.Is(err, documentstore.ErrAlreadyEnrolled):
			respond.Error(w, h.Log, apperr.Conflict("face is already enrolled"))
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, h.Log, apperr.NotFound("register an identity document first"))
		default:
			respond.Error(w, h.Log, apperr.Internal(err))
		}
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"passed":     true,
		"similarity": res.Similarity,
	})
}

// HandleVoiceCollect handles POST /ekyc/voice-collect: creates a speaker
// profile, enrolls the sample, and stores the profile reference, exactly
// once. Voice enrollment has no score gate; the provider accepts or
// rejects the sample during profile training.
func (h *Handler) HandleVoiceCollect(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := r.ParseMultipartForm(maxAudioSize); err != nil {
		respond.Error(w, h.Log, apperr.Invalid("multipart form with an audio file is required"))
		return
	}
	audio, err := readFilePart(r, "audio", maxAudioSize)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	doc, err := h.Documents.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, h.Log, apperr.NotFound("register an identity document first"))
			return
		}
		respond.Error(w, h.Log, apperr.Internal(err))
		return
	}
	if !doc.FaceEnrolled() {
		respond.Error(w, h.Log, apperr.Conflict("face enrollment must be completed first"))
		return
	}
	if doc.VoiceEnrolled() {
		respond.Error(w, h.Log, apperr.Conflict("voice is already enrolled"))
		return
	}

	profileRef, err := h.Speaker.CreateProfile(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Speaker.EnrollSample(ctx, profileRef, audio); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := h.Documents.SetVoiceProfileRef(ctx, userID, profileRef); err != nil {
		switch {
		case errors.Is(err, documentstore.ErrAlreadyEnrolled):
			respond.Error(w, h.Log, apperr.Conflict("voice is already enrolled"))
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, h.Log, apperr.NotFound("register an identity document first"))
		default:
			respond.Error(w, h.Log, apperr.Internal(err))
		}
		return
	}

	h.VerifyLog.Record(ctx, models.VerificationAttempt{
		UserID:     &userID,
		Type:       models.AttemptVoice,
		StepPassed: true,
		Voice:      &models.VoiceOutcome{IsMatch: true},
	})

	respond.JSON(w, http.StatusOK, map[string]any{
		"enrolled":            true,
		"enrollment_complete": true,
	})
}

func (h *Handler) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.Blobs.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// cleanupBlob removes an orphaned upload. Best effort: a leaked blob is a
// storage cost, not a correctness problem.
func (h *Handler) cleanupBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	if err := h.Blobs.Delete(ctx, key); err != nil {
		h.Log.Warn("failed to clean up blob", zap.String("key", key), zap.Error(err))
	}
}
