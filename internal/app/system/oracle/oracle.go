// Package oracle wraps the external biometric providers: OCR for ID
// documents, face matching, liveness detection, and speaker
// verification.
//
// The contract with callers is strict: a client either returns a parsed
// verdict (pass or fail, both are completed checks) or an
// apperr.External error. Transport failures, non-2xx responses, and
// malformed payloads all surface as External; provider response bodies
// never leak past this package.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// DocumentInfo is the OCR oracle's reading of a national ID card.
type DocumentInfo struct {
	IDNumber    string `json:"id_number"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
}

// FaceResult is a face-comparison verdict. Similarity is 0-100.
type FaceResult struct {
	IsMatch    bool    `json:"is_match"`
	Similarity float64 `json:"similarity"`
}

// LivenessResult is a liveness-detection verdict over a short video.
type LivenessResult struct {
	IsLive           bool    `json:"is_live"`
	IsMatch          bool    `json:"is_match"`
	Similarity       float64 `json:"similarity"`
	SpoofProbability float64 `json:"spoof_probability"`
}

// SpeakerResult is a speaker-verification verdict against a profile.
type SpeakerResult struct {
	IsMatch bool    `json:"is_match"`
	Score   float64 `json:"score"`
}

// OCR reads identity documents.
type OCR interface {
	ReadDocument(ctx context.Context, front, back []byte) (*DocumentInfo, error)
}

// FaceMatcher compares two face images.
type FaceMatcher interface {
	Compare(ctx context.Context, reference, candidate []byte) (*FaceResult, error)
}

// Liveness checks that a video shows a live person matching a reference image.
type Liveness interface {
	Check(ctx context.Context, reference, video []byte) (*LivenessResult, error)
}

// Speaker manages voice profiles and verifies samples against them.
type Speaker interface {
	CreateProfile(ctx context.Context) (string, error)
	EnrollSample(ctx context.Context, profileRef string, audio []byte) error
	Verify(ctx context.Context, profileRef string, audio []byte) (*SpeakerResult, error)
}

// Config holds the shared HTTP settings for one provider endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// client is the shared plumbing for all four providers.
type client struct {
	base string
	key  string
	hc   *http.Client
	log  *zap.Logger
}

func newClient(cfg Config, log *zap.Logger) client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return client{
		base: cfg.BaseURL,
		key:  cfg.APIKey,
		hc:   &http.Client{Timeout: timeout},
		log:  log,
	}
}

type filePart struct {
	field, name string
	data        []byte
}

type textPart struct {
	field, value string
}

// postMultipart sends files and fields to path and decodes the JSON
// response into out. Any failure comes back as apperr.External.
func (c client) postMultipart(ctx context.Context, path string, files []filePart, fields []textPart, out any) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			return apperr.External("verification provider unavailable", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return apperr.External("verification provider unavailable", err)
		}
	}
	for _, f := range fields {
		if err := w.WriteField(f.field, f.value); err != nil {
			return apperr.External("verification provider unavailable", err)
		}
	}
	if err := w.Close(); err != nil {
		return apperr.External("verification provider unavailable", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &body)
	if err != nil {
		return apperr.External("verification provider unavailable", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("oracle call failed", zap.String("path", path), zap.Error(err))
		return apperr.External("verification provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little for the log; the body never reaches clients.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("oracle returned non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return apperr.External("verification provider unavailable",
			fmt.Errorf("oracle %s: status %d", path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Warn("oracle returned malformed payload", zap.String("path", path), zap.Error(err))
		return apperr.External("verification provider returned an invalid response", err)
	}
	return nil
}
