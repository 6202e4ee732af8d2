package oracle

import (
	"context"
	"strings"

	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// HTTPOCR reads ID cards via the OCR provider.
type HTTPOCR struct{ client }

var _ OCR = (*HTTPOCR)(nil)

func NewHTTPOCR(cfg Config, log *zap.Logger) *HTTPOCR {
	return &HTTPOCR{newClient(cfg, log)}
}

func (o *HTTPOCR) ReadDocument(ctx context.Context, front, back []byte) (*DocumentInfo, error) {
	var info DocumentInfo
	err := o.postMultipart(ctx, "/ocr/id-card",
		[]filePart{
			{field: "front", name: "front.jpg", data: front},
			{field: "back", name: "back.jpg", data: back},
		}, nil, &info)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.IDNumber) == "" {
		return nil, apperr.External("verification provider returned an invalid response", nil)
	}
	return &info, nil
}

// HTTPFaceMatcher compares face images via the face provider.
type HTTPFaceMatcher struct{ client }

var _ FaceMatcher = (*HTTPFaceMatcher)(nil)

func NewHTTPFaceMatcher(cfg Config, log *zap.Logger) *HTTPFaceMatcher {
	return &HTTPFaceMatcher{newClient(cfg, log)}
}

func (f *HTTPFaceMatcher) Compare(ctx context.Context, reference, candidate []byte) (*FaceResult, error) {
	var res FaceResult
	err := f.postMultipart(ctx, "/face/compare",
		[]filePart{
			{field: "reference", name: "reference.jpg", data: reference},
			{field: "candidate", name: "candidate.jpg", data: candidate},
		}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// HTTPLiveness runs liveness detection via the liveness provider.
type HTTPLiveness struct{ client }

var _ Liveness = (*HTTPLiveness)(nil)

func NewHTTPLiveness(cfg Config, log *zap.Logger) *HTTPLiveness {
	return &HTTPLiveness{newClient(cfg, log)}
}

func (l *HTTPLiveness) Check(ctx context.Context, reference, video []byte) (*LivenessResult, error) {
	var res LivenessResult
	err := l.postMultipart(ctx, "/liveness/check",
		[]filePart{
			{field: "reference", name: "reference.jpg", data: reference},
			{field: "video", name: "video.mp4", data: video},
		}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// HTTPSpeaker manages voice profiles via the speaker provider.
type HTTPSpeaker struct{ client }

var _ Speaker = (*HTTPSpeaker)(nil)

func NewHTTPSpeaker(cfg Config, log *zap.Logger) *HTTPSpeaker {
	return &HTTPSpeaker{newClient(cfg, log)}
}

func (s *HTTPSpeaker) CreateProfile(ctx context.Context) (string, error) {
	var out struct {
		ProfileID string `json:"profile_id"`
	}
	if err := s.postMultipart(ctx, "/speaker/profiles", nil, nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ProfileID) == "" {
		return "", apperr.External("verification provider returned an invalid response", nil)
	}
	return out.ProfileID, nil
}

func (s *HTTPSpeaker) EnrollSample(ctx context.Context, profileRef string, audio []byte) error {
	return s.postMultipart(ctx, "/speaker/profiles/enroll",
		[]filePart{{field: "audio", name: "sample.wav", data: audio}},
		[]textPart{{field: "profile_id", value: profileRef}},
		nil)
}

func (s *HTTPSpeaker) Verify(ctx context.Context, profileRef string, audio []byte) (*SpeakerResult, error) {
	var res SpeakerResult
	err := s.postMultipart(ctx, "/speaker/verify",
		[]filePart{{field: "audio", name: "sample.wav", data: audio}},
		[]textPart{{field: "profile_id", value: profileRef}},
		&res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
