package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verification attempt types.
const (
	AttemptLiveness  = "liveness"
	AttemptFaceMatch = "face_match"
	AttemptVoice     = "voice"
	AttemptComposite = "composite"
)

// LivenessOutcome is the interpreted result of a liveness-oracle call.
type LivenessOutcome struct {
	IsLive           bool    `bson:"is_live" json:"is_live"`
	IsMatch          bool    `bson:"is_match" json:"is_match"`
	Similarity       float64 `bson:"similarity" json:"similarity"`
	SpoofProbability float64 `bson:"spoof_probability" json:"spoof_probability"`
}

// FaceMatchOutcome is the interpreted result of a face-match oracle call.
type FaceMatchOutcome struct {
	IsMatch    bool    `bson:"is_match" json:"is_match"`
	Similarity float64 `bson:"similarity" json:"similarity"`
}

// VoiceOutcome is the interpreted result of a speaker-verification call.
type VoiceOutcome struct {
	IsMatch bool    `bson:"is_match" json:"is_match"`
	Score   float64 `bson:"score" json:"score"`
}

// VerificationAttempt is one append-only ledger entry: a completed
// liveness/face/voice check or a caller-composed composite verdict.
// Attempts are never mutated or deleted. UserID is nil only for anonymous
// diagnostic calls; BusinessID is set when a business triggered the check.
type VerificationAttempt struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	BusinessID *primitive.ObjectID `bson:"business_id,omitempty" json:"business_id,omitempty"`

	Type       string `bson:"type" json:"type"` // liveness | face_match | voice | composite
	StepPassed bool   `bson:"step_passed" json:"step_passed"`

	Liveness  *LivenessOutcome  `bson:"liveness,omitempty" json:"liveness,omitempty"`
	FaceMatch *FaceMatchOutcome `bson:"face_match,omitempty" json:"face_match,omitempty"`
	Voice     *VoiceOutcome     `bson:"voice,omitempty" json:"voice,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
