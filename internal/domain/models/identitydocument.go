package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentityDocument is the canonical extracted-identity record for a user.
// At most one exists per user, and IDNumber is unique across the whole
// registry: the same physical document must not back two accounts.
//
// FaceURL and VoiceProfileRef are enrollment milestones. Each is written
// exactly once by a conditional update; once set they are never overwritten.
// Enrollment is complete when both are non-empty, independent of Verified,
// which only reflects OCR-extraction confidence.
type IdentityDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	IDNumber    string             `bson:"id_number" json:"id_number"`
	FullName    string             `bson:"full_name" json:"full_name"`
	FullNameCI  string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	DateOfBirth string             `bson:"date_of_birth" json:"date_of_birth"`

	// Blob keys for the stored document images (path-based addressing).
	IDFrontURL string `bson:"id_front_url" json:"id_front_url"`
	IDBackURL  string `bson:"id_back_url" json:"id_back_url"`

	FaceURL         string `bson:"face_url,omitempty" json:"face_url,omitempty"`
	VoiceProfileRef string `bson:"voice_profile_ref,omitempty" json:"voice_profile_ref,omitempty"`

	Verified  bool      `bson:"verified" json:"verified"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FaceEnrolled reports whether the face-enrollment step has completed.
func (d *IdentityDocument) FaceEnrolled() bool { return d.FaceURL != "" }

// VoiceEnrolled reports whether the voice-enrollment step has completed.
func (d *IdentityDocument) VoiceEnrolled() bool { return d.VoiceProfileRef != "" }

// EnrollmentComplete reports whether all three enrollment steps are done.
func (d *IdentityDocument) EnrollmentComplete() bool {
	return d.FaceEnrolled() && d.VoiceEnrolled()
}
