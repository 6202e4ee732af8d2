package documentstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/lamnbh/verihub/internal/app/system/normalize"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("identity_documents")}
}

var (
	// ErrDuplicateIDNumber is returned when the extracted document number
	// already backs another account. This is the core anti-fraud invariant:
	// one physical ID document must not back two accounts.
	ErrDuplicateIDNumber = errors.New("this document number is already registered")
	// ErrDuplicateUserDocument is returned when the user already has a
	// registered document.
	ErrDuplicateUserDocument = errors.New("a document is already registered for this user")
	// ErrAlreadyEnrolled is returned when a completed enrollment step is
	// repeated. Enrollment transitions are write-once.
	ErrAlreadyEnrolled = errors.New("this enrollment step is already completed")
	errMissingIDNumber = errors.New("document id_number is required")
)

// Create inserts the canonical identity record for a user. Fails if the
// user already has a document or if id_number exists under any account.
func (s *Store) Create(ctx context.Context, d models.IdentityDocument) (models.IdentityDocument, error) {
	d.ID = primitive.NewObjectID()
	d.IDNumber = normalize.IDNumber(d.IDNumber)
	d.FullName = normalize.Name(d.FullName)
	d.FullNameCI = text.Fold(d.FullName)
	if d.IDNumber == "" {
		return models.IdentityDocument{}, errMissingIDNumber
	}
	d.CreatedAt = time.Now()

	// Checked up front for a precise Conflict; the unique indexes on
	// user_id and id_number still close the race between two creates.
	if existing, err := s.GetByIDNumber(ctx, d.IDNumber); err == nil && existing != nil {
		return models.IdentityDocument{}, ErrDuplicateIDNumber
	}
	if existing, err := s.GetByUserID(ctx, d.UserID); err == nil && existing != nil {
		return models.IdentityDocument{}, ErrDuplicateUserDocument
	}

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.IdentityDocument{}, ErrDuplicateIDNumber
		}
		return models.IdentityDocument{}, err
	}
	return d, nil
}

// GetByUserID loads the user's document.
// Returns mongo.ErrNoDocuments if the user has not registered one.
func (s *Store) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.IdentityDocument, error) {
	var d models.IdentityDocument
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDNumber loads a document by its identity number.
func (s *Store) GetByIDNumber(ctx context.Context, idNumber string) (*models.IdentityDocument, error) {
	var d models.IdentityDocument
	if err := s.c.FindOne(ctx, bson.M{"id_number": normalize.IDNumber(idNumber)}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetFaceURL completes the face-enrollment transition. The update is
// conditional on face_url being unset, so two racing calls cannot both
// succeed and a completed step can never be overwritten.
func (s *Store) SetFaceURL(ctx context.Context, userID primitive.ObjectID, faceURL string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "face_url": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"face_url": faceURL}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either no document or the step already completed; disambiguate
		// so callers can report NotFound vs Conflict.
		if _, gerr := s.GetByUserID(ctx, userID); gerr != nil {
			return gerr
		}
		return ErrAlreadyEnrolled
	}
	return nil
}

// SetVoiceProfileRef completes the voice-enrollment transition. Same
// conditional-write semantics as SetFaceURL.
func (s *Store) SetVoiceProfileRef(ctx context.Context, userID primitive.ObjectID, profileRef string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "voice_profile_ref": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"voice_profile_ref": profileRef}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByUserID(ctx, userID); gerr != nil {
			return gerr
		}
		return ErrAlreadyEnrolled
	}
	return nil
}
