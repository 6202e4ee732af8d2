package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAdmin creates a test platform-admin account.
func (f *Fixtures) CreateAdmin(ctx context.Context, username, email string) models.Account {
	f.t.Helper()
	return f.createAccount(ctx, username, email, models.RoleAdmin, nil)
}

// CreateBusiness creates a test business account with a fresh API key.
func (f *Fixtures) CreateBusiness(ctx context.Context, username, email string) models.Account {
	f.t.Helper()

	now := time.Now().UTC()
	acct := models.Account{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Email:     email,
		Role:      models.RoleBusiness,
		APIKey:    uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, acct); err != nil {
		f.t.Fatalf("failed to create test business: %v", err)
	}
	return acct
}

// CreateUser creates a test end-user account owned by the given business.
func (f *Fixtures) CreateUser(ctx context.Context, username, email string, ownerBusinessID primitive.ObjectID) models.Account {
	f.t.Helper()
	return f.createAccount(ctx, username, email, models.RoleUser, &ownerBusinessID)
}

func (f *Fixtures) createAccount(ctx context.Context, username, email, role string, owner *primitive.ObjectID) models.Account {
	f.t.Helper()

	now := time.Now().UTC()
	acct := models.Account{
		ID:              primitive.NewObjectID(),
		Username:        username,
		Email:           email,
		Role:            role,
		OwnerBusinessID: owner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, acct); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return acct
}

// CreateDocument creates an identity document for the user with the CCCD
// stage complete and no face or voice enrollment.
func (f *Fixtures) CreateDocument(ctx context.Context, userID primitive.ObjectID, idNumber, fullName string) models.IdentityDocument {
	f.t.Helper()

	doc := models.IdentityDocument{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		IDNumber:    idNumber,
		FullName:    fullName,
		FullNameCI:  text.Fold(fullName),
		DateOfBirth: "1990-01-01",
		IDFrontURL:  "cccd/" + userID.Hex() + "/front.jpg",
		IDBackURL:   "cccd/" + userID.Hex() + "/back.jpg",
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("identity_documents").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test document: %v", err)
	}
	return doc
}

// CreateEnrolledDocument creates an identity document with all three
// enrollment stages complete.
func (f *Fixtures) CreateEnrolledDocument(ctx context.Context, userID primitive.ObjectID, idNumber, fullName string) models.IdentityDocument {
	f.t.Helper()

	doc := f.CreateDocument(ctx, userID, idNumber, fullName)
	face := "face/" + userID.Hex() + "/enroll.jpg"
	voice := "voice/" + userID.Hex() + "/profile"
	_, err := f.db.Collection("identity_documents").UpdateOne(ctx,
		primitiveIDFilter(doc.ID),
		map[string]any{"$set": map[string]any{
			"face_url":          face,
			"voice_profile_ref": voice,
			"verified":          true,
		}},
	)
	if err != nil {
		f.t.Fatalf("failed to enroll test document: %v", err)
	}
	doc.FaceURL = face
	doc.VoiceProfileRef = voice
	doc.Verified = true
	return doc
}

// CreateAttempt appends a verification attempt to the ledger.
func (f *Fixtures) CreateAttempt(ctx context.Context, userID, businessID primitive.ObjectID, attemptType string, passed bool) models.VerificationAttempt {
	f.t.Helper()

	a := models.VerificationAttempt{
		ID:         primitive.NewObjectID(),
		UserID:     &userID,
		BusinessID: &businessID,
		Type:       attemptType,
		StepPassed: passed,
		Timestamp:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("verification_attempts").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test attempt: %v", err)
	}
	return a
}

func primitiveIDFilter(id primitive.ObjectID) map[string]any {
	return map[string]any{"_id": id}
}
