package documentstore_test

import (
	"testing"

	documentstore "github.com/lamnbh/verihub/internal/app/store/documents"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lamnbh/verihub/internal/testutil"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	d, err := store.Create(ctx, models.IdentityDocument{
		UserID:      userID,
		IDNumber:    "079203001234",
		FullName:    "Nguyễn Văn An",
		DateOfBirth: "1990-05-12",
		IDFrontURL:  "cccd/x/front.jpg",
		IDBackURL:   "cccd/x/back.jpg",
		Verified:    true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if d.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if d.FullNameCI == "" {
		t.Error("expected folded name to be populated")
	}
	if d.FullNameCI == d.FullName {
		t.Errorf("expected name folded for search, got %q", d.FullNameCI)
	}
	if d.FaceEnrolled() || d.VoiceEnrolled() {
		t.Error("expected a fresh document with no biometric enrollment")
	}
}

func TestStore_Create_MissingIDNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.IdentityDocument{
		UserID:   primitive.NewObjectID(),
		FullName: "No Number",
	})
	if err == nil {
		t.Fatal("expected error for missing id_number")
	}
}

func TestStore_Create_DuplicateIDNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: primitive.NewObjectID(), IDNumber: "079203001234", FullName: "First",
	})
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Same document number under a different account must be rejected
	_, err = store.Create(ctx, models.IdentityDocument{
		UserID: primitive.NewObjectID(), IDNumber: "079203001234", FullName: "Second",
	})
	if err != documentstore.ErrDuplicateIDNumber {
		t.Errorf("expected ErrDuplicateIDNumber, got %v", err)
	}
}

func TestStore_Create_DuplicateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203001111", FullName: "First",
	})
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err = store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203002222", FullName: "Second",
	})
	if err != documentstore.ErrDuplicateUserDocument {
		t.Errorf("expected ErrDuplicateUserDocument, got %v", err)
	}
}

func TestStore_GetByUserID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByUserID(ctx, primitive.NewObjectID())
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_SetFaceURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203003333", FullName: "Face User",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetFaceURL(ctx, userID, "face/k1"); err != nil {
		t.Fatalf("SetFaceURL failed: %v", err)
	}

	d, err := store.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if !d.FaceEnrolled() {
		t.Error("expected face enrollment to be recorded")
	}
	if d.FaceURL != "face/k1" {
		t.Errorf("expected face_url %q, got %q", "face/k1", d.FaceURL)
	}
}

func TestStore_SetFaceURL_WriteOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203004444", FullName: "Face User",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetFaceURL(ctx, userID, "face/k1"); err != nil {
		t.Fatalf("first SetFaceURL failed: %v", err)
	}

	// A completed step must never be overwritten
	err = store.SetFaceURL(ctx, userID, "face/k2")
	if err != documentstore.ErrAlreadyEnrolled {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	d, _ := store.GetByUserID(ctx, userID)
	if d.FaceURL != "face/k1" {
		t.Errorf("expected original face_url preserved, got %q", d.FaceURL)
	}
}

func TestStore_SetFaceURL_NoDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.SetFaceURL(ctx, primitive.NewObjectID(), "face/k1")
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_SetVoiceProfileRef_WriteOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203005555", FullName: "Voice User",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetVoiceProfileRef(ctx, userID, "profile-1"); err != nil {
		t.Fatalf("first SetVoiceProfileRef failed: %v", err)
	}
	err = store.SetVoiceProfileRef(ctx, userID, "profile-2")
	if err != documentstore.ErrAlreadyEnrolled {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	d, _ := store.GetByUserID(ctx, userID)
	if d.VoiceProfileRef != "profile-1" {
		t.Errorf("expected original profile ref preserved, got %q", d.VoiceProfileRef)
	}
}

func TestStore_EnrollmentComplete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := documentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	_, err := store.Create(ctx, models.IdentityDocument{
		UserID: userID, IDNumber: "079203006666", FullName: "Full Enroll",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetFaceURL(ctx, userID, "face/k"); err != nil {
		t.Fatalf("SetFaceURL failed: %v", err)
	}
	d, _ := store.GetByUserID(ctx, userID)
	if d.EnrollmentComplete() {
		t.Error("enrollment should not be complete without voice")
	}

	if err := store.SetVoiceProfileRef(ctx, userID, "profile"); err != nil {
		t.Fatalf("SetVoiceProfileRef failed: %v", err)
	}
	d, _ = store.GetByUserID(ctx, userID)
	if !d.EnrollmentComplete() {
		t.Error("expected enrollment complete after face and voice")
	}
}
