package profilestore_test

import (
	"context"
	"errors"
	"testing"

	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*mongo.Database, *profilestore.Store, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return db, profilestore.New(db), ctx
}

func TestStore_Create_DuplicateUser(t *testing.T) {
	_, store, ctx := setup(t)
	userID := primitive.NewObjectID()
	orgID := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileAttendee, UserID: userID, OrganizationID: orgID, Slug: "ada",
	}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileAttendee, UserID: userID, OrganizationID: orgID, Slug: "ada-2",
	})
	if !errors.Is(err, profilestore.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestStore_Create_DuplicateSlug(t *testing.T) {
	_, store, ctx := setup(t)
	orgID := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileLeader, UserID: primitive.NewObjectID(), OrganizationID: orgID, Slug: "grace",
	}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileFaculty, UserID: primitive.NewObjectID(), OrganizationID: orgID, Slug: "grace",
	})
	if !errors.Is(err, profilestore.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestStore_Create_BadKind(t *testing.T) {
	_, store, ctx := setup(t)
	if _, err := store.Create(ctx, models.Profile{Kind: "admin", UserID: primitive.NewObjectID()}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStore_SlugTakenAndSetSlug(t *testing.T) {
	_, store, ctx := setup(t)
	orgID := primitive.NewObjectID()

	a, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileAttendee, UserID: primitive.NewObjectID(), OrganizationID: orgID, Slug: "a",
	})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileAttendee, UserID: primitive.NewObjectID(), OrganizationID: orgID, Slug: "b",
	})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if taken, _ := store.SlugTaken(ctx, "a", a.ID); taken {
		t.Error("a's own slug should not count as taken for a")
	}
	if taken, _ := store.SlugTaken(ctx, "a", b.ID); !taken {
		t.Error("slug a should be taken for b")
	}

	if err := store.SetSlug(ctx, b.ID, "a"); !errors.Is(err, profilestore.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}
	if err := store.SetSlug(ctx, b.ID, "b-renamed"); err != nil {
		t.Fatalf("SetSlug: %v", err)
	}
	got, err := store.GetBySlug(ctx, models.ProfileAttendee, "b-renamed")
	if err != nil || got.ID != b.ID {
		t.Errorf("GetBySlug = %v, %v", got, err)
	}
	if err := store.SetSlug(ctx, primitive.NewObjectID(), "zzz"); !errors.Is(err, profilestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ByUserIDs(t *testing.T) {
	_, store, ctx := setup(t)
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := store.Create(ctx, models.Profile{
		Kind: models.ProfileFaculty, UserID: u1, OrganizationID: primitive.NewObjectID(), Slug: "f1",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.ByUserIDs(ctx, []primitive.ObjectID{u1, u2})
	if err != nil {
		t.Fatalf("ByUserIDs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	p := got[u1]
	if p.URL() != "/faculty/f1" {
		t.Errorf("URL = %q", p.URL())
	}
	if _, err := store.GetByUserID(ctx, u2); !errors.Is(err, profilestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
