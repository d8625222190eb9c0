package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
// Records are inserted directly so no save listeners run.
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

// CreateOrganization creates an active organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	return f.CreateChildOrganization(ctx, name, nil)
}

// CreateChildOrganization creates an organization nested under parent.
func (f *Fixtures) CreateChildOrganization(ctx context.Context, name string, parent *primitive.ObjectID) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		ParentID:  parent,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateUser inserts a user with the given username and role.
func (f *Fixtures) CreateUser(ctx context.Context, username, email string, role models.UserType) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		UsernameCI: text.Fold(username),
		Email:      email,
		UserType:   role,
		IsActive:   true,
		IsNewUser:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateProfile inserts a profile for an existing user.
func (f *Fixtures) CreateProfile(ctx context.Context, user models.User, orgID primitive.ObjectID, slug string) models.Profile {
	f.t.Helper()

	kind, ok := user.UserType.ProfileKind()
	if !ok {
		f.t.Fatalf("user type %s has no profile kind", user.UserType)
	}

	now := time.Now().UTC()
	p := models.Profile{
		ID:             primitive.NewObjectID(),
		Kind:           kind,
		UserID:         user.ID,
		OrganizationID: orgID,
		Slug:           slug,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// SetPassword stores a bcrypt hash of password on the user.
func (f *Fixtures) SetPassword(ctx context.Context, userID primitive.ObjectID, password string) {
	f.t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{"$set": bson.M{"password_hash": hash}}); err != nil {
		f.t.Fatalf("failed to set password: %v", err)
	}
}

// SetActive flips the user's is_active flag.
func (f *Fixtures) SetActive(ctx context.Context, userID primitive.ObjectID, active bool) {
	f.t.Helper()

	if _, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{"$set": bson.M{"is_active": active}}); err != nil {
		f.t.Fatalf("failed to set is_active: %v", err)
	}
}
