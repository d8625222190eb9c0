// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateUser is returned when the user already owns a profile.
	ErrDuplicateUser = errors.New("a profile already exists for this user")
	// ErrDuplicateSlug is returned when another profile owns the slug.
	ErrDuplicateSlug = errors.New("profile slug already in use")
	ErrNotFound      = errors.New("profile not found")
	errBadKind       = errors.New(`kind must be "attendee"|"leader"|"faculty"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Create inserts a profile. The caller supplies the slug.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	switch p.Kind {
	case models.ProfileAttendee, models.ProfileLeader, models.ProfileFaculty:
	default:
		return models.Profile{}, errBadKind
	}

	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Profile{}, classifyDup(err)
	}
	return p, nil
}

// GetByUserID loads the profile owned by a user.
func (s *Store) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug loads a profile of the given kind by its slug.
func (s *Store) GetBySlug(ctx context.Context, kind models.ProfileKind, slug string) (*models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"kind": kind, "slug": slug}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ByUserIDs returns the profiles owned by the given users, keyed by user id.
func (s *Store) ByUserIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Profile, error) {
	out := make(map[primitive.ObjectID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.Profile
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.UserID] = p
	}
	return out, nil
}

// SlugTaken reports whether a profile other than except uses slug.
func (s *Store) SlugTaken(ctx context.Context, slug string, except primitive.ObjectID) (bool, error) {
	filter := bson.M{"slug": slug}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetSlug stores a new slug on an existing profile.
func (s *Store) SetSlug(ctx context.Context, id primitive.ObjectID, slug string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"slug":       slug,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return classifyDup(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// classifyDup maps a duplicate-key error to the sentinel for the index
// that rejected it.
func classifyDup(err error) error {
	switch indexes.DupKeyIndex(err) {
	case indexes.ProfilesUser:
		return ErrDuplicateUser
	case indexes.ProfilesSlug:
		return ErrDuplicateSlug
	}
	return err
}
