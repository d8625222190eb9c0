// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// maxDepth bounds the parent walk in RootOf so a cycle in parent_id
// cannot loop forever.
const maxDepth = 32

var (
	ErrNotFound  = errors.New("organization not found")
	ErrNameEmpty = errors.New("organization name is required")
	ErrCycle     = errors.New("organization parent chain does not terminate")
	// ErrParentNotFound is returned by Create when parent_id names no
	// stored organization.
	ErrParentNotFound = errors.New("parent organization not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	org.Name = normalize.Name(org.Name)
	if org.Name == "" {
		return models.Organization{}, ErrNameEmpty
	}
	if org.ParentID != nil && !org.ParentID.IsZero() {
		ok, err := s.Exists(ctx, *org.ParentID)
		if err != nil {
			return models.Organization{}, err
		}
		if !ok {
			return models.Organization{}, ErrParentNotFound
		}
	} else {
		org.ParentID = nil
	}
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.Status == "" {
		org.Status = "active"
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, ErrNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// Exists reports whether an organization with the given id is stored.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RootOf follows parent_id links up to the top-level organization.
// An organization without a parent is its own root.
func (s *Store) RootOf(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	seen := make([]string, 0, 4)
	cur := id
	for i := 0; i < maxDepth; i++ {
		org, err := s.GetByID(ctx, cur)
		if err != nil {
			return models.Organization{}, err
		}
		if org.ParentID == nil || org.ParentID.IsZero() {
			return org, nil
		}
		seen = append(seen, org.ID.Hex())
		cur = *org.ParentID
	}
	return models.Organization{}, fmt.Errorf("%w: %s", ErrCycle, strings.Join(seen, " -> "))
}
