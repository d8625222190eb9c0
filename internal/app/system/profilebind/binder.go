// Package profilebind keeps a user's role-specific profile in step with the
// user record. The Binder is registered as a userstore.SaveListener.
package profilebind

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	organizationstore "github.com/dalemusser/rosterhub/internal/app/store/organizations"
	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxSlugAttempts bounds the suffix search for a free slug.
const maxSlugAttempts = 100

// reservedSlugs collide with fixed routes under the profile prefixes.
var reservedSlugs = map[string]bool{
	"dashboard": true,
}

var (
	// ErrMissingOrganization is returned when a profile-bearing user is
	// created without a (known) organization.
	ErrMissingOrganization = errors.New("an organization is required for this user type")
	// ErrDuplicateProfile is returned when the user already owns a profile.
	ErrDuplicateProfile = fmt.Errorf("duplicate profile: %w", profilestore.ErrDuplicateUser)
	errNoFreeSlug       = errors.New("no free profile slug")
)

// Constructor describes how to build the profile for one role.
type Constructor struct {
	Kind                 models.ProfileKind
	RequiresOrganization bool
}

// Table maps each profile-bearing role to its constructor.
type Table map[models.UserType]Constructor

// DefaultTable is the attendee/leader/faculty mapping.
func DefaultTable() Table {
	return Table{
		models.UserTypeAttendee: {Kind: models.ProfileAttendee, RequiresOrganization: true},
		models.UserTypeLeader:   {Kind: models.ProfileLeader, RequiresOrganization: true},
		models.UserTypeFaculty:  {Kind: models.ProfileFaculty, RequiresOrganization: true},
	}
}

// Binder creates profiles for new users and re-derives slugs on every save.
type Binder struct {
	profiles *profilestore.Store
	orgs     *organizationstore.Store
	table    Table
	log      *zap.Logger
}

func New(profiles *profilestore.Store, orgs *organizationstore.Store, table Table, log *zap.Logger) *Binder {
	if table == nil {
		table = DefaultTable()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Binder{profiles: profiles, orgs: orgs, table: table, log: log}
}

var _ userstore.SaveListener = (*Binder)(nil)

// UserSaved implements userstore.SaveListener.
func (b *Binder) UserSaved(ctx context.Context, ev userstore.SaveEvent) error {
	if ev.User == nil {
		return nil
	}
	if ev.Created {
		return b.create(ctx, ev)
	}
	return b.resync(ctx, ev.User)
}

func (b *Binder) create(ctx context.Context, ev userstore.SaveEvent) error {
	ctor, ok := b.table[ev.User.UserType]
	if !ok {
		return nil
	}

	var orgID primitive.ObjectID
	if ev.OrganizationID != nil {
		orgID = *ev.OrganizationID
	}
	if ctor.RequiresOrganization {
		if orgID.IsZero() {
			return ErrMissingOrganization
		}
		exists, err := b.orgs.Exists(ctx, orgID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrMissingOrganization
		}
	}

	base := BaseSlug(ev.User)
	for n := 1; n <= maxSlugAttempts; n++ {
		slug, err := b.freeSlug(ctx, base, n, primitive.NilObjectID)
		if err != nil {
			return err
		}
		p, err := b.profiles.Create(ctx, models.Profile{
			Kind:           ctor.Kind,
			UserID:         ev.User.ID,
			OrganizationID: orgID,
			Address:        ev.Address,
			Slug:           slug,
		})
		switch {
		case err == nil:
			b.log.Debug("profile created",
				zap.String("user_id", ev.User.ID.Hex()),
				zap.String("kind", string(p.Kind)),
				zap.String("slug", p.Slug))
			return nil
		case errors.Is(err, profilestore.ErrDuplicateUser):
			return ErrDuplicateProfile
		case errors.Is(err, profilestore.ErrDuplicateSlug):
			// Lost a race for the slug; continue past it.
			n = suffixOf(slug, base)
			continue
		default:
			return err
		}
	}
	return errNoFreeSlug
}

func (b *Binder) resync(ctx context.Context, u *models.User) error {
	p, err := b.profiles.GetByUserID(ctx, u.ID)
	if errors.Is(err, profilestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	base := BaseSlug(u)
	for n := 1; n <= maxSlugAttempts; n++ {
		slug, err := b.freeSlug(ctx, base, n, p.ID)
		if err != nil {
			return err
		}
		if slug == p.Slug {
			return nil
		}
		err = b.profiles.SetSlug(ctx, p.ID, slug)
		if errors.Is(err, profilestore.ErrDuplicateSlug) {
			n = suffixOf(slug, base)
			continue
		}
		return err
	}
	return errNoFreeSlug
}

// freeSlug returns the first candidate at or after suffix n that no
// profile other than self uses.
func (b *Binder) freeSlug(ctx context.Context, base string, n int, self primitive.ObjectID) (string, error) {
	for ; n <= maxSlugAttempts; n++ {
		candidate := withSuffix(base, n)
		if reservedSlugs[candidate] {
			continue
		}
		taken, err := b.profiles.SlugTaken(ctx, candidate, self)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", errNoFreeSlug
}

func withSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

func suffixOf(slug, base string) int {
	if slug == base {
		return 1
	}
	n, err := strconv.Atoi(slug[len(base)+1:])
	if err != nil {
		return maxSlugAttempts
	}
	return n
}
