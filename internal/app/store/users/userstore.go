package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/app/system/txn"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrDuplicateEmail is returned when attempting to store an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrBadUserType is returned for a user_type outside the known roles.
	ErrBadUserType = errors.New("user_type is not a known role")
	// ErrRoleReassignment is returned when an edit would move a user into
	// or out of a role that owns a profile.
	ErrRoleReassignment = errors.New("user_type cannot change to or from a role with a profile")
	ErrNotFound         = errors.New("user not found")
	ErrUsernameRequired = errors.New("username is required")
)

// SaveEvent describes one successful write of a user document.
// OrganizationID and Address are only meaningful when Created is true.
type SaveEvent struct {
	User           *models.User
	Created        bool
	OrganizationID *primitive.ObjectID
	Address        *models.Address
}

// SaveListener is notified after a user document has been written.
// Listeners registered with Listen run inside the write's transaction and
// an error aborts it. Listeners registered with ListenCommitted run once
// the write is durable and cannot undo it.
type SaveListener interface {
	UserSaved(ctx context.Context, ev SaveEvent) error
}

// SaveListenerFunc adapts a function to SaveListener.
type SaveListenerFunc func(ctx context.Context, ev SaveEvent) error

func (f SaveListenerFunc) UserSaved(ctx context.Context, ev SaveEvent) error { return f(ctx, ev) }

type Store struct {
	db          *mongo.Database
	c           *mongo.Collection
	log         *zap.Logger
	listeners   []SaveListener
	afterCommit []SaveListener
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, c: db.Collection("users"), log: log}
}

// Listen registers listeners. They run in registration order on every save.
func (s *Store) Listen(ls ...SaveListener) {
	s.listeners = append(s.listeners, ls...)
}

// ListenCommitted registers listeners that run in order after the write
// has committed. Each committed write notifies them exactly once; their
// errors are logged.
func (s *Store) ListenCommitted(ls ...SaveListener) {
	s.afterCommit = append(s.afterCommit, ls...)
}

func (s *Store) publish(ctx context.Context, ev SaveEvent) error {
	for _, l := range s.listeners {
		if err := l.UserSaved(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) committed(ctx context.Context, ev SaveEvent) {
	for _, l := range s.afterCommit {
		if err := l.UserSaved(ctx, ev); err != nil {
			s.log.Warn("after-commit listener failed",
				zap.String("user_id", ev.User.ID.Hex()),
				zap.Error(err))
		}
	}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername loads a user by exact username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": normalize.Username(username)})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	e := normalize.Email(email)
	if e == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"email": e})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateOptions carries the profile inputs that belong to the creation
// event rather than to the user document.
type CreateOptions struct {
	OrganizationID *primitive.ObjectID
	Address        *models.Address
}

// Create inserts a new user after normalizing & validating fields, then
// notifies listeners. If a listener fails the user is not left behind:
// the insert is rolled back with the transaction, or deleted when the
// deployment has no transactions.
func (s *Store) Create(ctx context.Context, u models.User, opts CreateOptions) (models.User, error) {
	u.Username = normalize.Username(u.Username)
	if u.Username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if !u.UserType.Valid() {
		return models.User{}, ErrBadUserType
	}
	u.ID = primitive.NewObjectID()
	u.UsernameCI = text.Fold(u.Username)
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(htmlsanitize.PlainText(u.FirstName))
	u.LastName = normalize.Name(htmlsanitize.PlainText(u.LastName))
	u.IsNewUser = true

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	ev := SaveEvent{User: &u, Created: true, OrganizationID: opts.OrganizationID, Address: opts.Address}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, u); err != nil {
			return classifyDup(err)
		}
		if err := s.publish(ctx, ev); err != nil {
			if !txn.Active(ctx) {
				s.compensate(ctx, u.ID, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	s.committed(ctx, ev)
	return u, nil
}

func (s *Store) compensate(ctx context.Context, id primitive.ObjectID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		s.log.Error("failed to remove user after listener error",
			zap.String("user_id", id.Hex()),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}

// Update holds the editable fields. Nil pointers leave the field unchanged.
type Update struct {
	FirstName     *string
	LastName      *string
	Email         *string
	IsAdmin       *bool
	IsActive      *bool
	UserType      *models.UserType
	RouteOverride *string
}

// Update applies u to the stored user and notifies listeners.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.User, error) {
	var out *models.User
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next := *cur
		set := bson.M{}

		if upd.UserType != nil && *upd.UserType != cur.UserType {
			if !upd.UserType.Valid() {
				return ErrBadUserType
			}
			_, oldHas := cur.UserType.ProfileKind()
			_, newHas := upd.UserType.ProfileKind()
			if oldHas || newHas {
				return ErrRoleReassignment
			}
			next.UserType = *upd.UserType
			set["user_type"] = next.UserType
		}
		if upd.FirstName != nil {
			next.FirstName = normalize.Name(htmlsanitize.PlainText(*upd.FirstName))
			set["first_name"] = next.FirstName
		}
		if upd.LastName != nil {
			next.LastName = normalize.Name(htmlsanitize.PlainText(*upd.LastName))
			set["last_name"] = next.LastName
		}
		if upd.Email != nil {
			next.Email = normalize.Email(*upd.Email)
			set["email"] = next.Email
		}
		if upd.IsAdmin != nil {
			next.IsAdmin = *upd.IsAdmin
			set["is_admin"] = next.IsAdmin
		}
		if upd.IsActive != nil {
			next.IsActive = *upd.IsActive
			set["is_active"] = next.IsActive
		}
		if upd.RouteOverride != nil {
			next.RouteOverride = strings.TrimSpace(*upd.RouteOverride)
			set["route_override"] = next.RouteOverride
		}

		next.UpdatedAt = time.Now().UTC()
		set["updated_at"] = next.UpdatedAt

		if _, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
			return classifyDup(err)
		}
		if err := s.publish(ctx, SaveEvent{User: &next}); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, SaveEvent{User: out})
	return out, nil
}

// PromoteSuperuser grants the superuser and staff flags and activates the
// account. Listeners see the promotion as an ordinary save.
func (s *Store) PromoteSuperuser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var out *models.User
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"is_superuser": true,
			"is_staff":     true,
			"is_active":    true,
			"updated_at":   time.Now().UTC(),
		}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		u, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.publish(ctx, SaveEvent{User: u}); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, SaveEvent{User: out})
	return out, nil
}

// Activate flips is_active from false to true with a single conditional
// update. activated is false when the user was already active, in which
// case no listeners run.
func (s *Store) Activate(ctx context.Context, id primitive.ObjectID) (u *models.User, activated bool, err error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_active": false},
		bson.M{"$set": bson.M{"is_active": true, "updated_at": now}},
	)
	if err != nil {
		return nil, false, err
	}

	u, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if res.ModifiedCount == 0 {
		return u, false, nil
	}
	if err := s.publish(ctx, SaveEvent{User: u}); err != nil {
		return u, true, fmt.Errorf("activate listeners: %w", err)
	}
	s.committed(ctx, SaveEvent{User: u})
	return u, true, nil
}

// MarkLogin records a successful sign-in and clears the new-user flag.
func (s *Store) MarkLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	at = at.UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"last_login_at": at,
		"is_new_user":   false,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// classifyDup maps a duplicate-key error to the sentinel for the unique
// index that rejected it. Other errors pass through.
func classifyDup(err error) error {
	switch indexes.DupKeyIndex(err) {
	case indexes.UsersUsername:
		return ErrDuplicateUsername
	case indexes.UsersEmail:
		return ErrDuplicateEmail
	}
	return err
}
