package userstore

import (
	"context"
	"regexp"

	"github.com/dalemusser/rosterhub/internal/app/system/paging"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListFilter narrows the directory listing. Zero values mean "any".
type ListFilter struct {
	UserType models.UserType
	IsAdmin  *bool
	IsActive *bool
	// Search matches a prefix of username, email, first or last name.
	Search string
}

// ListQuery is one page request ordered by username.
type ListQuery struct {
	Filter ListFilter
	Before string
	After  string
	Limit  int
}

// Page is one keyset page of users.
type Page struct {
	Users []models.User
	paging.Result
	PrevCursor string
	NextCursor string
}

func (f ListFilter) bson() bson.M {
	filter := bson.M{}
	if f.UserType != "" {
		filter["user_type"] = f.UserType
	}
	if f.IsAdmin != nil {
		filter["is_admin"] = *f.IsAdmin
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	if f.Search != "" {
		prefix := "^" + regexp.QuoteMeta(f.Search)
		folded := "^" + regexp.QuoteMeta(text.Fold(f.Search))
		ci := primitive.Regex{Pattern: prefix, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"username_ci": primitive.Regex{Pattern: folded}},
			bson.M{"email": ci},
			bson.M{"first_name": ci},
			bson.M{"last_name": ci},
		}
	}
	return filter
}

// List returns one page of users ordered by username_ci, _id.
func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.Limit <= 0 {
		q.Limit = paging.PageSize
	}
	cfg := paging.ConfigureKeyset(q.Before, q.After)

	filter := q.Filter.bson()
	if win := cfg.KeysetWindow("username_ci"); win != nil {
		if len(filter) == 0 {
			filter = win
		} else {
			filter = bson.M{"$and": bson.A{filter, win}}
		}
	}

	find := options.Find()
	cfg.ApplyToFind(find, "username_ci", q.Limit)

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var rows []models.User
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, err
	}
	if cfg.Direction == paging.Backward {
		paging.Reverse(rows)
	}

	res := paging.TrimPage(&rows, q.Before, q.After, q.Limit)
	prev, next := paging.BuildCursors(rows,
		func(u models.User) string { return u.UsernameCI },
		func(u models.User) primitive.ObjectID { return u.ID },
	)
	return Page{Users: rows, Result: res, PrevCursor: prev, NextCursor: next}, nil
}
