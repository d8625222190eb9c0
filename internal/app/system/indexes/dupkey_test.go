package indexes_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
)

func dupWriteErr(index, key, value string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: fmt.Sprintf(`E11000 duplicate key error collection: test.coll index: %s dup key: { %s: "%s" }`, index, key, value),
	}}}
}

func TestDupKeyIndex(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"username", dupWriteErr(indexes.UsersUsername, "username", "sam"), indexes.UsersUsername},
		{"username value mentions email", dupWriteErr(indexes.UsersUsername, "username", "emailer"), indexes.UsersUsername},
		{"email", dupWriteErr(indexes.UsersEmail, "email", "a@b.c"), indexes.UsersEmail},
		{"slug value mentions user_id", dupWriteErr(indexes.ProfilesSlug, "slug", "user_id"), indexes.ProfilesSlug},
		{"slug value looks like an index clause", dupWriteErr(indexes.ProfilesSlug, "slug", "index: uniq_profiles_user dup key"), indexes.ProfilesSlug},
		{"wrapped", fmt.Errorf("insert: %w", dupWriteErr(indexes.ProfilesUser, "user_id", "x")), indexes.ProfilesUser},
		{"not a duplicate", errors.New("index: uniq_users_email dup key"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := indexes.DupKeyIndex(tt.err); got != tt.want {
				t.Errorf("DupKeyIndex() = %q, want %q", got, tt.want)
			}
		})
	}
}
