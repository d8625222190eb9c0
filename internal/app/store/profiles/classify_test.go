package profilestore

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func dupErr(index, key, value string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: fmt.Sprintf(`E11000 duplicate key error collection: rosterhub.profiles index: %s dup key: { %s: "%s" }`, index, key, value),
	}}}
}

func TestClassifyDup(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"user", dupErr("uniq_profiles_user", "user_id", "ObjectId('65f0c1a2b3c4d5e6f7a8b9c0')"), ErrDuplicateUser},
		{"slug", dupErr("uniq_profiles_slug", "slug", "ada-lovelace"), ErrDuplicateSlug},
		{"slug named user_id", dupErr("uniq_profiles_slug", "slug", "user_id"), ErrDuplicateSlug},
		{"slug named like a user key", dupErr("uniq_profiles_slug", "slug", "user_id-2"), ErrDuplicateSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDup(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyDup() = %v, want %v", got, tt.want)
			}
		})
	}
}
