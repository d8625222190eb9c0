package userstore

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func dupErr(index, key, value string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: fmt.Sprintf(`E11000 duplicate key error collection: rosterhub.users index: %s dup key: { %s: "%s" }`, index, key, value),
	}}}
}

func TestClassifyDup(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"username", dupErr("uniq_users_username", "username", "sam"), ErrDuplicateUsername},
		{"username containing email", dupErr("uniq_users_username", "username", "emailer"), ErrDuplicateUsername},
		{"email", dupErr("uniq_users_email", "email", "sam@example.com"), ErrDuplicateEmail},
		{"non-duplicate passes through", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDup(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyDup() = %v, want %v", got, tt.want)
			}
		})
	}
}
