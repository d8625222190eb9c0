// internal/app/system/indexes/dupkey.go
package indexes

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"
)

// Unique index names. Stores match duplicate-key errors against these.
const (
	UsersUsername = "uniq_users_username"
	UsersEmail    = "uniq_users_email"
	ProfilesUser  = "uniq_profiles_user"
	ProfilesSlug  = "uniq_profiles_slug"
)

// The server reports "... index: <name> dup key: { ... }". The index name
// always precedes the offending value, so the leftmost match is the index.
var dupIndexRE = regexp.MustCompile(`index: (\S+) dup key`)

// DupKeyIndex returns the name of the unique index a duplicate-key error
// violated. It returns "" for other errors and for messages naming no index.
func DupKeyIndex(err error) string {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	for _, msg := range dupMessages(err) {
		if m := dupIndexRE.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}

func dupMessages(err error) []string {
	var msgs []string

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			msgs = append(msgs, e.Message)
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			msgs = append(msgs, e.Message)
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		msgs = append(msgs, ce.Message)
	}
	if len(msgs) == 0 {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
