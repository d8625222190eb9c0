package activation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const keySalt = "rosterhub.activation"

// epoch is the zero point of token timestamps.
var epoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Tokens makes and checks stateless activation tokens. A token is bound to
// the user's id, password hash, active flag, last login and email, so it
// stops working once the account is activated or any of those change.
type Tokens struct {
	secret    string
	fallbacks []string
	ttl       time.Duration
	now       func() time.Time
}

// NewTokens returns a token generator. fallbacks are accepted when
// checking but never used to sign.
func NewTokens(secret string, fallbacks []string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: secret, fallbacks: fallbacks, ttl: ttl, now: time.Now}
}

// Make returns a fresh token for u.
func (t *Tokens) Make(u *models.User) string {
	return t.makeAt(u, t.stamp(t.now()), t.secret)
}

// Check reports whether token is a valid, unexpired token for u.
func (t *Tokens) Check(u *models.User, token string) bool {
	if u == nil || token == "" {
		return false
	}
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return false
	}

	matched := false
	for _, secret := range append([]string{t.secret}, t.fallbacks...) {
		if hmac.Equal([]byte(t.makeAt(u, ts, secret)), []byte(token)) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	age := t.stamp(t.now()) - ts
	return age >= 0 && time.Duration(age)*time.Second <= t.ttl
}

func (t *Tokens) stamp(at time.Time) int64 {
	return int64(at.Sub(epoch) / time.Second)
}

func (t *Tokens) makeAt(u *models.User, ts int64, secret string) string {
	key := sha256.Sum256([]byte(keySalt + secret))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(material(u, ts)))
	sum := mac.Sum(nil)
	return strconv.FormatInt(ts, 36) + "-" + hex.EncodeToString(sum[:20])
}

func material(u *models.User, ts int64) string {
	active := "0"
	if u.IsActive {
		active = "1"
	}
	login := ""
	if u.LastLoginAt != nil {
		login = strconv.FormatInt(u.LastLoginAt.Unix(), 10)
	}
	return u.ID.Hex() + u.PasswordHash + active + login + u.Email + strconv.FormatInt(ts, 10)
}

// EncodeUID is the URL form of a user id.
func EncodeUID(id primitive.ObjectID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.Hex()))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (primitive.ObjectID, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(string(raw))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
