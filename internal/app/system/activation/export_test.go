package activation

import "encoding/base64"

// EncodeUIDRaw encodes an arbitrary string the way EncodeUID encodes ids.
func EncodeUIDRaw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
