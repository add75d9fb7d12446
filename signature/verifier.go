package signature

import (
	"crypto/hmac"
	"fmt"
	"strconv"
	"strings"
)

// Parse splits an X-Webhook-Signature header value into its timestamp and
// v1 signature components.
func Parse(header string) (timestamp int64, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return 0, "", fmt.Errorf("signature: malformed header element %q", part)
		}
		switch k {
		case "t":
			timestamp, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("signature: invalid timestamp %q: %w", v, err)
			}
		case "v1":
			v1 = v
		}
	}
	if v1 == "" {
		return 0, "", fmt.Errorf("signature: header has no v1 component")
	}
	return timestamp, v1, nil
}

// Verify checks whether the given X-Webhook-Signature header value matches
// the expected HMAC-SHA256 signature for the raw payload bytes and secret.
// The comparison is constant-time. Freshness of the embedded timestamp is a
// consumer policy and is not enforced here.
func (s *Signer) Verify(payload []byte, secret string, header string) bool {
	return Verify(payload, secret, header)
}

// Verify checks whether the given X-Webhook-Signature header value matches
// the expected HMAC-SHA256 signature for the raw payload bytes and secret.
func Verify(payload []byte, secret string, header string) bool {
	ts, v1, err := Parse(header)
	if err != nil {
		return false
	}
	expected := digest(payload, secret, ts)
	return hmac.Equal([]byte(expected), []byte(v1))
}
