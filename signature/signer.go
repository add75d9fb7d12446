// Package signature provides HMAC-SHA256 webhook signing and verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer computes HMAC-SHA256 signatures for webhook payloads.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the X-Webhook-Signature header value for the given payload.
// The content signed is "{timestamp}.{payload}"; the header value is
// "t=<unixSeconds>,v1=<hex(hmac)>".
func (s *Signer) Sign(payload []byte, secret string, timestamp int64) string {
	return Sign(payload, secret, timestamp)
}

// Sign generates the X-Webhook-Signature header value for the given payload.
// The content signed is "{timestamp}.{payload}"; the header value is
// "t=<unixSeconds>,v1=<hex(hmac)>".
func Sign(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, digest(payload, secret, timestamp))
}

// digest computes the hex HMAC-SHA256 over "{timestamp}.{payload}".
func digest(payload []byte, secret string, timestamp int64) string {
	content := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
