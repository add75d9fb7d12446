package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/formhive/hookline/signature"
)

func TestSignKnownVector(t *testing.T) {
	payload := []byte(`{"event":"response.submitted"}`)
	secret := "whsec_testsecret123"
	timestamp := int64(1700000000)

	got := signature.Sign(payload, secret, timestamp)

	// Compute expected HMAC-SHA256 independently.
	content := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	expected := fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))

	if got != expected {
		t.Errorf("Sign() = %q, want %q", got, expected)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := signature.NewSigner()
	payload := []byte(`{"deliveryId":"3c9","survey":{"id":"svy_1"}}`)
	secret := "whsec_roundtripsecret"
	timestamp := int64(1700000001)

	header := signer.Sign(payload, secret, timestamp)
	if !signer.Verify(payload, secret, header) {
		t.Error("Verify() returned false for valid signature")
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	payload := []byte(`{"original":true}`)
	secret := "whsec_tampersecret"

	header := signature.Sign(payload, secret, 1700000002)

	tampered := []byte(`{"original":false}`)
	if signature.Verify(tampered, secret, header) {
		t.Error("Verify() returned true for tampered payload")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte(`{"data":"value"}`)

	header := signature.Sign(payload, "whsec_correct", 1700000003)

	if signature.Verify(payload, "whsec_wrong", header) {
		t.Error("Verify() returned true for wrong secret")
	}
}

func TestVerifyTamperedTimestamp(t *testing.T) {
	payload := []byte(`{"data":"value"}`)
	secret := "whsec_timestampsecret"

	header := signature.Sign(payload, secret, 1700000004)

	// Replacing t= without re-signing must fail verification.
	tampered := strings.Replace(header, "t=1700000004", "t=1700000005", 1)
	if signature.Verify(payload, secret, tampered) {
		t.Error("Verify() returned true for tampered timestamp")
	}
}

func TestSignatureFormat(t *testing.T) {
	header := signature.Sign([]byte("test"), "secret", 123)

	if !strings.HasPrefix(header, "t=123,v1=") {
		t.Errorf("header should start with 't=123,v1=', got %q", header)
	}

	// t=123, (6) + v1= prefix (3) + 64 hex chars (SHA256 = 32 bytes)
	if len(header) != len("t=123,v1=")+64 {
		t.Errorf("unexpected header length %d for %q", len(header), header)
	}
}

func TestParse(t *testing.T) {
	ts, v1, err := signature.Parse("t=1700000000,v1=abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 1700000000 {
		t.Errorf("timestamp = %d, want 1700000000", ts)
	}
	if v1 != "abcdef" {
		t.Errorf("v1 = %q, want abcdef", v1)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, header := range []string{"", "garbage", "t=notanumber,v1=ab", "t=123"} {
		if _, _, err := signature.Parse(header); err == nil {
			t.Errorf("Parse(%q) should fail", header)
		}
	}
}
