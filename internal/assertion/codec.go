package assertion

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	payloadEncoding = base64.RawURLEncoding.Strict()
	signingMethod   = jwt.SigningMethodHS256
)

// Encode serializes a into its canonical JSON form, signs those bytes with
// HMAC-SHA256 and returns the base64url payload and the hex signature as two
// separate transport values.
func Encode(a Assertion, secret []byte) (payload string, signature string, err error) {
	if len(secret) == 0 {
		return "", "", ErrEmptySecret
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return "", "", fmt.Errorf("assertion: marshal: %w", err)
	}
	sig, err := signingMethod.Sign(string(raw), secret)
	if err != nil {
		return "", "", fmt.Errorf("assertion: sign: %w", err)
	}
	return payloadEncoding.EncodeToString(raw), hex.EncodeToString(sig), nil
}

// Decode verifies signature over the exact bytes carried by payload and only
// then deserializes them. Any encoding problem in either value is reported as
// ErrSignature since integrity cannot be established.
func Decode(payload, signature string, secret []byte) (*Assertion, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	raw, err := payloadEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding: %v", ErrSignature, err)
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding: %v", ErrSignature, err)
	}
	if err := signingMethod.Verify(string(raw), sig, secret); err != nil {
		return nil, ErrSignature
	}

	var a Assertion
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &a, nil
}
