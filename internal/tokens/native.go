package tokens

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"
)

// Signer issues tokens. It runs where the full crypto package is available.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte, opts ...Option) *Signer {
	o := buildOptions(opts)
	return &Signer{secret: secret, now: o.now}
}

// Issue returns the token and its absolute expiry, truncated to the second.
func (s *Signer) Issue(subject, email, role string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	if ttl < time.Second {
		return "", time.Time{}, fmt.Errorf("tokens: ttl must be at least one second, got %s", ttl)
	}

	exp := s.now().Add(ttl).Unix()
	payload, err := encodeClaims(Claims{
		Subject:   subject,
		Email:     email,
		Role:      role,
		ExpiresAt: exp,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: encode claims: %w", err)
	}

	input := SigningInput(encodedHeader, payload)
	return input + "." + sign(s.secret, input), time.Unix(exp, 0), nil
}

func sign(secret []byte, input string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return EncodeSegment(mac.Sum(nil))
}

// NativeVerifier recomputes the signature with crypto/hmac.
type NativeVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewNativeVerifier(secret []byte, opts ...Option) *NativeVerifier {
	o := buildOptions(opts)
	return &NativeVerifier{secret: secret, now: o.now}
}

func (v *NativeVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	return verify(ctx, token, v.checkSignature, v.now())
}

func (v *NativeVerifier) checkSignature(_ context.Context, input, signature string) error {
	if len(v.secret) == 0 {
		return ErrMissingSecret
	}
	expected := sign(v.secret, input)
	if len(expected) != len(signature) || !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignature
	}
	return nil
}
