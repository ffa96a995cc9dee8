package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Token layout shared by the signer and every verifier:
//
//	base64url(header) "." base64url(claims) "." base64url(HMAC-SHA256(first two parts))
//
// Segments carry no padding. Decoding is strict so a signature cannot be
// altered through the unused trailing bits of its last character.

const algorithm = "HS256"

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var segmentEncoding = base64.RawURLEncoding.Strict()

var encodedHeader = func() string {
	b, err := json.Marshal(header{Alg: algorithm, Typ: "JWT"})
	if err != nil {
		panic(err)
	}
	return EncodeSegment(b)
}()

func EncodeSegment(b []byte) string {
	return segmentEncoding.EncodeToString(b)
}

func DecodeSegment(s string) ([]byte, error) {
	return segmentEncoding.DecodeString(s)
}

func SigningInput(encodedHeader, encodedPayload string) string {
	return encodedHeader + "." + encodedPayload
}

type segments struct {
	header    string
	payload   string
	signature string
}

func split(token string) (segments, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return segments{}, ErrMalformed
	}
	for _, p := range parts {
		if p == "" {
			return segments{}, ErrMalformed
		}
	}
	return segments{header: parts[0], payload: parts[1], signature: parts[2]}, nil
}

func encodeClaims(c Claims) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return EncodeSegment(b), nil
}

func decodeClaims(segment string) (*Claims, error) {
	raw, err := DecodeSegment(segment)
	if err != nil {
		return nil, ErrMalformed
	}
	var c Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrMalformed
	}
	return &c, nil
}

func checkHeader(segment string) error {
	raw, err := DecodeSegment(segment)
	if err != nil {
		return ErrMalformed
	}
	var h header
	if err := json.Unmarshal(raw, &h); err != nil || h.Alg != algorithm {
		return ErrMalformed
	}
	return nil
}

// signatureCheck is the only piece a verifier supplies; everything else in
// verify is shared so the token format cannot drift between runtimes.
type signatureCheck func(ctx context.Context, signingInput, signature string) error

func verify(ctx context.Context, token string, check signatureCheck, now time.Time) (*Claims, error) {
	seg, err := split(token)
	if err != nil {
		return nil, err
	}

	if err := check(ctx, SigningInput(seg.header, seg.payload), seg.signature); err != nil {
		return nil, err
	}

	// Nothing below runs on unauthenticated bytes.
	if err := checkHeader(seg.header); err != nil {
		return nil, err
	}
	claims, err := decodeClaims(seg.payload)
	if err != nil {
		return nil, err
	}
	if claims.expired(now) {
		return nil, ErrExpired
	}
	return claims, nil
}

// TokenVerifier is satisfied by NativeVerifier and EdgeVerifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
