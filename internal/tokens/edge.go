package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EdgeVerifier is the verifier for the request gate. It holds only a
// verify-capable key and delegates the signature check to the HS256 verify
// primitive of golang-jwt, so the gate never links the signing path.
type EdgeVerifier struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

func NewEdgeVerifier(secret []byte, opts ...Option) *EdgeVerifier {
	o := buildOptions(opts)
	return &EdgeVerifier{
		secret: secret,
		method: jwt.SigningMethodHS256,
		now:    o.now,
	}
}

func (v *EdgeVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	return verify(ctx, token, v.checkSignature, v.now())
}

type verifyKey []byte

func (v *EdgeVerifier) importKey() (verifyKey, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingSecret
	}
	return verifyKey(v.secret), nil
}

func (v *EdgeVerifier) checkSignature(ctx context.Context, input, signature string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	key, err := v.importKey()
	if err != nil {
		return err
	}

	sig, err := DecodeSegment(signature)
	if err != nil {
		return ErrSignature
	}

	if err := v.method.Verify(input, sig, []byte(key)); err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return ErrSignature
		}
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return nil
}
