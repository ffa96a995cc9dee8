package tokens

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is the only outcome callers should act on. The wrapped
// reasons exist for logs.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// ErrMissingSecret means JWT_SECRET was never configured. It is reported on
// first use so a process without auth traffic can still start.
var ErrMissingSecret = errors.New("tokens: signing secret is not configured")
