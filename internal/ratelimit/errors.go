package ratelimit

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("ratelimit: limit and window must be positive")
	ErrProtocol        = errors.New("ratelimit: counter service protocol error")
)

// ServerError is an error reply ("-ERR ...") from the counter service.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ratelimit: counter service replied with error: %s", e.Message)
}
