package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrCPFTaken           = fmt.Errorf("%w: cpf already registered", ErrConflict)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInternal           = errors.New("internal error")
)
