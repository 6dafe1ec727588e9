package secerr

import (
	"errors"
	"fmt"
)

var (
	ErrLogic              = errors.New("logic error")
	ErrData               = errors.New("invalid data")
	ErrCrypto             = errors.New("crypto failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Kind is the error category of an engine error.
type Kind int

const (
	KindNone Kind = iota
	KindLogic
	KindData
	KindCrypto
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindLogic:
		return "logic"
	case KindData:
		return "data"
	case KindCrypto:
		return "crypto"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "none"
	}
}

// KindOf reports the category of err. Errors that do not wrap one of the
// package sentinels report KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrLogic):
		return KindLogic
	case errors.Is(err, ErrData):
		return KindData
	case errors.Is(err, ErrCrypto):
		return KindCrypto
	default:
		return KindNone
	}
}

func Logic(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLogic, fmt.Sprintf(format, args...))
}

func Data(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

// Crypto wraps a primitive failure. cause may be nil.
func Crypto(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrCrypto, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrCrypto, msg, cause)
}
