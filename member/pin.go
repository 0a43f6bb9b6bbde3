package member

import (
	"errors"
	"fmt"

	"github.com/billbatista/acasinha-trip/apperror"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPinMismatch   = apperror.New(apperror.CodeAuthMismatch, "wrong pin")
	ErrAdminMismatch = apperror.New(apperror.CodeAuthMismatch, "wrong admin code")
	ErrInvalidPin    = apperror.Validation("pin must be 4 digits")
)

func validPin(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPin
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

func hashPin(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(hashed), nil
}

func verifyPin(hashed, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPinMismatch
	}
	if err != nil {
		return fmt.Errorf("checking pin: %w", err)
	}
	return nil
}

// AdminGate checks the admin code. Only its hash is kept in memory.
type AdminGate struct {
	hash []byte
}

func NewAdminGate(code string) (*AdminGate, error) {
	if code == "" {
		return nil, fmt.Errorf("admin code can't be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin code: %w", err)
	}
	return &AdminGate{hash: hashed}, nil
}

func (g *AdminGate) Verify(code string) error {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(code)); err != nil {
		return ErrAdminMismatch
	}
	return nil
}
