package crypto

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/akentev/account-service/internal/common/constants"
)

// PasswordHasher is the one-way credential hash used for stored
// passwords. Compare returns a non-nil error for a mismatch or a
// malformed digest; it never panics.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

type BcryptHasher struct{}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), constants.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
