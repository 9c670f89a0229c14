package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func CheckPassword(hashedPassword string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

var unknownUserHash = sync.OnceValue(func() string {
	hash, err := HashPassword("unknown-user")
	if err != nil {
		panic(err)
	}
	return hash
})

// UnknownUserHash is a hash no password matches in practice, compared against
// when the account does not exist so that lookups take as long as real ones.
func UnknownUserHash() string {
	return unknownUserHash()
}
