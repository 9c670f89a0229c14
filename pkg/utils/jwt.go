package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/golang-jwt/jwt"
	"github.com/oklog/ulid/v2"
)

const PurposePasswordReset = "password_reset"

type AccessClaims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type ResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.StandardClaims
}

func CreateAccessToken(username string, role string, jwtSecretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   username,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Id:        ulid.Make().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(jwtSecretKey))
}

// ParseAccessToken verifies the signature and expiry of an access token. An
// expired token yields errs.ErrExpiredToken, anything else errs.ErrNotLoggedIn.
func ParseAccessToken(tokenString string, jwtSecretKey string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, jwtSecretKey, claims); err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errs.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrNotLoggedIn, err)
	}

	if claims.Subject == "" {
		return nil, errs.ErrNotLoggedIn
	}

	return claims, nil
}

func CreateResetToken(email string, jwtSecretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Purpose: PurposePasswordReset,
		StandardClaims: jwt.StandardClaims{
			Subject:   email,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			Id:        ulid.Make().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(jwtSecretKey))
}

// ParseResetToken returns the email a reset token was issued for. Access tokens
// are rejected even though they share the signing key.
func ParseResetToken(tokenString string, jwtSecretKey string) (string, error) {
	claims := &ResetClaims{}
	if err := parse(tokenString, jwtSecretKey, claims); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidResetToken, err)
	}

	if claims.Purpose != PurposePasswordReset || claims.Subject == "" {
		return "", errs.ErrInvalidResetToken
	}

	return claims.Subject, nil
}

func parse(tokenString string, jwtSecretKey string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecretKey), nil
	})

	return err
}
