package middleware

import (
	"context"
	"strings"

	"github.com/bilawal506/online-mart/internal/domain"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/bilawal506/online-mart/pkg/response"
	"github.com/bilawal506/online-mart/pkg/utils"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

type Principal struct {
	Username string
	IsAdmin  bool

	// User is the stored account when the resolver loaded one.
	User *domain.User
}

// PrincipalResolver turns verified token claims into a Principal. The users
// service uses it to check that the account still exists; the products service
// trusts the claims as they are.
type PrincipalResolver func(ctx context.Context, claims *utils.AccessClaims) (Principal, error)

func ClaimsPrincipal(ctx context.Context, claims *utils.AccessClaims) (Principal, error) {
	return Principal{Username: claims.Subject, IsAdmin: claims.Role == domain.RoleAdmin}, nil
}

// Authenticate requires a valid bearer token and stores the caller's Principal
// on the echo context.
func Authenticate(jwtSecretKey string, resolve PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn)
			}

			claims, err := utils.ParseAccessToken(token, jwtSecretKey)
			if err != nil {
				return response.WriteErrorResponse(c, err)
			}

			principal, err := resolve(c.Request().Context(), claims)
			if err != nil {
				return response.WriteErrorResponse(c, err)
			}

			c.Set(principalKey, principal)

			return next(c)
		}
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := GetPrincipal(c)
		if !ok {
			return response.WriteErrorResponse(c, errs.ErrNotLoggedIn)
		}
		if !principal.IsAdmin {
			return response.WriteErrorResponse(c, errs.ErrForbidden)
		}

		return next(c)
	}
}

func GetPrincipal(c echo.Context) (Principal, bool) {
	principal, ok := c.Get(principalKey).(Principal)
	return principal, ok
}
