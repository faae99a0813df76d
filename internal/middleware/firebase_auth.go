package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// TokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

const (
	firebaseUIDKey   = "firebaseUID"
	firebaseEmailKey = "firebaseEmail"
)

// FirebaseToken verifies the ID token posted as id_token, or sent as a
// Bearer Authorization header, and stores its UID and email in the context.
func FirebaseToken(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken := c.FormValue("id_token")
			if idToken == "" {
				parts := strings.Split(c.Request().Header.Get(echo.HeaderAuthorization), " ")
				if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
					idToken = parts[1]
				}
			}
			if idToken == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "id_token is missing")
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			email, _ := token.Claims["email"].(string)
			c.Set(firebaseUIDKey, token.UID)
			c.Set(firebaseEmailKey, email)
			return next(c)
		}
	}
}

// FirebaseIdentity returns the UID and email stored by FirebaseToken.
func FirebaseIdentity(c echo.Context) (uid, email string) {
	uid, _ = c.Get(firebaseUIDKey).(string)
	email, _ = c.Get(firebaseEmailKey).(string)
	return uid, email
}
