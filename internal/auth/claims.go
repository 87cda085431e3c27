package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims. Subject mirrors UserID.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Validate runs after the registered claims pass; jwt calls it during parsing.
func (c Claims) Validate() error {
	switch {
	case c.UserID == "":
		return errors.New("user_id missing")
	case c.Role == "":
		return errors.New("role missing")
	}
	return nil
}
