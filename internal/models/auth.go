package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims carried by a session token.
type TokenClaims struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}
