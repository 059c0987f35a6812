package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload of a session token.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	jwt.RegisteredClaims
}
