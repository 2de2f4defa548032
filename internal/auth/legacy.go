package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const hmacIssuer = "freshrecipes-studio"

// HMACClaims are the claims of tokens signed with the shared secret.
type HMACClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateHMACToken parses a token signed with secret.
func ValidateHMACToken(tokenString, secret string) (*HMACClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &HMACClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*HMACClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no userId")
	}
	return claims, nil
}

// IssueHMACToken signs a token for userID that expires after ttl. A zero ttl
// issues a token without expiry.
func IssueHMACToken(secret, userID, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("no signing secret configured")
	}
	claims := HMACClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   hmacIssuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
