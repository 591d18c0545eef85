package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// AccessTokenValidity is how long an issued access token stays valid.
const AccessTokenValidity = time.Hour * 24

// GenerateToken issues a signed access token for the given user.
func GenerateToken(userID string, email string, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}

	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(AccessTokenValidity).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims checks the token signature and expiry and returns its
// claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// UserIDFromClaims extracts the "id" claim as a string.
func UserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid userID format")
	}
	return id, nil
}
