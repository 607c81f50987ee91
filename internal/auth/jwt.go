package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 7 * 24 * time.Hour

var jwtSecret []byte

func InitJWTSecret() error {
	secret := os.Getenv("JWT_SECRET")

	if secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	jwtSecret = []byte(secret)

	return nil
}

func GenerateJWT(userID uint, email string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(tokenLifetime).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// VerifyJWT checks the signature and expiry and returns the claims.
func VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)

	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// UserIDFromClaims extracts the numeric user id, which JSON decoding
// leaves as a float64.
func UserIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	id, ok := claims["user_id"].(float64)

	if !ok {
		return 0, false
	}

	return uint(id), true
}
