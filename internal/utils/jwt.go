package utils

import (
	"errors"
	"time"

	"gatepay/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "gatepay-api"

// GenerateToken signs an HS256 access token for claims valid for ttl.
func GenerateToken(claims models.ClientClaims, secret []byte, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("JWT_SECRET not configured")
	}
	expires := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   claims.ClientID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// ParseToken parses and validates a JWT token string.
func ParseToken(tokenStr string, secret []byte) (*models.ClientClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT_SECRET not configured")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &models.ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.ClientClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
