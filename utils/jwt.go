package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"time"

	"tutorbook/config"
	"tutorbook/models"

	"github.com/golang-jwt/jwt"
)

func secretKey() []byte {
	if config.AppConfig.JWTSecret != "" {
		return []byte(config.AppConfig.JWTSecret)
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("tutorbook-dev-secret")
}

// GenerateToken issues an access token for the principal.
func GenerateToken(p models.Principal, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   p.UserID,
		"role":  string(p.Role),
		"email": p.Email,
		"name":  p.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// HashToken computes a SHA-256 hash of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
}

// ParsePrincipal validates the token and reads the caller out of its claims.
func ParsePrincipal(tokenString string) (*models.Principal, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, isState := claims["purpose"]; isState {
		return nil, errors.New("state tokens cannot authenticate requests")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	role, _ := claims["role"].(string)
	switch models.Role(role) {
	case models.RoleStudent, models.RoleTutor, models.RoleAdmin:
	default:
		return nil, errors.New("token does not contain a valid 'role' claim")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &models.Principal{UserID: sub, Role: models.Role(role), Email: email, Name: name}, nil
}

// GenerateStateToken signs a short lived token bound to one purpose, used as
// the OAuth state parameter.
func GenerateStateToken(subject, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     subject,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey())
}

// ParseStateToken returns the subject of a state token issued for purpose.
func ParseStateToken(tokenString, purpose string) (string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid state")
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return "", errors.New("state issued for a different purpose")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("state has no subject")
	}
	return sub, nil
}
