package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin        = "ADMIN"
	RoleProfessional = "PROFESSIONAL"
	RoleReceptionist = "RECEPTIONIST"
)

var ErrUnexpectedSigningMethod = errors.New("unexpected signing method")

type Claims struct {
	jwt.RegisteredClaims
	UserID         string  `json:"user_id"`
	Role           string  `json:"role"`
	ProfessionalID *string `json:"professional_id,omitempty"`
}

// ValidRole aceita só os papéis conhecidos.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProfessional, RoleReceptionist:
		return true
	}
	return false
}

func BuildJWT(secret []byte, userID, role string, professionalID *string, exp time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		UserID:         userID,
		Role:           role,
		ProfessionalID: professionalID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
