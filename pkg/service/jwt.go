package service

import (
	"errors"
	"time"

	apperrors "field-crm/pkg/errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ActorClaims identifies the dispatcher, technician or manager behind a request.
type ActorClaims struct {
	ActorID string `json:"actorId"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateToken(actorID, role string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type jwtService struct {
	secretKey string
}

func NewJWTService(secretKey string) JWTService {
	return &jwtService{secretKey: secretKey}
}

func (s *jwtService) GenerateToken(actorID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ActorClaims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(s.secretKey))
}

func (s *jwtService) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(s.secretKey), nil
		default:
			return nil, apperrors.ErrInvalidSigningMethod
		}
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid || claims.ActorID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
