package service

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"site-entry/internal/entities"
	apperrors "site-entry/pkg/errors"
)

type JwtCustomClaim struct {
	UserID         int64  `json:"userId"`
	Role           string `json:"role"`
	CompanyID      int64  `json:"companyId"`
	IsRefreshToken bool   `json:"isRefreshToken"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateTokens(actor entities.Actor) (string, string, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
	// Resolve turns an access token into the caller's identity.
	Resolve(tokenString string) (entities.Actor, error)
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type jwtService struct {
	SecretKey       string
	AccessTokenExp  time.Duration
	RefreshTokenExp time.Duration
	logger          *zap.Logger
}

func NewJWTService(secretKey string, accessTokenExp, refreshTokenExp time.Duration, logger *zap.Logger) JWTService {
	return &jwtService{
		SecretKey:       secretKey,
		AccessTokenExp:  accessTokenExp,
		RefreshTokenExp: refreshTokenExp,
		logger:          logger,
	}
}

func (s *jwtService) sign(actor entities.Actor, refresh bool, exp time.Time) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaim{
		UserID:         actor.UserID,
		Role:           string(actor.Role),
		CompanyID:      actor.CompanyID,
		IsRefreshToken: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(s.SecretKey))
}

func (s *jwtService) GenerateTokens(actor entities.Actor) (string, string, error) {
	now := time.Now()

	accessToken, err := s.sign(actor, false, now.Add(s.AccessTokenExp))
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.sign(actor, true, now.Add(s.RefreshTokenExp))
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *jwtService) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenExp
}

func (s *jwtService) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTokenExp
}

func (s *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(s.SecretKey), nil
		default:
			return nil, apperrors.ErrInvalidSigningMethod
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, apperrors.ErrTokenNotYetValid
		case errors.Is(err, apperrors.ErrInvalidSigningMethod):
			return nil, apperrors.ErrInvalidSigningMethod
		}
		s.logger.Debug("token parse failed", zap.Error(err))
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *jwtService) Resolve(tokenString string) (entities.Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return entities.Actor{}, err
	}
	if claims.IsRefreshToken {
		return entities.Actor{}, apperrors.ErrTokenIsNotAccess
	}
	role, err := entities.ParseRole(claims.Role)
	if err != nil {
		return entities.Actor{}, apperrors.ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return entities.Actor{}, apperrors.ErrInvalidToken
	}
	return entities.Actor{UserID: claims.UserID, Role: role, CompanyID: claims.CompanyID}, nil
}
