package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"site-entry/pkg/api"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/service"
	"site-entry/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth resolves the bearer token into an Actor and stores it on the request
// context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			m.logger.Warn("AuthMiddleware: bad authorization header", zap.Error(err))
			return api.ErrorResponse(c, err, m.logger)
		}

		actor, err := m.jwtService.Resolve(token)
		if err != nil {
			m.logger.Warn("AuthMiddleware: token rejected", zap.Error(err))
			return api.ErrorResponse(c, err, m.logger)
		}

		c.SetRequest(c.Request().WithContext(utils.WithActor(c.Request().Context(), actor)))
		m.logger.Debug("AuthMiddleware: authenticated",
			zap.Int64("userID", actor.UserID),
			zap.String("role", string(actor.Role)),
			zap.Int64("companyID", actor.CompanyID),
		)
		return next(c)
	}
}

// bearerToken reads the Authorization header, or the `token` query parameter
// for websocket upgrades where browsers cannot set headers.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if t := c.QueryParam("token"); t != "" {
			return t, nil
		}
		return "", apperrors.ErrEmptyAuthHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.ErrInvalidAuthHeader
	}
	return parts[1], nil
}
