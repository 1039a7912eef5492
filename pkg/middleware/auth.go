package middleware

import (
	"context"
	"strings"

	"field-crm/pkg/contextkeys"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/service"
	"field-crm/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
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

// Actor resolves the bearer token, when one is sent, into the request context.
// Requests without a token pass through and carry the actor in their payload instead.
func (m *AuthMiddleware) Actor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return next(c)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: malformed Authorization header")
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: token rejected", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		ctx := context.WithValue(c.Request().Context(), contextkeys.ActorIDKey, claims.ActorID)
		if claims.Role != "" {
			ctx = context.WithValue(ctx, contextkeys.ActorRoleKey, claims.Role)
		}
		c.SetRequest(c.Request().WithContext(ctx))

		m.logger.Debug("AuthMiddleware: actor resolved", zap.String("actorID", claims.ActorID))
		return next(c)
	}
}
