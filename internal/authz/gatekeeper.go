package authz

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/pkg/contextkeys"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/utils"
)

type Gatekeeper struct {
	perms  map[string]map[string]bool
	logger *zap.Logger
}

func NewGatekeeper(logger *zap.Logger) *Gatekeeper {
	perms := make(map[string]map[string]bool, len(defaultRolePermissions))
	for role, list := range defaultRolePermissions {
		set := make(map[string]bool, len(list))
		for _, p := range list {
			set[p] = true
		}
		perms[role] = set
	}
	return &Gatekeeper{perms: perms, logger: logger}
}

// Can reports whether role holds permission. Unknown roles hold nothing.
func (g *Gatekeeper) Can(role, permission string) bool {
	perms := g.perms[role]
	if perms[Superuser] {
		return true
	}
	return perms[permission]
}

// Require rejects requests whose token role lacks permission. Requests without a
// token carry no role and are rejected too.
func (g *Gatekeeper) Require(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if !g.Can(role, permission) {
				g.logger.Warn("permission denied",
					zap.String("role", role),
					zap.String("permission", permission),
					zap.String("path", c.Path()),
				)
				return utils.ErrorResponse(c, apperrors.ErrForbidden, g.logger)
			}
			return next(c)
		}
	}
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(contextkeys.ActorRoleKey).(string)
	return role
}
