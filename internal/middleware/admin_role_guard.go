package middleware

import (
	"net/http"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain/model"
	"coffeeshop/internal/repository"

	"github.com/labstack/echo/v4"
)

// ADMIN以外は403。
// TokenVersionGuardを通っていればDBのroleを使う（降格がすぐ効く）
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u, ok := currentUser(c); ok {
				if !u.IsAdmin() {
					return c.JSON(http.StatusForbidden, errorJSON("admin only"))
				}
				return next(c)
			}

			role, _ := c.Get(CtxUserRoleKey).(string)
			if role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if model.Role(role) != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
			return next(c)
		}
	}
}

// /admin 配下の共通チェーン: JWT → token_version → ADMIN
func RequireAdmin(cfg config.Config, users repository.UserRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		AuthJWT(cfg),
		TokenVersionGuard(users),
		AdminRoleGuard(),
	}
}
