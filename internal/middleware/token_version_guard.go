package middleware

import (
	"net/http"

	"coffeeshop/internal/domain/model"
	"coffeeshop/internal/repository"

	"github.com/labstack/echo/v4"
)

// DBから読み直したユーザー（*model.User）
const CtxCurrentUserKey = "current_user"

// JWTのtvとDBのtoken_versionを突き合わせる。
// ログアウト・強制ログアウトでtoken_versionが上がると、発行済みトークンは全部ここで落ちる。
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if userID <= 0 || !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			switch {
			case err != nil || user == nil:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case !user.IsActive:
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			case user.TokenVersion != tv:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxCurrentUserKey, user)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(CtxCurrentUserKey).(*model.User)
	return u, ok && u != nil
}
