package middleware

import (
	"net/http"
	"time"

	"coffeeshop/internal/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CartSessionCookieName = "cart_session"
	CtxCartSessionKey     = "cart_session" // string
)

// CartSessionはカートの持ち主を決める。
// cookieが無い・壊れているときは新しいIDを発行してcookieに入れる。
func CartSession(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(CartSessionCookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					id = ck.Value
				}
			}

			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     CartSessionCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.CartTTL / time.Second),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(CtxCartSessionKey, id)
			return next(c)
		}
	}
}

// handlerから使う
func CartSessionID(c echo.Context) string {
	id, _ := c.Get(CtxCartSessionKey).(string)
	return id
}
