package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// ログイン時にセットするcookie名
const AuthCookieName = "auth-token"

var errBadClaims = errors.New("invalid claims")

// ログインで発行するトークンの中身
type accessClaims struct {
	UserID       int64  `json:"sub"`
	Role         string `json:"role"`
	TokenVersion int    `json:"tv"`
	ExpiresAt    int64  `json:"exp"`
}

func (c *accessClaims) Valid() error {
	if c.UserID <= 0 || c.Role == "" || c.TokenVersion < 0 {
		return errBadClaims
	}
	if c.ExpiresAt == 0 || time.Now().Unix() >= c.ExpiresAt {
		return errBadClaims
	}
	return nil
}

// 管理画面用のJWT検証。
// Authorization: Bearer を優先し、無ければauth-token cookieを見る。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := extractToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims := &accessClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxTokenVersionKey, claims.TokenVersion)

			return next(c)
		}
	}
}

func extractToken(c echo.Context) (string, bool) {
	if authz := c.Request().Header.Get("Authorization"); authz != "" {
		scheme, raw, found := strings.Cut(authz, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		raw = strings.TrimSpace(raw)
		return raw, raw != ""
	}

	ck, err := c.Cookie(AuthCookieName)
	if err != nil {
		return "", false
	}
	raw := strings.TrimSpace(ck.Value)
	return raw, raw != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
