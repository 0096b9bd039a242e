package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// クエリの形式エラー。Error()がそのままレスポンスになる
type paramError struct {
	name string
}

func (e *paramError) Error() string { return "invalid " + e.name }

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{name: name}
	}
	return n, nil
}

// 空ならnil
func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &paramError{name: name}
	}
	return &n, nil
}

func queryBoolPtr(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, &paramError{name: name}
	}
	return &b, nil
}
