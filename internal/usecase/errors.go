package usecase

import (
	"errors"
	"fmt"
	"strings"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 注文まわりのエラー
var (
	//400 カートが空
	ErrEmptyCart = errors.New("cart is empty")
	//500 保存に失敗。原因はログにだけ出す
	ErrSubmissionFailed = errors.New("failed to create order")
)

// 400 必須項目が足りない・形式が違う。Fieldsは項目名（チェック順）
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// errors.Is(err, ErrValidation) でも拾えるように
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// 404 存在しない商品が含まれている
type ProductsNotFoundError struct {
	IDs []string
}

func (e *ProductsNotFoundError) Error() string {
	return "products not found: " + strings.Join(e.IDs, ", ")
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func AsProductsNotFoundError(err error) (*ProductsNotFoundError, bool) {
	var pe *ProductsNotFoundError
	ok := errors.As(err, &pe)
	return pe, ok
}
