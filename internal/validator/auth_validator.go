package validator

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"coffeeshop/internal/repository"
	"coffeeshop/internal/usecase"
)

const (
	userNameMax    = 255
	passwordMin    = 8
	passwordMaxLen = 72 // bcryptが見るのは72byteまで
)

var (
	// ログイン入力が不正。どの項目かは返さない
	ErrInvalidInput = fmt.Errorf("invalid input: %w", usecase.ErrValidation)

	ErrEmailAlreadyUsed = fmt.Errorf("email already used: %w", usecase.ErrConflict)
)

type authValidator struct {
	users repository.UserRepository
}

func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// 項目チェック（name → email → password）のあとでemail重複を見る
func (v *authValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	var fields []string
	if name == "" || utf8.RuneCountInString(name) > userNameMax {
		fields = append(fields, "name")
	}
	if !isEmailLike(email) {
		fields = append(fields, "email")
	}
	if len(password) < passwordMin || len(password) > passwordMaxLen {
		fields = append(fields, "password")
	}
	if len(fields) > 0 {
		return &usecase.ValidationError{Fields: fields}
	}

	u, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if u != nil {
		return ErrEmailAlreadyUsed
	}
	return nil
}

func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if password == "" || !isEmailLike(strings.TrimSpace(email)) {
		return ErrInvalidInput
	}
	return nil
}

// "Name <a@b>" 形式は受けない
func isEmailLike(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
