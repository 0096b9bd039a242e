package repository

import (
	"context"

	"coffeeshop/internal/domain/model"
)

// 管理ユーザーの保存先。見つからない時は (nil, nil) を返す
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// name/email/role/is_active/last_login_at だけ書き戻す
	Update(ctx context.Context, user *model.User) error

	// ログアウト・強制ログアウト。対象がいなければErrNotFound
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
