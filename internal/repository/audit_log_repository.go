package repository

import (
	"context"
	"time"

	"coffeeshop/internal/domain/model"
)

// 管理画面の監査ログ検索。ゼロ値の項目では絞り込まない
type AuditLogQuery struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   string
	Since        time.Time
	Page         int
	Limit        int
}

type AuditLogRepository interface {
	// 管理操作と同じtxの中で書く
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順。totalはページング前の件数
	Search(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, int64, error)
}
