package repository

import "context"

// 同じtxにぶら下がったrepository一式
type TxRepos interface {
	Orders() OrderRepository
	Products() ProductRepository
	AuditLogs() AuditLogRepository
}

// fnがerrorを返せば全部rollback。注文の一括作成と、管理操作＋監査ログで使う
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
