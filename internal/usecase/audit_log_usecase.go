package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogSearchInput struct {
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   string
	Since        time.Time
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

var knownAuditActions = map[model.AuditAction]bool{
	model.AuditActionCreateProduct: true,
	model.AuditActionUpdateProduct: true,
	model.AuditActionDeleteProduct: true,
	model.AuditActionUpdateOrder:   true,
	model.AuditActionDeleteOrder:   true,
}

// 管理操作の履歴
func (u *AuditLogUsecase) Search(ctx context.Context, in AuditLogSearchInput) (AuditLogListOutput, error) {
	if in.Page < 1 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 200 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.ActorUserID < 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid actor_user_id")
	}

	q := repo.AuditLogQuery{
		ActorUserID: in.ActorUserID,
		ResourceID:  strings.TrimSpace(in.ResourceID),
		Since:       in.Since,
		Page:        in.Page,
		Limit:       in.Limit,
	}

	// 大文字小文字はどちらでも受ける
	if a := strings.ToUpper(strings.TrimSpace(in.Action)); a != "" {
		if !knownAuditActions[model.AuditAction(a)] {
			return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		q.Action = model.AuditAction(a)
	}
	switch rt := model.AuditResourceType(strings.ToLower(strings.TrimSpace(in.ResourceType))); rt {
	case "":
	case model.AuditResourceProduct, model.AuditResourceOrder:
		q.ResourceType = rt
	default:
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}

	items, total, err := u.logs.Search(ctx, q)
	if err != nil {
		return AuditLogListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return AuditLogListOutput{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
