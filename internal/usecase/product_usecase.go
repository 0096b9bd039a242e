package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"coffeeshop/internal/domain/model"
	repo "coffeeshop/internal/repository"

	"github.com/google/uuid"
)

// usecaseがValidatorInterfaceに依存する約束
type ProductValidator interface {
	ValidateCreate(in AdminCreateProductInput) error
	ValidateUpdate(in AdminUpdateProductInput) error
	ValidateListQuery(in ListProductsInput) error
}

type ProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	validator   ProductValidator
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	tx repo.TransactionManager,
	validator ProductValidator,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		tx:          tx,
		validator:   validator,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Q         string
	Available *bool
	MinPrice  *int64
	MaxPrice  *int64
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int             `json:"total"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	in.Q = strings.TrimSpace(in.Q)
	if err := u.validator.ValidateListQuery(in); err != nil {
		return ProductListOutput{}, err
	}

	items, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Q:         in.Q,
		Available: in.Available,
		MinPrice:  in.MinPrice,
		MaxPrice:  in.MaxPrice,
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{
		Items: items,
		Total: len(items),
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID string) (model.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

type AdminCreateProductInput struct {
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Description *string `json:"desc"`
	Image       *string `json:"image"`
	Available   *bool   `json:"available"`
}

// nilの項目は変更しない
type AdminUpdateProductInput struct {
	Name        *string `json:"name"`
	Price       *int64  `json:"price"`
	Description *string `json:"desc"`
	Image       *string `json:"image"`
	Available   *bool   `json:"available"`
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminCreateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
	in.Image = trimOptional(in.Image)
	if err := u.validator.ValidateCreate(in); err != nil {
		return model.Product{}, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//同名チェック（大文字小文字は区別しない）
		dup, err := r.Products().ExistsByName(ctx, in.Name, "")
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if dup {
			return NewHTTPError(http.StatusConflict, "product name already exists")
		}

		now := time.Now()
		created, err = r.Products().Create(ctx, model.Product{
			ID:          uuid.NewString(),
			Name:        in.Name,
			Price:       in.Price,
			Description: emptyToNil(in.Description),
			Image:       emptyToNil(in.Image),
			Available:   available,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "product name already exists")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionCreateProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   created.ID,
			BeforeJSON:   "{}",
			AfterJSON:    productAuditJSON(created),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return model.Product{}, asDBError(err)
	}
	return created, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID string, in AdminUpdateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := uuid.Parse(productID); err != nil {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	in.Description = trimOptional(in.Description)
	in.Image = trimOptional(in.Image)
	if err := u.validator.ValidateUpdate(in); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		next := before
		if in.Name != nil && *in.Name != before.Name {
			dup, err := r.Products().ExistsByName(ctx, *in.Name, productID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if dup {
				return NewHTTPError(http.StatusConflict, "product name already exists")
			}
			next.Name = *in.Name
		}
		if in.Price != nil {
			next.Price = *in.Price
		}
		if in.Description != nil {
			next.Description = emptyToNil(in.Description)
		}
		if in.Image != nil {
			next.Image = emptyToNil(in.Image)
		}
		if in.Available != nil {
			next.Available = *in.Available
		}
		next.UpdatedAt = time.Now()

		err = r.Products().Update(ctx, next)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "product name already exists")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		updated = next
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   productAuditJSON(before),
			AfterJSON:    productAuditJSON(next),
			CreatedAt:    next.UpdatedAt,
		})
	})
	if err != nil {
		return model.Product{}, asDBError(err)
	}
	return updated, nil
}

// 注文から参照されている商品は消せない
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID string) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := uuid.Parse(productID); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		has, err := r.Products().HasOrders(ctx, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if has {
			return NewHTTPError(http.StatusConflict, "product has orders")
		}

		err = r.Products().Delete(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   productAuditJSON(before),
			AfterJSON:    "{}",
			CreatedAt:    time.Now(),
		})
	})
	return asDBError(err)
}

// HTTPError以外（監査ログの保存失敗など）は500にそろえる
func asDBError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func productAuditJSON(p model.Product) string {
	b, err := json.Marshal(struct {
		Name        string  `json:"name"`
		Price       int64   `json:"price"`
		Description *string `json:"desc"`
		Image       *string `json:"image"`
		Available   bool    `json:"available"`
	}{p.Name, p.Price, p.Description, p.Image, p.Available})
	if err != nil {
		return "{}"
	}
	return string(b)
}
