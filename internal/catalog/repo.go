package catalog

import (
	"context"

	"github.com/letrinh/letrinh-backend/internal/repo"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads products and variant options.
type Repository struct {
	repo.Base
}

// NewRepository binds a catalog repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// FindProduct returns nil, nil when the product does not exist.
func (r *Repository) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	return repo.FindOne[models.Product](ctx, r.Base, "id = ?", id)
}

// FindVariantOption returns nil, nil when the option does not exist.
func (r *Repository) FindVariantOption(ctx context.Context, id string) (*models.VariantOption, error) {
	return repo.FindOne[models.VariantOption](ctx, r.Base, "id = ?", id)
}

// FindVariantOptions loads the options matching ids, keyed by id. Missing ids
// are simply absent from the result.
func (r *Repository) FindVariantOptions(ctx context.Context, ids []string) (map[string]models.VariantOption, error) {
	out := make(map[string]models.VariantOption, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var options []models.VariantOption
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&options).Error; err != nil {
		return nil, err
	}
	for _, option := range options {
		out[option.ID] = option
	}
	return out, nil
}
