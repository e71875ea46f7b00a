package customers

import (
	"context"

	"github.com/letrinh/letrinh-backend/internal/repo"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes customer lookups and order history counts.
type Repository struct {
	repo.Base
}

// NewRepository binds a customers repository to db.
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

// FindByID returns nil, nil when the customer does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	return repo.FindOne[models.Customer](ctx, r.Base, "id = ?", id)
}

// CountByCustomer counts committed orders placed by customerID, ignoring the
// order ids listed in exclude.
func (r *Repository) CountByCustomer(ctx context.Context, customerID string, exclude ...string) (int64, error) {
	var count int64
	query := r.DB(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
