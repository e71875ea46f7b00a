package discounts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes discount management and eligibility previews.
type Service interface {
	Check(ctx context.Context, code string, order OrderInput) (Result, error)
	Applicable(ctx context.Context, order OrderInput) ([]models.Discount, error)
	Create(ctx context.Context, input DiscountInput) (*models.Discount, error)
	Update(ctx context.Context, id uint64, input DiscountInput) (*models.Discount, error)
	Delete(ctx context.Context, idOrCode string) error
	Get(ctx context.Context, id uint64) (*models.Discount, error)
	SearchByCode(ctx context.Context, fragment string) (*models.Discount, error)
	List(ctx context.Context) ([]Listing, error)
	ConditionTypes(ctx context.Context) ([]string, error)
	OrdersByDiscount(ctx context.Context, id uint64) ([]OrderUsage, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	evaluator *Evaluator
}

// NewService wires the discount service.
func NewService(repo *Repository, tx txRunner, evaluator *Evaluator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discounts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator required")
	}
	return &service{repo: repo, tx: tx, evaluator: evaluator}, nil
}

func (s *service) Check(ctx context.Context, code string, order OrderInput) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	discount, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
	}
	result, err := s.evaluator.Evaluate(ctx, discount, order.Snapshot(), ModePreview)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "evaluate discount")
	}
	return result, nil
}

func (s *service) Applicable(ctx context.Context, order OrderInput) ([]models.Discount, error) {
	active, err := s.repo.ListActive(ctx, s.evaluator.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active discounts")
	}
	snap := order.Snapshot()
	out := make([]models.Discount, 0, len(active))
	for i := range active {
		result, err := s.evaluator.Evaluate(ctx, &active[i], snap, ModePreview)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "evaluate discount")
		}
		if result.Applicable() {
			out = append(out, active[i])
		}
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input DiscountInput) (*models.Discount, error) {
	discount, err := buildDiscount(input, DefaultStartDate, DefaultEndDate)
	if err != nil {
		return nil, err
	}
	discount.Conditions = conditionModels(input.Conditions)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, discount)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "Discount code %s already exists", discount.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create discount")
	}
	return discount, nil
}

func (s *service) Update(ctx context.Context, id uint64, input DiscountInput) (*models.Discount, error) {
	var updated *models.Discount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, ReasonNotFound)
		}

		discount, err := buildDiscount(input, existing.StartDate, existing.EndDate)
		if err != nil {
			return err
		}
		discount.ID = existing.ID
		if err := repo.Update(ctx, discount, conditionModels(input.Conditions)); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "Discount code %s already exists", input.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update discount")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, idOrCode string) error {
	idOrCode = strings.TrimSpace(idOrCode)
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var discount *models.Discount
		if id, err := strconv.ParseUint(idOrCode, 10, 64); err == nil {
			if discount, err = repo.FindByID(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
			}
		}
		if discount == nil {
			found, err := repo.FindByCode(ctx, idOrCode)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
			}
			discount = found
		}
		if discount == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, ReasonNotFound)
		}

		if err := repo.DeleteConditions(ctx, discount.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete discount conditions")
		}
		if err := repo.Delete(ctx, discount.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete discount")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uint64) (*models.Discount, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount")
	}
	if discount == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, ReasonNotFound)
	}
	return discount, nil
}

func (s *service) SearchByCode(ctx context.Context, fragment string) (*models.Discount, error) {
	discount, err := s.repo.SearchByCode(ctx, strings.TrimSpace(fragment))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search discount")
	}
	if discount == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, ReasonNotFound)
	}
	return discount, nil
}

func (s *service) List(ctx context.Context) ([]Listing, error) {
	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discounts")
	}
	out := make([]Listing, 0, len(discounts))
	for _, discount := range discounts {
		usage, err := s.repo.OrdersByDiscount(ctx, discount.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discount orders")
		}
		out = append(out, Listing{Discount: discount, Orders: usage})
	}
	return out, nil
}

func (s *service) ConditionTypes(ctx context.Context) ([]string, error) {
	types, err := s.repo.ConditionTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list condition types")
	}
	return types, nil
}

func (s *service) OrdersByDiscount(ctx context.Context, id uint64) ([]OrderUsage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	usage, err := s.repo.OrdersByDiscount(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discount orders")
	}
	return usage, nil
}

// buildDiscount validates input and fills missing dates from the fallbacks.
func buildDiscount(input DiscountInput, fallbackStart, fallbackEnd time.Time) (*models.Discount, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	kind, err := enums.ParseDiscountKind(input.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type").
			WithDetails(map[string]any{"type": input.Kind})
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
	}
	if kind == enums.DiscountKindPercent && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent discount must not exceed 100")
	}

	start, end := fallbackStart, fallbackEnd
	if input.StartDate != nil {
		start = *input.StartDate
	}
	if input.EndDate != nil {
		end = *input.EndDate
	}
	if start.After(end) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "The start date must be before the end date")
	}

	return &models.Discount{
		Code:        code,
		Kind:        kind,
		Value:       input.Value,
		Description: input.Description,
		StartDate:   start.UTC(),
		EndDate:     end.UTC(),
	}, nil
}
