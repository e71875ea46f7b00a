package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages payment records.
type Service interface {
	List(ctx context.Context) ([]models.Payment, error)
	Get(ctx context.Context, id uint64) (*models.Payment, error)
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
	Update(ctx context.Context, id uint64, input UpdateInput) (*models.Payment, error)
	Delete(ctx context.Context, id uint64) error
}

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

// NewService wires the payments service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) List(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return payments, nil
}

func (s *service) Get(ctx context.Context, id uint64) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Payment %d not found", id)
	}
	return payment, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	status := enums.PaymentStatusPending
	if input.Status != "" {
		if status, err = enums.ParsePaymentStatus(input.Status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
	}

	var created *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", input.OrderID)
		}
		existing, err := repo.FindByOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "Order %s already has a payment", input.OrderID)
		}

		payment := &models.Payment{
			OrderID:       input.OrderID,
			PaymentMethod: method,
			Status:        status,
			Amount:        order.TotalAmount,
			Description:   input.Description,
		}
		if input.Amount != nil {
			payment.Amount = *input.Amount
		}
		if err := repo.Create(ctx, payment); err != nil {
			return err
		}
		created = payment
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "Order %s already has a payment", input.OrderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uint64, input UpdateInput) (*models.Payment, error) {
	updates := map[string]any{}
	if input.PaymentMethod != nil {
		method, err := enums.ParsePaymentMethod(*input.PaymentMethod)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		updates["payment_method"] = method
	}
	var status enums.PaymentStatus
	if input.Status != nil {
		parsed, err := enums.ParsePaymentStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		status = parsed
	}
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
		}
		updates["amount"] = *input.Amount
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Payment %d not found", id)
		}
		if status != "" && status != payment.Status {
			updates["status"] = status
			updates["status_changed_at"] = s.now().UTC()
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uint64) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Payment %d not found", id)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete payment")
	}
	return nil
}
