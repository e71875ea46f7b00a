package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/letrinh/letrinh-backend/internal/catalog"
	"github.com/letrinh/letrinh-backend/internal/customers"
	"github.com/letrinh/letrinh-backend/internal/discounts"
	"github.com/letrinh/letrinh-backend/internal/payments"
	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/letrinh/letrinh-backend/pkg/outbox/payloads"
	"github.com/letrinh/letrinh-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settlementRecorder interface {
	ObserveSettlement(outcome string, elapsed time.Duration)
}

// Settlement outcomes reported to the recorder.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Service defines order settlement and order-level operations.
type Service interface {
	Settle(ctx context.Context, input SettleInput) (*SettleResult, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status enums.PaymentStatus) (*PaymentStatusResult, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByPaymentStatus(ctx context.Context, status enums.PaymentStatus) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	LineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error)
	Update(ctx context.Context, orderID string, input UpdateInput) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ServiceParams collects the collaborators of the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Catalog   *catalog.Repository
	Customers *customers.Repository
	Discounts *discounts.Repository
	Payments  *payments.Repository
	Evaluator *discounts.Evaluator
	Logger    *logger.Logger
	Metrics   settlementRecorder
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	catalog   *catalog.Repository
	customers *customers.Repository
	discounts *discounts.Repository
	payments  *payments.Repository
	evaluator *discounts.Evaluator
	logg      *logger.Logger
	metrics   settlementRecorder
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case p.Customers == nil:
		return nil, fmt.Errorf("customers repository required")
	case p.Discounts == nil:
		return nil, fmt.Errorf("discounts repository required")
	case p.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case p.Evaluator == nil:
		return nil, fmt.Errorf("discount evaluator required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      p.Repo,
		tx:        p.Tx,
		outbox:    p.Outbox,
		catalog:   p.Catalog,
		customers: p.Customers,
		discounts: p.Discounts,
		payments:  p.Payments,
		evaluator: p.Evaluator,
		logg:      p.Logger,
		metrics:   p.Metrics,
		now:       now,
	}, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*SettleResult, error) {
	started := s.now()
	result, err := s.settle(ctx, input)
	s.observe(settlementOutcome(err), s.now().Sub(started))
	return result, err
}

// settle writes the order, its line items, applied discounts, the optional
// pending payment and the order.created outbox event in one transaction. A
// caller-supplied total is stored as the provisional total, but discounts are
// always judged against the total derived from the line items and shipping.
func (s *service) settle(ctx context.Context, input SettleInput) (*SettleResult, error) {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if input.CustomerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}
	if len(input.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products are required")
	}
	for i, line := range input.Products {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"line": i, "product_id": line.ProductID})
		}
	}
	var method enums.PaymentMethod
	if input.PaymentMethod != nil && strings.TrimSpace(*input.PaymentMethod) != "" {
		parsed, err := enums.ParsePaymentMethod(*input.PaymentMethod)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		method = parsed
	}

	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		orderID = uuid.NewString()
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	ctx = s.logg.WithCustomerID(ctx, input.CustomerID)

	result := &SettleResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now().UTC()
		repo := s.repo.WithTx(tx)

		customer, err := s.customers.WithTx(tx).FindByID(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Customer %s not found", input.CustomerID)
		}

		orderDate := now
		if input.OrderDate != nil {
			orderDate = input.OrderDate.UTC()
		}
		order := &models.Order{
			ID:              orderID,
			CustomerID:      customer.ID,
			ShippingAddress: input.ShippingAddress,
			ShippingFee:     input.ShippingFee,
			OrderDate:       orderDate,
			Note:            input.Note,
		}
		if input.TotalAmount != nil {
			order.TotalAmount = *input.TotalAmount
		}
		if err := repo.Create(ctx, order); err != nil {
			return err
		}

		lines := make([]models.OrderLineItem, 0, len(input.Products))
		linesTotal := decimal.Zero
		quantity := 0
		for _, line := range input.Products {
			item, err := s.buildLineItem(ctx, tx, order.ID, line)
			if err != nil {
				return err
			}
			if err := repo.CreateLineItem(ctx, item); err != nil {
				return err
			}
			lines = append(lines, *item)
			linesTotal = linesTotal.Add(item.Price)
			quantity += item.Quantity
		}
		eligibleTotal := linesTotal.Add(order.ShippingFee)
		if input.TotalAmount == nil {
			order.TotalAmount = eligibleTotal
			if err := repo.UpdateTotal(ctx, order.ID, order.TotalAmount); err != nil {
				return err
			}
		}

		evaluator := s.evaluator.WithCounter(s.customers.WithTx(tx))
		discountRepo := s.discounts.WithTx(tx)
		applied := make([]models.OrderDiscount, 0, len(input.Discounts))
		appliedIDs := make([]uint64, 0, len(input.Discounts))
		for _, ref := range input.Discounts {
			discount, err := discountRepo.FindByID(ctx, ref.ID)
			if err != nil {
				return err
			}
			if discount == nil {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "Discount %d not found", ref.ID)
			}
			verdict, err := evaluator.Evaluate(ctx, discount, discounts.Snapshot{
				CustomerID:     order.CustomerID,
				TotalAmount:    eligibleTotal,
				TotalQuantity:  quantity,
				ExcludeOrderID: order.ID,
			}, discounts.ModeSettle)
			if err != nil {
				return err
			}
			if !verdict.Applicable() {
				return pkgerrors.New(pkgerrors.CodeValidation, "Invalid discount").WithDetails(map[string]any{
					"discount_id": discount.ID,
					"code":        discount.Code,
					"reason":      verdict.Reason,
					"reason_code": verdict.ReasonCode,
				})
			}

			before := order.TotalAmount
			if verdict.CappedTotal != nil {
				eligibleTotal = *verdict.CappedTotal
				order.TotalAmount = *verdict.CappedTotal
				if err := repo.UpdateTotal(ctx, order.ID, order.TotalAmount); err != nil {
					return err
				}
			}
			amount := before.Sub(order.TotalAmount)
			if amount.IsNegative() {
				amount = decimal.Zero
			}
			link := models.OrderDiscount{
				OrderID:        order.ID,
				DiscountID:     discount.ID,
				AppliedAt:      now,
				DiscountAmount: amount,
			}
			if err := discountRepo.CreateOrderDiscount(ctx, &link); err != nil {
				return err
			}
			applied = append(applied, link)
			appliedIDs = append(appliedIDs, discount.ID)
		}

		if method != "" {
			payment := &models.Payment{
				OrderID:       order.ID,
				PaymentMethod: method,
				Status:        enums.PaymentStatusPending,
				Amount:        order.TotalAmount,
			}
			if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
				return err
			}
			result.Payment = payment
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				TotalAmount: order.TotalAmount,
				ShippingFee: order.ShippingFee,
				LineCount:   len(lines),
				DiscountIDs: appliedIDs,
				CreatedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result.Order = order
		result.LineItems = lines
		result.Discounts = applied
		return nil
	})
	if err != nil {
		return nil, s.settlementError(ctx, err)
	}

	s.logg.Info(ctx, "order settled")
	return result, nil
}

// buildLineItem resolves the product and options of one requested line.
func (s *service) buildLineItem(ctx context.Context, tx *gorm.DB, orderID string, line LineInput) (*models.OrderLineItem, error) {
	catalogRepo := s.catalog.WithTx(tx)
	product, err := catalogRepo.FindProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product %s not found", line.ProductID)
	}

	var options types.LineItemOptions
	if line.Options != nil {
		if line.Options.Size != nil && *line.Options.Size != "" {
			size, err := catalogRepo.FindVariantOption(ctx, *line.Options.Size)
			if err != nil {
				return nil, err
			}
			if size == nil {
				return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Variant option %s not found", *line.Options.Size)
			}
			options.Size = snapshotOption(*size)
		}
		if len(line.Options.Topping) > 0 {
			found, err := catalogRepo.FindVariantOptions(ctx, line.Options.Topping)
			if err != nil {
				return nil, err
			}
			for _, id := range line.Options.Topping {
				topping, ok := found[id]
				if !ok {
					return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Variant option %s not found", id)
				}
				options.Topping = append(options.Topping, *snapshotOption(topping))
			}
		}
	}

	unit := product.Price.Add(options.PriceDelta())
	if line.Price != nil {
		unit = *line.Price
	}
	return &models.OrderLineItem{
		OrderID:   orderID,
		ProductID: product.ID,
		Quantity:  line.Quantity,
		Price:     unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
		Options:   options,
	}, nil
}

func snapshotOption(option models.VariantOption) *types.OptionSnapshot {
	return &types.OptionSnapshot{
		ID:          option.ID,
		Label:       option.Label,
		PriceChange: option.PriceChange,
	}
}

// settlementError maps a rolled back settlement to its public error.
func (s *service) settlementError(ctx context.Context, err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		if typed.Code() == pkgerrors.CodeValidation {
			s.logg.Warn(ctx, "order settlement rejected: "+typed.Message())
		}
		return typed
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "Duplicate on Order ID")
	}
	s.logg.Error(ctx, "order settlement failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order settlement failed")
}

func settlementOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return outcomeConflict
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return outcomeRejected
	default:
		return outcomeError
	}
}

func (s *service) observe(outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSettlement(outcome, elapsed)
	}
}

func (s *service) UpdatePaymentStatus(ctx context.Context, orderID string, status enums.PaymentStatus) (*PaymentStatusResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", status)
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	var result *PaymentStatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", orderID)
		}
		paymentRepo := s.payments.WithTx(tx)
		payment, err := paymentRepo.FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if payment == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Payment for order %s not found", orderID)
		}
		if payment.Status == status {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "Order %s already has payment status %s", orderID, status)
		}

		previous := payment.Status
		changedAt := s.now().UTC()
		if err := paymentRepo.UpdateStatus(ctx, payment.ID, status, changedAt); err != nil {
			return err
		}
		payment.Status = status
		payment.StatusChangedAt = &changedAt

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   orderID,
			OccurredAt:    changedAt,
			Data: payloads.PaymentStatusChangedEvent{
				OrderID:        orderID,
				PaymentID:      payment.ID,
				PreviousStatus: previous,
				Status:         status,
				ChangedAt:      changedAt,
			},
		}); err != nil {
			return err
		}
		result = &PaymentStatusResult{Updated: true, Payment: payment}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		s.logg.Error(ctx, "payment status update failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", orderID)
	}
	return order, nil
}

func (s *service) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListByPaymentStatus(ctx context.Context, status enums.PaymentStatus) ([]models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", status)
	}
	orders, err := s.repo.ListByPaymentStatus(ctx, status, enums.ListedPaymentMethods())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders by payment status")
	}
	return orders, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	orders, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer orders")
	}
	return orders, nil
}

func (s *service) LineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", orderID)
	}
	items, err := s.repo.LineItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order line items")
	}
	return items, nil
}

func (s *service) Update(ctx context.Context, orderID string, input UpdateInput) (*models.Order, error) {
	updates := map[string]any{}
	if input.ShippingAddress != nil {
		updates["shipping_address"] = *input.ShippingAddress
	}
	if input.ShippingFee != nil {
		if input.ShippingFee.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping_fee must not be negative")
		}
		updates["shipping_fee"] = *input.ShippingFee
	}
	if input.TotalAmount != nil {
		if input.TotalAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "total_amount must not be negative")
		}
		updates["total_amount"] = *input.TotalAmount
	}
	if input.Note != nil {
		updates["note"] = *input.Note
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", orderID)
		}
		return repo.Update(ctx, orderID, updates)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	return s.Get(ctx, orderID)
}

func (s *service) Delete(ctx context.Context, orderID string) error {
	ctx = s.logg.WithOrderID(ctx, orderID)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Order %s not found", orderID)
		}
		if err := repo.DeleteLineItems(ctx, orderID); err != nil {
			return err
		}
		if err := s.payments.WithTx(tx).DeleteByOrder(ctx, orderID); err != nil {
			return err
		}
		if err := repo.DeleteOrderDiscounts(ctx, orderID); err != nil {
			return err
		}
		return repo.Delete(ctx, orderID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		s.logg.Error(ctx, "order delete failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	s.logg.Info(ctx, "order deleted")
	return nil
}
