package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Human-readable reasons returned with inapplicable results.
const (
	ReasonNotFound             = "Discount not found"
	ReasonExpired              = "Discount is expired"
	ReasonMinValue             = "Đơn hàng không đạt giá trị tối thiểu"
	ReasonTotalQuantity        = "Tổng số lượng sản phẩm không đạt giá trị tối thiểu"
	ReasonFirstOrder           = "Mã giảm giá chỉ áp dụng cho đơn hàng đầu tiên"
	ReasonUnsupportedCondition = "Điều kiện giảm giá không được hỗ trợ"
)

// Machine-readable reason codes, used as metric labels.
const (
	CodeNotFound             = "not_found"
	CodeExpired              = "expired"
	CodeMinValue             = "min_value"
	CodeTotalQuantity        = "total_quantity"
	CodeFirstOrder           = "first_order"
	CodeUnsupportedCondition = "unsupported_condition"
)

// Mode controls whether an evaluation may produce a capped total.
type Mode int

const (
	// ModeSettle is used while persisting an order.
	ModeSettle Mode = iota
	// ModePreview is used by checks that never persist anything.
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "settle"
}

// Snapshot is the order state a discount is judged against.
type Snapshot struct {
	CustomerID    string
	TotalAmount   decimal.Decimal
	TotalQuantity int
	// ExcludeOrderID is left out of the first-order count. Settlement sets it
	// to the order being written.
	ExcludeOrderID string
}

// Result is the outcome of one evaluation.
type Result struct {
	Status     enums.EligibilityStatus
	Discount   *models.Discount
	Reason     string
	ReasonCode string
	// CappedTotal is set when a MAX_DISCOUNT_VALUE condition capped the order
	// total during settlement. The caller decides whether to adopt it.
	CappedTotal *decimal.Decimal
}

// Applicable reports whether the discount may be applied.
func (r Result) Applicable() bool {
	return r.Status == enums.EligibilityApplicable
}

func inapplicable(reason, code string) Result {
	return Result{Status: enums.EligibilityInapplicable, Reason: reason, ReasonCode: code}
}

// NotFoundResult is returned for codes that match no discount.
func NotFoundResult() Result {
	return inapplicable(ReasonNotFound, CodeNotFound)
}

// OrderCounter counts a customer's existing orders.
type OrderCounter interface {
	CountByCustomer(ctx context.Context, customerID string, exclude ...string) (int64, error)
}

type evaluationRecorder interface {
	ObserveEvaluation(outcome, reason string)
}

// Evaluator decides whether a discount applies to an order snapshot.
type Evaluator struct {
	counter  OrderCounter
	polarity Polarity
	now      func() time.Time
	recorder evaluationRecorder
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock overrides the time source used for the validity window.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPolarity sets how TOTAL_QUANTITY failures are reported.
func WithPolarity(p Polarity) EvaluatorOption {
	return func(e *Evaluator) {
		if p != "" {
			e.polarity = p
		}
	}
}

// WithRecorder attaches an evaluation metrics recorder.
func WithRecorder(r evaluationRecorder) EvaluatorOption {
	return func(e *Evaluator) {
		e.recorder = r
	}
}

// NewEvaluator builds an evaluator that counts prior orders through counter.
func NewEvaluator(counter OrderCounter, opts ...EvaluatorOption) (*Evaluator, error) {
	if counter == nil {
		return nil, fmt.Errorf("order counter required")
	}
	e := &Evaluator{
		counter:  counter,
		polarity: PolarityInverted,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// WithCounter returns a copy of e that counts orders through counter. The
// settlement flow uses it to count inside its own transaction.
func (e *Evaluator) WithCounter(counter OrderCounter) *Evaluator {
	if counter == nil {
		return e
	}
	clone := *e
	clone.counter = counter
	return &clone
}

// Now returns the evaluator's current time.
func (e *Evaluator) Now() time.Time {
	return e.now()
}

// Evaluate checks every condition of discount against snap. Conditions are
// combined with AND and the first failure's reason is reported. A nil
// discount yields the not-found result. Errors are reserved for failures of
// the order counter.
func (e *Evaluator) Evaluate(ctx context.Context, discount *models.Discount, snap Snapshot, mode Mode) (Result, error) {
	result, err := e.evaluate(ctx, discount, snap, mode)
	if err != nil {
		return Result{}, err
	}
	if e.recorder != nil {
		e.recorder.ObserveEvaluation(string(result.Status), result.ReasonCode)
	}
	return result, nil
}

func (e *Evaluator) evaluate(ctx context.Context, discount *models.Discount, snap Snapshot, mode Mode) (Result, error) {
	if discount == nil {
		return NotFoundResult(), nil
	}
	if !discount.ActiveAt(e.now()) {
		return inapplicable(ReasonExpired, CodeExpired), nil
	}

	total := snap.TotalAmount
	var capped *decimal.Decimal
	var priorOrders *int64

	for _, cond := range DecodeConditions(discount.Conditions) {
		switch c := cond.(type) {
		case MinValue:
			if total.LessThan(c.Threshold) {
				return inapplicable(ReasonMinValue, CodeMinValue), nil
			}
		case TotalQuantity:
			if decimal.NewFromInt(int64(snap.TotalQuantity)).LessThan(c.Threshold) {
				return inapplicable(e.totalQuantityReason(), CodeTotalQuantity), nil
			}
		case FirstOrder:
			if priorOrders == nil {
				count, err := e.countPrior(ctx, snap)
				if err != nil {
					return Result{}, err
				}
				priorOrders = &count
			}
			if *priorOrders != 0 {
				return inapplicable(ReasonFirstOrder, CodeFirstOrder), nil
			}
		case MaxDiscountValue:
			if mode == ModePreview {
				continue
			}
			if nominalTotal(discount, total).GreaterThan(c.Ceiling) {
				ceiling := c.Ceiling
				total = ceiling
				capped = &ceiling
			}
		default:
			return inapplicable(ReasonUnsupportedCondition, CodeUnsupportedCondition), nil
		}
	}

	return Result{
		Status:      enums.EligibilityApplicable,
		Discount:    discount,
		CappedTotal: capped,
	}, nil
}

// totalQuantityReason is the message for a failed TOTAL_QUANTITY condition.
// Inverted polarity keeps the legacy response, which carries no message.
func (e *Evaluator) totalQuantityReason() string {
	if e.polarity == PolarityInverted {
		return ""
	}
	return ReasonTotalQuantity
}

func (e *Evaluator) countPrior(ctx context.Context, snap Snapshot) (int64, error) {
	var exclude []string
	if snap.ExcludeOrderID != "" {
		exclude = append(exclude, snap.ExcludeOrderID)
	}
	count, err := e.counter.CountByCustomer(ctx, snap.CustomerID, exclude...)
	if err != nil {
		return 0, fmt.Errorf("count orders for customer %s: %w", snap.CustomerID, err)
	}
	return count, nil
}
