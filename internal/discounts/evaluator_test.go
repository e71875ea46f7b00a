package discounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
)

type stubCounter struct {
	count    func(ctx context.Context, customerID string, exclude ...string) (int64, error)
	calls    int
	excluded []string
}

func (s *stubCounter) CountByCustomer(ctx context.Context, customerID string, exclude ...string) (int64, error) {
	s.calls++
	s.excluded = append(s.excluded, exclude...)
	if s.count != nil {
		return s.count(ctx, customerID, exclude...)
	}
	return 0, nil
}

type recordedEvaluation struct {
	outcome string
	reason  string
}

type stubRecorder struct {
	seen []recordedEvaluation
}

func (s *stubRecorder) ObserveEvaluation(outcome, reason string) {
	s.seen = append(s.seen, recordedEvaluation{outcome: outcome, reason: reason})
}

var fixedNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func discountWith(kind enums.DiscountKind, value int64, conditions ...models.DiscountCondition) *models.Discount {
	return &models.Discount{
		ID:         7,
		Code:       "SUMMER",
		Kind:       kind,
		Value:      dec(value),
		StartDate:  fixedNow.Add(-24 * time.Hour),
		EndDate:    fixedNow.Add(24 * time.Hour),
		Conditions: conditions,
	}
}

func cond(kind enums.ConditionType, value int64) models.DiscountCondition {
	return models.DiscountCondition{ConditionType: kind, Value: dec(value)}
}

func newTestEvaluator(t *testing.T, counter OrderCounter, opts ...EvaluatorOption) *Evaluator {
	t.Helper()
	opts = append([]EvaluatorOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	e, err := NewEvaluator(counter, opts...)
	require.NoError(t, err)
	return e
}

func TestNewEvaluatorRequiresCounter(t *testing.T) {
	_, err := NewEvaluator(nil)
	require.Error(t, err)
}

func TestEvaluateMinValue(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 5000, cond(enums.ConditionMinValue, 100000))

	res, err := e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(50000)}, ModeSettle)
	require.NoError(t, err)
	assert.False(t, res.Applicable())
	assert.Equal(t, enums.EligibilityInapplicable, res.Status)
	assert.Equal(t, ReasonMinValue, res.Reason)
	assert.Equal(t, CodeMinValue, res.ReasonCode)

	res, err = e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(150000)}, ModeSettle)
	require.NoError(t, err)
	assert.True(t, res.Applicable())
	assert.Same(t, discount, res.Discount)
	assert.Empty(t, res.Reason)

	res, err = e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(100000)}, ModeSettle)
	require.NoError(t, err)
	assert.True(t, res.Applicable(), "threshold is inclusive")
}

func TestEvaluateNilDiscountIsNotFound(t *testing.T) {
	rec := &stubRecorder{}
	e := newTestEvaluator(t, &stubCounter{}, WithRecorder(rec))

	res, err := e.Evaluate(context.Background(), nil, Snapshot{}, ModePreview)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.Equal(t, []recordedEvaluation{{outcome: "inApplicable", reason: CodeNotFound}}, rec.seen)
}

func TestEvaluateExpiredShortCircuits(t *testing.T) {
	counter := &stubCounter{}
	e := newTestEvaluator(t, counter)
	discount := discountWith(enums.DiscountKindPercent, 10,
		cond(enums.ConditionFirstOrder, 0),
		models.DiscountCondition{ConditionType: "MYSTERY"},
	)
	discount.StartDate = fixedNow.Add(-72 * time.Hour)
	discount.EndDate = fixedNow.Add(-48 * time.Hour)

	for _, mode := range []Mode{ModeSettle, ModePreview} {
		res, err := e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1", TotalAmount: dec(1_000_000)}, mode)
		require.NoError(t, err)
		assert.Equal(t, ReasonExpired, res.Reason, mode.String())
		assert.Equal(t, CodeExpired, res.ReasonCode)
	}
	assert.Zero(t, counter.calls, "conditions must not run for expired discounts")
}

func TestEvaluateNotYetStartedIsExpired(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 1000)
	discount.StartDate = fixedNow.Add(time.Hour)

	res, err := e.Evaluate(context.Background(), discount, Snapshot{}, ModePreview)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestEvaluateTotalQuantity(t *testing.T) {
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionTotalQuantity, 3))

	cases := []struct {
		name       string
		polarity   Polarity
		quantity   int
		applicable bool
		reason     string
	}{
		{name: "inverted below threshold", polarity: PolarityInverted, quantity: 2, applicable: false, reason: ""},
		{name: "inverted at threshold", polarity: PolarityInverted, quantity: 3, applicable: true},
		{name: "inverted above threshold", polarity: PolarityInverted, quantity: 10, applicable: true},
		{name: "threshold below", polarity: PolarityThreshold, quantity: 2, applicable: false, reason: ReasonTotalQuantity},
		{name: "threshold met", polarity: PolarityThreshold, quantity: 5, applicable: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEvaluator(t, &stubCounter{}, WithPolarity(tc.polarity))
			res, err := e.Evaluate(context.Background(), discount, Snapshot{TotalQuantity: tc.quantity}, ModePreview)
			require.NoError(t, err)
			assert.Equal(t, tc.applicable, res.Applicable())
			if !tc.applicable {
				assert.Equal(t, tc.reason, res.Reason)
				assert.Equal(t, CodeTotalQuantity, res.ReasonCode)
			}
		})
	}
}

func TestEvaluateDefaultPolarityAppliesLargeOrders(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionTotalQuantity, 3))

	res, err := e.Evaluate(context.Background(), discount, Snapshot{TotalQuantity: 4}, ModeSettle)
	require.NoError(t, err)
	assert.True(t, res.Applicable())

	res, err = e.Evaluate(context.Background(), discount, Snapshot{TotalQuantity: 1}, ModeSettle)
	require.NoError(t, err)
	assert.False(t, res.Applicable())
	assert.Empty(t, res.Reason)
}

func TestEvaluateFirstOrder(t *testing.T) {
	prior := int64(0)
	counter := &stubCounter{count: func(_ context.Context, customerID string, _ ...string) (int64, error) {
		assert.Equal(t, "C1", customerID)
		return prior, nil
	}}
	e := newTestEvaluator(t, counter)
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionFirstOrder, 0))

	res, err := e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1"}, ModePreview)
	require.NoError(t, err)
	assert.True(t, res.Applicable())

	prior = 1
	res, err = e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1"}, ModePreview)
	require.NoError(t, err)
	assert.False(t, res.Applicable())
	assert.Equal(t, ReasonFirstOrder, res.Reason)
}

func TestEvaluateFirstOrderExcludesSettlingOrder(t *testing.T) {
	counter := &stubCounter{}
	e := newTestEvaluator(t, counter)
	discount := discountWith(enums.DiscountKindFixedValue, 1000,
		cond(enums.ConditionFirstOrder, 0),
		cond(enums.ConditionFirstOrder, 0),
	)

	_, err := e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1", ExcludeOrderID: "O1"}, ModeSettle)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls, "count is taken once per evaluation")
	assert.Equal(t, []string{"O1"}, counter.excluded)
}

func TestEvaluateCounterErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	e := newTestEvaluator(t, &stubCounter{count: func(context.Context, string, ...string) (int64, error) {
		return 0, boom
	}})
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionFirstOrder, 0))

	_, err := e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1"}, ModeSettle)
	require.ErrorIs(t, err, boom)
}

func TestEvaluateUnknownConditionFailsClosed(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 1000, models.DiscountCondition{ConditionType: "BIRTHDAY", Value: dec(1)})

	res, err := e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(10)}, ModePreview)
	require.NoError(t, err)
	assert.False(t, res.Applicable())
	assert.Equal(t, ReasonUnsupportedCondition, res.Reason)
	assert.Equal(t, CodeUnsupportedCondition, res.ReasonCode)
}

func TestEvaluateReturnsFirstFailingReason(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{count: func(context.Context, string, ...string) (int64, error) { return 3, nil }})
	discount := discountWith(enums.DiscountKindFixedValue, 1000,
		cond(enums.ConditionMinValue, 500000),
		cond(enums.ConditionFirstOrder, 0),
	)

	res, err := e.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1", TotalAmount: dec(1000)}, ModeSettle)
	require.NoError(t, err)
	assert.Equal(t, ReasonMinValue, res.Reason)
}

func TestEvaluateMaxDiscountValueCapsInSettleMode(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})

	fixed := discountWith(enums.DiscountKindFixedValue, 10000, cond(enums.ConditionMaxDiscountValue, 80000))
	res, err := e.Evaluate(context.Background(), fixed, Snapshot{TotalAmount: dec(100000)}, ModeSettle)
	require.NoError(t, err)
	require.True(t, res.Applicable())
	require.NotNil(t, res.CappedTotal)
	assert.True(t, res.CappedTotal.Equal(dec(80000)))

	percent := discountWith(enums.DiscountKindPercent, 50, cond(enums.ConditionMaxDiscountValue, 80000))
	res, err = e.Evaluate(context.Background(), percent, Snapshot{TotalAmount: dec(100000)}, ModeSettle)
	require.NoError(t, err)
	assert.True(t, res.Applicable())
	assert.Nil(t, res.CappedTotal, "discounted total of 50000 stays under the ceiling")
}

func TestEvaluateMaxDiscountValueNeverCapsInPreview(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 10000, cond(enums.ConditionMaxDiscountValue, 1))

	snap := Snapshot{TotalAmount: dec(100000)}
	res, err := e.Evaluate(context.Background(), discount, snap, ModePreview)
	require.NoError(t, err)
	assert.True(t, res.Applicable())
	assert.Nil(t, res.CappedTotal)
	assert.True(t, snap.TotalAmount.Equal(dec(100000)))
}

func TestEvaluateCapFeedsLaterConditions(t *testing.T) {
	e := newTestEvaluator(t, &stubCounter{})
	discount := discountWith(enums.DiscountKindFixedValue, 1000,
		cond(enums.ConditionMaxDiscountValue, 20000),
		cond(enums.ConditionMinValue, 50000),
	)

	res, err := e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(100000)}, ModeSettle)
	require.NoError(t, err)
	assert.Equal(t, ReasonMinValue, res.Reason)

	res, err = e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(100000)}, ModePreview)
	require.NoError(t, err)
	assert.True(t, res.Applicable())
}

func TestEvaluateRecordsOutcomes(t *testing.T) {
	rec := &stubRecorder{}
	e := newTestEvaluator(t, &stubCounter{}, WithRecorder(rec))
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionMinValue, 10))

	_, err := e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(100)}, ModePreview)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), discount, Snapshot{TotalAmount: dec(1)}, ModePreview)
	require.NoError(t, err)

	assert.Equal(t, []recordedEvaluation{
		{outcome: "applicable", reason: ""},
		{outcome: "inApplicable", reason: CodeMinValue},
	}, rec.seen)
}

func TestWithCounterLeavesOriginalUntouched(t *testing.T) {
	first := &stubCounter{}
	second := &stubCounter{}
	e := newTestEvaluator(t, first)
	clone := e.WithCounter(second)
	discount := discountWith(enums.DiscountKindFixedValue, 1000, cond(enums.ConditionFirstOrder, 0))

	_, err := clone.Evaluate(context.Background(), discount, Snapshot{CustomerID: "C1"}, ModeSettle)
	require.NoError(t, err)
	assert.Zero(t, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Same(t, e, e.WithCounter(nil))
}

func TestParsePolarity(t *testing.T) {
	p, err := ParsePolarity("")
	require.NoError(t, err)
	assert.Equal(t, PolarityInverted, p)

	p, err = ParsePolarity(" Threshold ")
	require.NoError(t, err)
	assert.Equal(t, PolarityThreshold, p)

	_, err = ParsePolarity("sideways")
	require.Error(t, err)
}

func TestDecodeConditionNormalizesType(t *testing.T) {
	assert.IsType(t, MinValue{}, DecodeCondition(models.DiscountCondition{ConditionType: "min_value"}))
	unknown := DecodeCondition(models.DiscountCondition{ConditionType: "GIFT"})
	assert.Equal(t, enums.ConditionType("GIFT"), unknown.Type())
}
