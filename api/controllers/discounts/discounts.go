package discounts

import (
	"fmt"
	"net/http"

	"github.com/letrinh/letrinh-backend/api/responses"
	"github.com/letrinh/letrinh-backend/api/validators"
	internaldiscounts "github.com/letrinh/letrinh-backend/internal/discounts"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/letrinh/letrinh-backend/pkg/logger"
)

type checkRequest struct {
	Code  string                       `json:"code" validate:"required,max=64"`
	Order internaldiscounts.OrderInput `json:"order"`
}

// checkResponse keeps the shape the mini app already parses: a status, the
// discount when applicable, and the reason as "error" otherwise.
type checkResponse struct {
	Status     enums.EligibilityStatus `json:"status"`
	Discount   *models.Discount        `json:"discount,omitempty"`
	Error      string                  `json:"error,omitempty"`
	ReasonCode string                  `json:"reason_code,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Check previews whether a code applies to the order in the body.
func Check(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkRequest
		if err := validators.DecodeClientJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDiscountCode(ctx, req.Code)
		}
		result, err := svc.Check(ctx, req.Code, req.Order)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil && !result.Applicable() {
			logg.Debug(logg.WithField(ctx, "reason_code", result.ReasonCode), "discount.check.inapplicable")
		}
		responses.WriteSuccess(w, checkResponse{
			Status:     result.Status,
			Discount:   result.Discount,
			Error:      result.Reason,
			ReasonCode: result.ReasonCode,
		})
	}
}

// Applicable lists the active discounts the order in the body qualifies for.
func Applicable(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var order internaldiscounts.OrderInput
		if err := validators.DecodeClientJSONBody(w, r, &order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discounts, err := svc.Applicable(r.Context(), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discounts)
	}
}

func List(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}

func Get(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUint64(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

// SearchByCode matches a case-insensitive code fragment.
func SearchByCode(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := validators.PathString(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := svc.SearchByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

func ConditionTypes(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.ConditionTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}

func Orders(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUint64(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usage, err := svc.OrdersByDiscount(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

func Create(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internaldiscounts.DiscountInput
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discount)
	}
}

func Update(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUint64(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internaldiscounts.DiscountInput
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

// Delete accepts either the numeric id or the code.
func Delete(svc internaldiscounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idOrCode, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), idOrCode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messageResponse{Message: fmt.Sprintf("Discount %s deleted successfully", idOrCode)})
	}
}
