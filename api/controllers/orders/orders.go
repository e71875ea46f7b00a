package orders

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/letrinh/letrinh-backend/api/responses"
	"github.com/letrinh/letrinh-backend/api/validators"
	internalorders "github.com/letrinh/letrinh-backend/internal/orders"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
)

type productLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type createdOrder struct {
	*models.Order
	Products []productLine `json:"products"`
}

type createResponse struct {
	Order createdOrder `json:"order"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentStatusResponse struct {
	Message      string `json:"message"`
	StatusUpdate string `json:"status_update"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Create settles a new order from the mini app checkout.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var input internalorders.SettleInput
		if err := validators.DecodeClientJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Actor = &outbox.ActorRef{UserID: input.CustomerID, Role: "customer"}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCustomerID(ctx, input.CustomerID)
		}

		result, err := svc.Settle(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lines := make([]productLine, 0, len(result.LineItems))
		for _, item := range result.LineItems {
			lines = append(lines, productLine{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createResponse{
			Order: createdOrder{Order: result.Order, Products: lines},
		})
	}
}

// List returns every order, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// Get returns one order with its lines, discounts, payment and customer.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Detail returns the line items of an order.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.LineItems(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListByPaymentStatus filters the admin queue by payment status.
func ListByPaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := validators.PathString(r, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}
		orders, err := svc.ListByPaymentStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// ListByCustomer returns a customer's order history.
func ListByCustomer(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.PathString(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListByCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// Update replaces the supplied mutable fields of an order.
func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.UpdateInput
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdatePaymentStatus is called by the payment callback to move an order's
// payment to a new status.
func UpdatePaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentStatusRequest
		if err := validators.DecodeClientJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, id)
		}
		result, err := svc.UpdatePaymentStatus(ctx, id, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome := "failed"
		if result != nil && result.Updated {
			outcome = "success"
		}
		responses.WriteSuccess(w, paymentStatusResponse{
			Message:      fmt.Sprintf("Order %s payment status updated to %s", id, status),
			StatusUpdate: outcome,
		})
	}
}

// Delete removes an order and everything hanging off it.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messageResponse{Message: fmt.Sprintf("Order %s deleted successfully", id)})
	}
}
