// Package validate проверяет купон для суммы заказа и возвращает расчёт скидки.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/coupon"
)

// Handler обрабатывает POST /coupons/validate.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает проверку купона.
type Service interface {
	Validate(ctx context.Context, code, planID string, amount decimal.Decimal, now time.Time) (*models.CouponQuote, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверить купон
// @Description Проверяет срок действия, лимит применений, тариф и минимальную сумму и считает скидку.
// @Tags Coupons
// @Accept json
// @Produce json
// @Param request body models.DummyCouponValidation true "Код купона и сумма заказа"
// @Success 200 {object} response.Response{data=models.CouponQuote}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или сумма"
// @Failure 404 {object} response.ErrorResponse "Купон не найден"
// @Failure 422 {object} response.ErrorResponse "Купон нельзя применить"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /coupons/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.coupon.validate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCouponValidation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid amount"))
		return
	}

	quote, err := h.service.Validate(r.Context(), req.Code, req.PlanID, amount, time.Now().UTC())
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to validate coupon", sl.Err(err))
		} else {
			log.Info("coupon rejected", slog.String("reason", msg))
		}
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(quote))
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, coupon.ErrCouponNotFound):
		return http.StatusNotFound, coupon.ErrCouponNotFound.Error()
	case errors.Is(err, coupon.ErrInvalidAmount):
		return http.StatusBadRequest, coupon.ErrInvalidAmount.Error()
	}
	for _, rejected := range []error{
		coupon.ErrCouponInactive,
		coupon.ErrCouponNotYetValid,
		coupon.ErrCouponExpired,
		coupon.ErrCouponUsageLimit,
		coupon.ErrCouponNotApplicable,
		coupon.ErrCouponMinimumNotMet,
	} {
		if errors.Is(err, rejected) {
			return http.StatusUnprocessableEntity, rejected.Error()
		}
	}
	return http.StatusInternalServerError, "could not validate coupon"
}
