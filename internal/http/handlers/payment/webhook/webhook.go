// Package webhook принимает уведомления платёжного провайдера о платежах и возвратах.
//
// Тело запроса подписывается провайдером HMAC-SHA256 с общим секретом, подпись
// в base64 передаётся в заголовке X-Signature.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/paymentprovider"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
)

// SignatureHeader заголовок с подписью тела запроса.
const SignatureHeader = "X-Signature"

const maxBodySize = 1 << 20

// Handler обрабатывает POST /payments/webhook.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// Service применяет событие оплаты к подписке.
type Service interface {
	HandlePaymentEvent(ctx context.Context, event paymentprovider.WebhookEvent) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Signature header string true "base64 HMAC-SHA256 тела запроса"
// @Param request body paymentprovider.WebhookEvent true "Событие"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или событие без id платежа"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if !paymentprovider.VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		log.Warn("webhook signature mismatch")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event paymentprovider.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Event == "" {
		log.Error("failed to decode webhook", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log = log.With(slog.String("event", event.Event), slog.String("payment_id", event.Object.ID))

	err = h.service.HandlePaymentEvent(r.Context(), event)
	switch {
	case errors.Is(err, subscription.ErrUnsupportedEvent):
		log.Info("webhook event ignored")
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"ignored": true}))
		return
	case errors.Is(err, subscription.ErrInvalidEvent):
		log.Warn("webhook without payment id")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("event object id is required"))
		return
	case errors.Is(err, subscription.ErrNotFound):
		log.Warn("webhook for unknown subscription")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	case err != nil:
		log.Error("failed to handle webhook", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not handle event"))
		return
	}

	log.Info("webhook processed")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"ignored": false}))
}
