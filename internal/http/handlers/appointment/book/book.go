// Package book реализует HTTP-обработчик записи на телемедицинский приём.
package book

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
)

// Handler обрабатывает POST /appointments.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает запись на приём.
type Service interface {
	Book(ctx context.Context, user models.User, req models.DummyAppointment) (*models.Appointment, error)
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
// @Summary Записаться на приём
// @Description Бронирует слот во внешнем сервисе записи. Подписка должна быть активной и с неистёкшим окном доступа.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DummyAppointment true "Подписка, тип приёма и время"
// @Success 201 {object} response.Response{data=models.Appointment}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужая подписка или окно доступа истекло"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Подписка не активна или время в прошлом"
// @Failure 502 {object} response.ErrorResponse "Сервис записи недоступен"
// @Router /appointments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.book"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAppointment
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

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	a, err := h.service.Book(r.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrSubscriptionNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, appointment.ErrForbidden), errors.Is(err, appointment.ErrAccessExpired):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, appointment.ErrSubscriptionInactive), errors.Is(err, appointment.ErrStartInPast):
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, appointment.ErrSchedulingUnavailable):
			log.Error("scheduling unavailable", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(appointment.ErrSchedulingUnavailable.Error()))
		default:
			log.Error("failed to book appointment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not book appointment"))
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(a))
}
