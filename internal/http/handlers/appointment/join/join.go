// Package join реализует HTTP-обработчик входа пациента в телемедицинскую сессию.
//
// Первый вход запускает окно доступа подписки. После истечения окна вход запрещён.
package join

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
)

// Handler обрабатывает POST /appointments/{id}/join.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает вход в сессию.
type Service interface {
	Join(ctx context.Context, user models.User, id string) (*models.JoinInfo, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Войти в сессию
// @Description Возвращает ссылку на сессию и оставшееся время окна доступа.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID записи"
// @Success 200 {object} response.Response{data=models.JoinInfo}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужая запись или окно доступа истекло"
// @Failure 404 {object} response.ErrorResponse "Запись или подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Приём завершён или отменён"
// @Failure 422 {object} response.ErrorResponse "Подписка не активна"
// @Router /appointments/{id}/join [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.join"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id := chi.URLParam(r, "id")
	info, err := h.service.Join(r.Context(), user, id)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrNotFound), errors.Is(err, appointment.ErrSubscriptionNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, appointment.ErrAccessExpired):
			log.Info("join denied, access expired", slog.String("appointment_id", id))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, appointment.ErrForbidden):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, appointment.ErrInvalidTransition):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("appointment is closed"))
		case errors.Is(err, appointment.ErrSubscriptionInactive):
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to join appointment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not join appointment"))
		}
		return
	}

	log.Info("appointment joined", slog.String("appointment_id", id),
		slog.Int64("remaining_seconds", info.RemainingSeconds))
	render.JSON(w, r, response.StatusOKWithData(info))
}
