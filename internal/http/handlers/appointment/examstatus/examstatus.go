// Package examstatus реализует HTTP-обработчик смены статуса осмотра врачом.
package examstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
)

// Handler обрабатывает PATCH /appointments/{id}/exam-status.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает смену статуса осмотра.
type Service interface {
	UpdateExamStatus(ctx context.Context, user models.User, id, to string) (*models.Appointment, error)
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
// @Summary Сменить статус осмотра
// @Description Допустимые переходы: pending → in_progress|canceled, in_progress → completed|canceled.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID записи"
// @Param request body models.DummyExamStatus true "Новый статус"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /appointments/{id}/exam-status [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.appointment.examstatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyExamStatus
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

	a, err := h.service.UpdateExamStatus(r.Context(), user, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("appointment not found"))
		case errors.Is(err, appointment.ErrForbidden):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, appointment.ErrInvalidTransition):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to update exam status", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update exam status"))
		}
		return
	}

	render.JSON(w, r, response.StatusOKWithData(a))
}
