// Package recommend подбирает товар по ответам анкеты.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/recommendation"
)

// Handler обрабатывает POST /recommendations.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает подбор товара.
type Service interface {
	Recommend(ctx context.Context, req models.DummyRecommendation) (*models.Recommendation, error)
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
// @Summary Рекомендация товара
// @Description Проверяет допуск по правилам категории и выбирает товар с наибольшим счётом.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param request body models.DummyRecommendation true "Категория и ответы анкеты"
// @Success 200 {object} response.Response{data=models.Recommendation}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная категория"
// @Failure 422 {object} response.Response "Не хватает ответов, data.missing — список вопросов"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /recommendations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recommendation.recommend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRecommendation
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

	rec, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		var missing *recommendation.MissingAnswersError
		switch {
		case errors.As(err, &missing):
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  "missing answers",
				Data:   map[string]any{"missing": missing.Missing},
			})
		case errors.Is(err, recommendation.ErrUnknownCategory):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown category"))
		case errors.Is(err, recommendation.ErrInvalidAnswers):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid answers"))
		case errors.Is(err, recommendation.ErrNoProducts):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("no products available in this category"))
		default:
			log.Error("failed to build recommendation", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not build recommendation"))
		}
		return
	}
	render.JSON(w, r, response.StatusOKWithData(rec))
}
