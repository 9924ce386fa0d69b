// Package product отдаёт товар по slug. Для неизвестного slug возвращает
// похожие slug в поле data.suggestions.
package product

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
)

// Handler обрабатывает GET /products/{slug}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает поиск товара.
type Service interface {
	Product(ctx context.Context, slug string) (*models.Product, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Товар по slug
// @Tags Catalog
// @Produce json
// @Param slug path string true "Slug товара"
// @Success 200 {object} response.Response{data=models.Product}
// @Failure 404 {object} response.Response "Товар не найден, data.suggestions — похожие slug"
// @Failure 502 {object} response.ErrorResponse "CMS недоступна"
// @Router /products/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.product"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	slug := chi.URLParam(r, "slug")
	p, err := h.service.Product(r.Context(), slug)
	if err != nil {
		var nf *catalog.ProductNotFoundError
		switch {
		case errors.As(err, &nf):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  "product not found",
				Data:   map[string]any{"suggestions": nf.Suggestions},
			})
		case errors.Is(err, catalog.ErrProductNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("product not found"))
		default:
			log.Error("failed to load product", slog.String("slug", slug), sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("could not load product"))
		}
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}
