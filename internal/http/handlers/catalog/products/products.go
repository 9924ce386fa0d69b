// Package products отдаёт список товаров каталога, опционально по категории.
package products

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// Handler обрабатывает GET /products.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение каталога.
type Service interface {
	Products(ctx context.Context, category string) ([]models.Product, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список товаров
// @Tags Catalog
// @Produce json
// @Param category query string false "Категория, например hair_loss"
// @Success 200 {object} response.Response{data=[]models.Product}
// @Failure 502 {object} response.ErrorResponse "CMS недоступна"
// @Router /products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.products"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	category := r.URL.Query().Get("category")
	items, err := h.service.Products(r.Context(), category)
	if err != nil {
		log.Error("failed to load products", slog.String("category", category), sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not load products"))
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	render.JSON(w, r, response.StatusOKWithData(items))
}
