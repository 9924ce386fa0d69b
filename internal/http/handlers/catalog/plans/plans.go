// Package plans отдаёт тарифы подписки с вариантами цен.
package plans

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

// Handler обрабатывает GET /plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение тарифов.
type Service interface {
	Plans(ctx context.Context) ([]models.Plan, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Тарифы подписки
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Plan}
// @Failure 502 {object} response.ErrorResponse "CMS недоступна"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.plans"

	items, err := h.service.Plans(r.Context())
	if err != nil {
		h.log.Error("failed to load plans", sl.Op(op),
			slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not load plans"))
		return
	}
	if items == nil {
		items = []models.Plan{}
	}
	render.JSON(w, r, response.StatusOKWithData(items))
}
