// Package catalogrefresh сбрасывает кэш каталога после публикации изменений в CMS.
package catalogrefresh

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
)

// Handler обрабатывает POST /admin/catalog/refresh.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service удаляет закэшированные товары и тарифы.
type Service interface {
	Invalidate(ctx context.Context) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сбросить кэш каталога
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Кэш недоступен"
// @Router /admin/catalog/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.catalogrefresh"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.service.Invalidate(r.Context()); err != nil {
		log.Error("failed to invalidate catalog cache", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not refresh catalog"))
		return
	}

	log.Info("catalog cache invalidated")
	render.JSON(w, r, response.OK())
}
