// Package pricesync реализует ручной запуск синхронизации цен тарифов с платёжным провайдером.
package pricesync

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/response"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/pricesync"
)

// Handler обрабатывает POST /admin/prices/sync.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service запускает синхронизацию и возвращает отчёт.
type Service interface {
	Sync(ctx context.Context) (*pricesync.Report, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Синхронизировать цены
// @Description Создаёт или обновляет цены провайдера для всех вариантов тарифов. Ошибки по вариантам попадают в отчёт.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=pricesync.Report}
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 502 {object} response.ErrorResponse "Каталог тарифов недоступен"
// @Router /admin/prices/sync [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pricesync"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.Sync(r.Context())
	if err != nil {
		log.Error("price sync failed", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("price sync failed"))
		return
	}

	log.Info("price sync triggered manually",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("failed", report.Failed))
	render.JSON(w, r, response.StatusOKWithData(report))
}
