// Package main Telehealth Storefront API
//
// @title           Telehealth Storefront API
// @version         1.0
// @description     Витрина телемедицинского сервиса: каталог, купоны, рекомендации, подписки и записи на приём
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/magabrotheeeer/telehealth-storefront/docs"
	"github.com/magabrotheeeer/telehealth-storefront/internal/app/storefront"
	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting storefront", slog.String("env", cfg.Env))
	log.Debug("config loaded\n" + cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := storefront.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("storefront stopped gracefully")
}
