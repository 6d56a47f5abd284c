// Command checkout-proxy пересылает запросы витрины на создание платёжной
// ссылки провайдеру и публикует события checkout через outbox.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func main() {
	cfg, err := app.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	app.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"target_url":     cfg.TargetURL,
		"storage_driver": cfg.StorageDriver,
		"build":          version.Current().String(),
	}).Info("запускаем checkout proxy")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("checkout proxy остановлен")
}
