package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/api"
	"github.com/RoyceAzure/lab/foodorder/internal/api/handler"
	"github.com/RoyceAzure/lab/foodorder/internal/api/router"
	"github.com/RoyceAzure/lab/foodorder/internal/appcontext"
	"github.com/RoyceAzure/lab/foodorder/internal/config"
	"github.com/RoyceAzure/lab/foodorder/internal/logger"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", ".env", "path of the env config file")
	flag.Parse()

	cf, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := appcontext.NewApplicationContext(ctx, cf)
	if err != nil {
		log.Fatal().Err(err).Msg("init application failed")
	}
	l := app.Logger

	// 只有 log level 支援熱更新
	if err := config.WatchConfig(*configPath, func(newCf *config.Config, err error) {
		if err != nil {
			l.Error().Err(err).Msg("reload config failed")
			return
		}
		logger.SetGlobalLevel(newCf.LogLevel)
		l.Info().Str("level", newCf.LogLevel).Msg("log level reloaded")
	}); err != nil {
		l.Warn().Err(err).Msg("config watch disabled")
	}

	orderHandler := handler.NewOrderHandler(app.CheckoutService, app.OrderService, app.PaymentService, l)
	healthHandler := handler.NewHealthHandler(app.HealthChecks())
	server := api.NewServer(orderHandler, healthHandler)
	server.CheckoutLimiter = app.CheckoutLimiter

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cf.ServerPort),
		Handler:           router.SetupRouter(server, l, app.MetricsHandler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		l.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("application shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("closed completed")
}
