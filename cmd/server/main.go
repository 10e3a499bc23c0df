package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/outlet-shop/internal/app"
	"github.com/linemk/outlet-shop/internal/app/handlers"
	"github.com/linemk/outlet-shop/internal/cache"
	"github.com/linemk/outlet-shop/internal/config"
	"github.com/linemk/outlet-shop/internal/events"
	"github.com/linemk/outlet-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/outlet-shop/internal/lib/logger"
	"github.com/linemk/outlet-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/outlet-shop/internal/lib/ratelimit"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/linemk/outlet-shop/internal/payment"
	"github.com/linemk/outlet-shop/internal/service"
	"github.com/linemk/outlet-shop/internal/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// объект приложения: конфиг, подключения к postgres и redis
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	m := metrics.New(prometheus.NewRegistry())

	// слой по работе с БД
	userRepo := storage.NewUserRepository(application.DB)
	catalogRepo := storage.NewCatalogRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	outboxRepo := storage.NewOutboxRepository(application.DB)

	cartCache := cache.NewRedisCache(application.Redis, cfg.Redis.CartTTL)

	// шлюз оплаты за circuit breaker
	gateway := payment.NewBreakerGateway(
		log,
		payment.NewMidtransGateway(cfg.Payment.ServerKey, cfg.Payment.Environment, cfg.Payment.Timeout),
		cfg.Payment.BreakerFailures,
		cfg.Payment.BreakerTimeout,
	)
	if cfg.Payment.SkipSignature {
		log.Warn("payment notification signature check is disabled")
	}

	authService := service.NewAuthService(log, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	cartService := service.NewCartService(log, cartRepo, cartCache)
	orderService := service.NewOrderService(log, orderRepo)
	catalogService := service.NewCatalogService(log, catalogRepo)
	checkoutService := service.NewCheckoutService(log, service.CheckoutDeps{
		DB:            application.DB,
		Users:         userRepo,
		Catalog:       catalogRepo,
		Carts:         cartRepo,
		Orders:        orderRepo,
		Outbox:        outboxRepo,
		Gateway:       gateway,
		CartCache:     cartCache,
		Metrics:       m,
		DefaultMethod: cfg.Payment.DefaultMethod,
	})
	webhookService := service.NewWebhookService(
		log, application.DB, orderRepo, catalogRepo, outboxRepo, m,
		cfg.Payment.ServerKey, cfg.Payment.SkipSignature,
	)

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(m.Middleware)

	router.Get("/health", handlers.HealthHandler(log, application.DB, gateway))
	router.Handle("/metrics", m.Handler())

	// эндпоинт для аутентификации, с ограничением частоты
	router.With(ratelimit.Middleware(log, application.Redis, cfg.RateLimit.Requests, cfg.RateLimit.Window)).
		Post("/api/auth", handlers.AuthHandler(log, authService))

	// каталог открыт без авторизации
	router.Get("/api/outlets", handlers.ListOutletsHandler(log, catalogService))
	router.Get("/api/outlets/{id}", handlers.GetOutletHandler(log, catalogService))
	router.Get("/api/products", handlers.ListProductsHandler(log, catalogService))
	router.Get("/api/products/{id}", handlers.GetProductHandler(log, catalogService))

	// уведомления шлюза приходят без JWT, подлинность проверяется подписью
	router.Post("/api/payments/webhook", handlers.PaymentWebhookHandler(log, webhookService))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware())

		r.Get("/api/carts", handlers.GetCartHandler(log, cartService))
		r.Post("/api/carts/items", handlers.AddCartItemHandler(log, cartService))
		r.Patch("/api/carts/items/{id}", handlers.UpdateCartItemHandler(log, cartService))
		r.Delete("/api/carts/items/{id}", handlers.DeleteCartItemHandler(log, cartService))
		r.Post("/api/carts/checkout", handlers.CheckoutHandler(log, checkoutService))
		r.Post("/api/carts/checkout/direct", handlers.DirectCheckoutHandler(log, checkoutService))

		r.Get("/api/orders", handlers.ListOrdersHandler(log, orderService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(log, orderService))
	})

	ctx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var wg sync.WaitGroup
	if cfg.Kafka.Enabled {
		writer := events.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		relay := events.NewRelay(log, outboxRepo, writer, m, cfg.Kafka.RelayInterval, cfg.Kafka.BatchSize)

		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
			if err := writer.Close(); err != nil {
				log.Error("failed to close kafka writer", slog.Any("error", err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", errors.Wrap(err, "shutdown")))
	}
	stopRelay()
	wg.Wait()
	log.Info("server gracefully stopped")
}
