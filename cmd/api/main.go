package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/handler"
	"github.com/bigboss00123/paymoz-MVP/internal/adapter/middleware"
	"github.com/bigboss00123/paymoz-MVP/internal/adapter/storage"
	"github.com/bigboss00123/paymoz-MVP/internal/core/config"
	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/gateway"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
	"github.com/bigboss00123/paymoz-MVP/internal/core/notify"
	"github.com/bigboss00123/paymoz-MVP/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	store := storage.NewPostgres(dbPool)

	gateways := gateway.NewRegistry()
	if cfg.Mpesa.APIKey != "" {
		mpesa, err := gateway.NewMpesa(gateway.MpesaConfig{
			BaseURL:             cfg.Mpesa.BaseURL,
			APIKey:              cfg.Mpesa.APIKey,
			PublicKey:           cfg.Mpesa.PublicKey,
			ServiceProviderCode: cfg.Mpesa.ServiceProviderCode,
			Timeout:             cfg.GatewayTimeout,
		})
		if err != nil {
			slog.Error("invalid M-Pesa configuration", "error", err)
			os.Exit(1)
		}
		gateways.Register(mpesa)
	} else {
		slog.Warn("M-Pesa disabled: MPESA_API_KEY not set")
	}
	if cfg.Emola.Token != "" {
		gateways.Register(gateway.NewEmola(gateway.EmolaConfig{
			BaseURL:  cfg.Emola.BaseURL,
			ClientID: cfg.Emola.ClientID,
			Token:    cfg.Emola.Token,
			WalletID: cfg.Emola.WalletID,
			Timeout:  cfg.GatewayTimeout,
		}))
	} else {
		slog.Warn("e-Mola disabled: EMOLA_TOKEN not set")
	}

	minWithdrawal, err := decimal.NewFromString(cfg.MinWithdrawal)
	if err != nil {
		slog.Warn("invalid MIN_WITHDRAWAL, using default", "value", cfg.MinWithdrawal)
		minWithdrawal = ledger.DefaultMinWithdrawal
	}

	ledgerSvc := ledger.NewService(
		store,
		gateways,
		domain.NewPrefixRouter(cfg.Routes),
		notify.NewService(store),
		ledger.Config{BaseURL: cfg.BaseURL, MinWithdrawal: minWithdrawal},
	)

	accountHandler := &handler.AccountHandler{Ledger: ledgerSvc}
	paymentHandler := &handler.PaymentHandler{Ledger: ledgerSvc}
	withdrawalHandler := &handler.WithdrawalHandler{Ledger: ledgerSvc}
	checkoutHandler := &handler.CheckoutHandler{Ledger: ledgerSvc}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/v1")

	// Public
	api.Post("/accounts", accountHandler.Create)
	api.Post("/accounts/:id/keys", accountHandler.RotateKey)

	// Merchant, authenticated by API key. The gate is scoped to this
	// group so the operator and hosted checkout routes stay reachable
	// without a merchant key.
	private := api.Group("", middleware.RequireAPIKey())
	private.Post("/payments/:provider", middleware.Idempotency(dbPool), paymentHandler.Charge)
	private.Post("/withdrawals", middleware.Idempotency(dbPool), withdrawalHandler.Request)
	private.Post("/withdrawals/:id/cancel", withdrawalHandler.Cancel)
	private.Get("/withdrawals", withdrawalHandler.List)
	private.Post("/checkout/sessions", checkoutHandler.CreateSession)
	private.Post("/upgrade", paymentHandler.UpgradeToPro)

	// Operator
	operator := api.Group("/operator", middleware.RequireOperator(cfg.OperatorToken))
	operator.Post("/withdrawals/:id/reject", withdrawalHandler.Reject)
	operator.Post("/withdrawals/:id/complete", withdrawalHandler.Complete)

	// Hosted checkout, reachable by the payer with only the session id
	app.Get("/checkout/pay/:id", checkoutHandler.GetSession)
	app.Post("/checkout/pay/:id", checkoutHandler.CompleteSession)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker.StartWebhookWorker(workerCtx, store, cfg.WebhookSecret)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	stopWorker()
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	dbPool.Close()
	slog.Info("server exited")
}
