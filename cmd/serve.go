package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/catalog"
	"github.com/skybox-cloud/ms-go-billing/app/controller"
	"github.com/skybox-cloud/ms-go-billing/app/nextcloud"
	"github.com/skybox-cloud/ms-go-billing/app/provider"
	"github.com/skybox-cloud/ms-go-billing/app/repository"
	"github.com/skybox-cloud/ms-go-billing/app/service"
	"github.com/skybox-cloud/ms-go-billing/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payment orders, provider callbacks, and the ledger.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, billingService, cleanup := mustCreateBillingService()
	defer cleanup()

	billingController := controller.NewBillingController(billingService)
	e := setupHTTPServer(billingController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(billingController *controller.BillingController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", billingController.Health)
	e.GET("/ledger", billingController.ListLedger)

	payments := e.Group("/payments")
	payments.POST("/:provider/orders", billingController.CreateOrder)
	payments.POST("/momo/ipn", billingController.HandleMoMoIPN)
	payments.POST("/zalopay/callback", billingController.HandleZaloPayCallback)
	payments.GET("/vnpay/return", billingController.HandleVNPayReturn)

	return e
}

func mustCreateBillingService() (*config.Config, *service.BillingService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	plans, err := catalog.Load(cfg.Catalog.PlansPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load plan catalog")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	grantRepo := repository.NewQuotaGrantRepository(db)
	auditRepo := repository.NewCallbackAuditRepository(db)

	providerRegistry := provider.NewRegistry(
		provider.NewMoMoProvider(provider.MoMoConfig{
			PartnerCode: cfg.MoMo.PartnerCode,
			AccessKey:   cfg.MoMo.AccessKey,
			SecretKey:   cfg.MoMo.SecretKey,
			Endpoint:    cfg.MoMo.Endpoint,
			RedirectURL: cfg.MoMo.RedirectURL,
			IPNURL:      cfg.MoMo.IPNURL,
			HTTPTimeout: cfg.MoMo.HTTPTimeout,
		}),
		provider.NewVNPayProvider(provider.VNPayConfig{
			TmnCode:     cfg.VNPay.TmnCode,
			HashSecret:  cfg.VNPay.HashSecret,
			PaymentURL:  cfg.VNPay.PaymentURL,
			ReturnURL:   cfg.VNPay.ReturnURL,
			OrderExpiry: cfg.VNPay.OrderExpiry,
		}),
		provider.NewZaloPayProvider(provider.ZaloPayConfig{
			AppID:       cfg.ZaloPay.AppID,
			Key1:        cfg.ZaloPay.Key1,
			Key2:        cfg.ZaloPay.Key2,
			Endpoint:    cfg.ZaloPay.Endpoint,
			CallbackURL: cfg.ZaloPay.CallbackURL,
			HTTPTimeout: cfg.ZaloPay.HTTPTimeout,
		}),
	)

	quotaClient := nextcloud.NewClient(nextcloud.Config{
		BaseURL:       cfg.Nextcloud.BaseURL,
		AdminUser:     cfg.Nextcloud.AdminUsername,
		AdminPassword: cfg.Nextcloud.AdminPassword,
		HTTPTimeout:   cfg.Nextcloud.HTTPTimeout,
	})

	billingService := service.NewBillingService(
		ledgerRepo,
		grantRepo,
		auditRepo,
		providerRegistry,
		plans,
		quotaClient,
		cfg.Grants,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, billingService, cleanup
}
