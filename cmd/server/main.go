package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsgateway/internal/analytics"
	"smsgateway/internal/config"
	"smsgateway/internal/db"
	"smsgateway/internal/events"
	"smsgateway/internal/gateway"
	"smsgateway/internal/handlers"
	"smsgateway/internal/jobs"
	"smsgateway/internal/logger"
	"smsgateway/internal/models"
	"smsgateway/internal/services"
	"smsgateway/internal/store"
	"smsgateway/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logg := logger.New(cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL, cfg.Database)
	if err != nil {
		logg.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	ledger := store.NewLedgerStore(database)
	transactions := store.NewTransactionStore(database)
	messages := store.NewMessageStore(database)
	reports := store.NewDeliveryReportStore(database)
	promos := store.NewPromoStore(database)
	usages := store.NewUsageStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	apiKeys := store.NewAPIKeyStore(database)
	contacts := store.NewContactStore(database)
	templates := store.NewTemplateStore(database)
	txRunner := db.NewTxRunner(database)

	for _, code := range []string{models.SystemTopupClearing, models.SystemSMSRevenue} {
		if _, err := accounts.EnsureSystemAccount(ctx, code, cfg.Billing.Currency); err != nil {
			logg.Error("failed to ensure system account", "code", code, "error", err)
			os.Exit(1)
		}
	}

	dispatcher, err := gateway.New(cfg.Gateway)
	if err != nil {
		logg.Error("failed to configure sms gateway", "provider", cfg.Gateway.Provider, "error", err)
		os.Exit(1)
	}
	publisher, err := events.New(cfg.NATSURL, logg)
	if err != nil {
		logg.Error("failed to connect event bus", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	hub := websocket.NewHub()
	wallet := services.NewWalletService(txRunner, accounts, ledger, transactions, audit, hub, cfg.Billing.Currency, logg)
	reporter := services.NewDeliveryReporter(txRunner, messages, reports, publisher, logg)
	sms := services.NewSMSService(services.SMSDeps{
		TxRunner:     txRunner,
		Accounts:     accounts,
		Ledger:       ledger,
		Transactions: transactions,
		Messages:     messages,
		Reporter:     reporter,
		Templates:    templates,
		Contacts:     contacts,
		Dispatcher:   dispatcher,
		Audit:        audit,
		Hub:          hub,
		Logger:       logg,
	}, services.SMSConfig{
		Currency: cfg.Billing.Currency,
		UnitCost: cfg.Billing.UnitCostMinor,
		Timeout:  cfg.Gateway.Timeout,
	})
	promo := services.NewPromoService(txRunner, database, promos, usages, audit, logg)
	accountSvc := services.NewAccountService(txRunner, users, accounts, audit, logg)
	maintenance := services.NewMaintenanceService(txRunner, messages, reports, audit, cfg.Scheduler.Retention, logg)

	deletions := jobs.NewDeletionQueue(accountSvc, cfg.Jobs.DeletionGrace, cfg.Jobs.QueueSize, logg)
	deletions.Start(ctx, cfg.Jobs.Workers)

	scheduler, err := jobs.NewScheduler(cfg.Scheduler, cfg.PublicURL, maintenance, logg)
	if err != nil {
		logg.Error("failed to configure scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	handler := handlers.New(cfg, handlers.Deps{
		TxRunner:    txRunner,
		Users:       users,
		Admins:      admin,
		Audit:       audit,
		APIKeys:     apiKeys,
		Contacts:    contacts,
		Templates:   templates,
		Wallet:      wallet,
		SMS:         sms,
		Delivery:    reporter,
		Promo:       promo,
		Maintenance: maintenance,
		Cleanup:     scheduler,
		Deletions:   deletions,
		Analytics:   analytics.NewCounter(),
		Hub:         hub,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("sms gateway listening", "addr", server.Addr, "env", cfg.AppEnv, "provider", cfg.Gateway.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", "error", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logg.Warn("scheduled jobs still running at shutdown")
	}
	deletions.Wait()
}
