// Package app assembles the process: configuration, logging, storage, the
// external services and the bot itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/assets"
	"github.com/cheng-chun-yuan/yap2win/internal/bot"
	"github.com/cheng-chun-yuan/yap2win/internal/config"
	"github.com/cheng-chun-yuan/yap2win/internal/ledger"
	"github.com/cheng-chun-yuan/yap2win/internal/reward"
	"github.com/cheng-chun-yuan/yap2win/internal/scoring"
	"github.com/cheng-chun-yuan/yap2win/internal/storage"
	"github.com/cheng-chun-yuan/yap2win/internal/storage/memory"
	"github.com/cheng-chun-yuan/yap2win/internal/storage/sqlite"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Storage
	bot    *bot.Bot
	server *http.Server
}

func New() (*App, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("username", api.Self.UserName))

	registry := newRegistry(cfg, logger)
	ledgerSvc, err := newLedger(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := reward.NewEngine(store, logger)
	verifier := verify.NewService(store, registry, logger)

	b := bot.NewBot(api, store, engine, verifier, scoring.NewHeuristicScorer(), ledgerSvc, logger, bot.Options{
		IdentityVerifyURL:   cfg.IdentityVerifyURL,
		EnforceVerification: cfg.EnforceVerification,
		DefaultPoolAmount:   cfg.DefaultPoolAmount,
	})

	app := &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		bot:    b,
	}
	app.server = app.newHTTPServer()
	return app, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.SQLitePath == "" {
		logger.Info("using in-memory storage")
		return memory.NewStore(), nil
	}
	logger.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
	store, err := sqlite.NewStore(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite storage: %w", err)
	}
	return store, nil
}

func newRegistry(cfg *config.Config, logger *zap.Logger) assets.Registry {
	if cfg.EthRPCURL == "" {
		logger.Info("nft verification disabled, no ETH_RPC_URL set")
		return assets.Disabled{}
	}
	registry, err := assets.NewEthRegistry(cfg.EthRPCURL, logger)
	if err != nil {
		logger.Warn("nft verification disabled, rpc dial failed", zap.Error(err))
		return assets.Disabled{}
	}
	return registry
}

func newLedger(cfg *config.Config, logger *zap.Logger) (ledger.Service, error) {
	if !cfg.ROFLEnabled {
		logger.Info("on-chain pool creation disabled")
		return ledger.Disabled{}, nil
	}
	client, err := ledger.NewROFLClient(cfg.ROFLSocketPath, cfg.PoolContractAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("init rofl client: %w", err)
	}
	return client, nil
}

func (a *App) newHTTPServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if a.cfg.WebhookMode {
		mux.HandleFunc("/webhook", a.bot.HandleWebhookUpdate)
	}
	return &http.Server{
		Addr:    ":" + a.cfg.Port,
		Handler: mux,
	}
}

// Run starts the bot and the HTTP server and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.cfg.WebhookMode {
		if err := a.bot.StartWebhook(a.cfg.WebhookURL); err != nil {
			return fmt.Errorf("start webhook: %w", err)
		}
	} else {
		go func() {
			if err := a.bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("bot polling: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("fatal error", zap.Error(err))
		return err
	}
	return a.Shutdown()
}

// Shutdown stops the HTTP server and closes storage.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("storage close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
	return nil
}
