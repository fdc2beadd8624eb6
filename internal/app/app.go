package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/bot"
	"mybooks/internal/config"
	"mybooks/internal/logging"
	"mybooks/internal/server"
	"mybooks/internal/storage"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	store  *books.Store
	bot    *bot.Bot
	api    *server.Server
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	return newApp(context.Background(), cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger}

	logger.Info("Starting mybooks",
		zap.String("storage", cfg.StorageBackend),
		zap.String("route_variant", string(cfg.RouteVariant)),
	)

	// Initialize database
	db, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	app.store = books.New(ctx, db, logger.Named("books"),
		books.WithKey(cfg.StorageKey),
		books.WithLocation(cfg.Location),
	)
	logger.Info("Book collection loaded", zap.Int("books", app.store.Len()))

	// Initialize bot
	if err := app.initBot(); err != nil {
		db.Close()
		return nil, err
	}

	app.initHTTPServer()
	return app, nil
}

// initBot initializes the Telegram bot when a token is configured
func (a *App) initBot() error {
	if !a.config.BotEnabled() {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, running without the bot")
		return nil
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.store, a.config.RouteVariant, a.config.AllowedUserIDs, a.logger.Named("bot"))
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))

	if a.config.NotifyChatID != 0 {
		telegramBot.EnableNotifications(a.config.NotifyChatID)
		a.logger.Info("Change notifications enabled", zap.Int64("chat_id", a.config.NotifyChatID))
	}

	a.bot = telegramBot
	return nil
}

// initHTTPServer builds the JSON API and, with a bot, the webhook endpoint
func (a *App) initHTTPServer() {
	var opts []server.Option
	// Mini App requests carry Telegram initData only in webhook deployments
	if a.bot != nil && a.config.WebhookMode {
		opts = append(opts, server.WithAuth(server.NewInitDataAuth(a.config.TelegramToken, a.config.AllowedUserIDs)))
	}
	a.api = server.New(a.store, a.config.RouteVariant, a.logger.Named("http"), opts...)

	if a.bot != nil {
		a.api.Router().POST(bot.WebhookPath, a.handleWebhook)
	}

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      a.api,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (a *App) handleWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		a.logger.Warn("Error decoding webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Process update in background to respond quickly to Telegram
	go a.bot.HandleWebhookUpdate(update)

	w.WriteHeader(http.StatusOK)
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler { return a.api }

// Store returns the book store.
func (a *App) Store() *books.Store { return a.store }

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is cancelled or the HTTP server fails
func (a *App) RunContext(ctx context.Context) error {
	errChan := make(chan error, 2)

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start bot in appropriate mode
	if a.bot != nil {
		if a.config.WebhookMode {
			// Webhook mode: configure webhook and wait for HTTP requests
			a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
			if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
				a.Shutdown()
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			a.logger.Info("Webhook configured", zap.String("path", bot.WebhookPath))
		} else {
			// Polling mode: actively poll Telegram servers
			go func() {
				if err := a.bot.Start(); err != nil {
					errChan <- fmt.Errorf("failed to start bot: %w", err)
				}
			}()
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down...")
	case runErr = <-errChan:
		a.logger.Error("Stopping after failure", zap.Error(runErr))
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	if a.bot != nil {
		a.bot.Stop()
	}

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// Close database
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	a.logger.Sync()
	return nil
}
