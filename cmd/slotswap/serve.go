package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/slotswap/internal/app"
	"github.com/Freeeeeet/slotswap/internal/config"
	"github.com/Freeeeeet/slotswap/internal/controller"
	"github.com/Freeeeeet/slotswap/internal/controller/rest"
	"github.com/Freeeeeet/slotswap/internal/events"
	"github.com/Freeeeeet/slotswap/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the consistency auditor",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	migrator, err := app.NewMigrator(store, logger)
	if err != nil {
		return err
	}
	err = migrator.Run(ctx)
	migrator.Close()
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	users := service.NewUserService(store, logger)
	slots := service.NewSlotService(store, logger)
	swaps := service.NewSwapService(store, slots, publisher, logger)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: rest.NewRouter(rest.Deps{
			Users:       users,
			Slots:       slots,
			Swaps:       swaps,
			JWTSecret:   []byte(cfg.JWTSecret),
			CORSOrigins: cfg.CORSOrigins,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	auditor := app.NewAuditor(store, cfg.AuditInterval, logger)
	g.Go(func() error {
		return auditor.Run(gctx)
	})

	if cfg.TelegramToken != "" {
		botController, err := newBotController(gctx, cfg, users, slots, swaps, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})
	} else {
		logger.Info("Telegram bot disabled (TELEGRAM_TOKEN not set)")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// newPublisher подключается к NATS, если он настроен
func newPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("Events disabled (NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}

	publisher, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Events enabled", zap.String("nats_url", cfg.NATSURL))
	return publisher, nil
}

// newBotController создаёт Telegram бота и регистрирует обработчики
func newBotController(
	ctx context.Context,
	cfg *config.Config,
	users *service.UserService,
	slots *service.SlotService,
	swaps *service.SwapService,
	logger *zap.Logger,
) (*controller.BotController, error) {
	b, err := bot.New(cfg.TelegramToken, bot.WithErrorsHandler(func(err error) {
		logger.Warn("Telegram bot error", zap.Error(err))
	}))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	botController := controller.NewBotController(b, users, slots, swaps, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// Обработчики уже зарегистрированы, без меню команд бот работает
		logger.Warn("Bot commands menu not set", zap.Error(err))
	}
	return botController, nil
}
