package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"school-chatbot/internal/config"
	"school-chatbot/internal/llm"
	"school-chatbot/internal/metrics"
	"school-chatbot/internal/repository"
	"school-chatbot/internal/server"
	"school-chatbot/internal/service"
	"school-chatbot/internal/telegram_bot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the optional Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
		return serve(cfg, logger)
	},
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.URL, cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		return err
	}

	students := repository.NewStudentRepository(db, logger)
	history := repository.NewChatHistoryRepository(db, logger)

	llmClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
		Providers:   cfg.LLM.Providers,
		MaxFailures: cfg.LLM.MaxFailuresBeforeSwitch,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM providers: %w", err)
	}
	defer llmClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	router := service.NewRouter(students, history, llmClient, m, service.RouterConfig{
		RequestTimeout:          cfg.LLM.RequestTimeout,
		PersistTimeout:          cfg.Chat.PersistTimeout,
		AdvisorAttendanceWindow: cfg.Chat.AdvisorAttendanceWindow,
		OfficePhone:             cfg.Chat.OfficePhone,
	}, logger)

	auth := service.NewAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, logger)
	if cfg.Admin.PasswordHash == "" || cfg.Admin.JWTSecret == "" {
		logger.Warn("Admin credentials are not configured, admin login is disabled")
	}

	srv := server.NewServer(":"+cfg.Server.Port, cfg.Server.AllowedOrigins, server.Deps{
		Chat:     router,
		Admin:    service.NewAdminService(students, logger),
		Auth:     auth,
		Gatherer: reg,
		ModelInfo: func() map[string]interface{} {
			info := llmClient.GetModelInfo()
			info["providers"] = llmClient.GetProvidersInfo()
			return info
		},
		HistoryLimit: cfg.Chat.HistoryLimit,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.LLM.Warmup.Enabled {
		warmer := llm.NewWarmer(llmClient.WarmupTarget(), cfg.LLM.Warmup.Interval, cfg.LLM.RequestTimeout, logger)
		warmer.Start(ctx)
		defer warmer.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Enabled {
		bot, err := telegram_bot.NewBot(cfg.Telegram.BotToken, cfg.Telegram.SessionCacheSize, cfg.Telegram.Chats, router, logger)
		if err != nil {
			logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		} else {
			g.Go(func() error { return bot.Start(gctx) })
		}
	}

	g.Go(func() error {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		return srv.Run()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Application stopped.")
	return nil
}
