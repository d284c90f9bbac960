package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "shadowbot/docs"
	"shadowbot/internal/bot"
	"shadowbot/internal/commands"
	"shadowbot/internal/config"
	"shadowbot/internal/content"
	"shadowbot/internal/handlers"
	"shadowbot/internal/media"
	"shadowbot/internal/pdf"
	"shadowbot/internal/repositories"
	"shadowbot/internal/routes"
	"shadowbot/internal/scheduler"
	"shadowbot/internal/services"
	"shadowbot/internal/transport"
)

const botName = "shadowbot"

// Run assembles the whole bot and blocks until SIGINT/SIGTERM.
func Run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	groupRepo := repositories.NewGroupRepository(db)

	// === Transport ===
	tg, err := transport.NewTelegram(cfg.Telegram.Token, cfg.Telegram.DryRun, log.Named("telegram"))
	if err != nil {
		return err
	}

	// === Services ===
	var emailService services.EmailService
	if cfg.Email.SMTPHost != "" {
		emailService = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
	}
	userService := services.NewUserService(userRepo, emailService, cfg.Bot.AdminAllowlist, log.Named("users"))
	groupService := services.NewGroupService(groupRepo, userRepo, tg, log.Named("groups"))
	authService := services.NewAuthService(userRepo, emailService, cfg.Auth.JWTSecret, cfg.OTPTTL(), log.Named("auth"))
	broadcaster := services.NewBroadcaster(userRepo, tg, log.Named("broadcast"))

	// allowlisted identities are admins from the first boot
	for _, id := range cfg.Bot.AdminAllowlist {
		seedCtx := context.Background()
		if _, err := userRepo.Upsert(seedCtx, id); err != nil {
			log.Warn("admin seed upsert failed", zap.String("identity", id), zap.Error(err))
			continue
		}
		if err := userService.GrantAdmin(seedCtx, id, true); err != nil {
			log.Warn("admin seed failed", zap.String("identity", id), zap.Error(err))
		}
	}
	sched := scheduler.New(scheduler.RealClock(), log.Named("scheduler"))
	applier := services.NewIntentApplier(userService, groupService, broadcaster, sched, tg, log.Named("applier"))

	// === Commands ===
	startedAt := time.Now()
	deps := commands.Deps{
		Prefix:    cfg.Bot.CommandPrefix,
		BotName:   botName,
		StartedAt: startedAt,
		Users:     userService,
		Groups:    groupService,
		Auth:      authService,
		Media:     media.NewClient(cfg.Media.BaseURL, cfg.Media.APIKey, cfg.Media.DryRun),
		Tables:    content.Default(time.Now().UnixNano()),
		PDF:       pdf.NewReportGenerator(),
		Log:       log.Named("commands"),
	}
	registry := bot.NewRegistry()
	commands.Register(registry, deps)

	// === Dispatcher ===
	limiter := bot.NewRateLimiter(cfg.RateLimitWindow(), cfg.Bot.RateLimitMax)
	gate := bot.NewGate(userRepo, tg, log.Named("authz"))
	dispatcher := bot.NewDispatcher(
		bot.Options{
			Prefix:          cfg.Bot.CommandPrefix,
			Workers:         cfg.Bot.Workers,
			ShutdownTimeout: cfg.ShutdownTimeout(),
			ScanRules:       commands.ScanRules(botName),
		},
		registry,
		limiter,
		gate,
		tg,
		applier,
		userRepo,
		commands.JoinGreeter(deps),
		commands.DefaultHandler(deps),
		log.Named("dispatcher"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	dispatcher.Start(ctx)
	go tg.Run(ctx, dispatcher.HandleEvent)

	// === Cron jobs ===
	var tagline atomic.Value
	tagline.Store(deps.Tables.RandomQuote())
	crontab := cron.New()
	if _, err := crontab.AddFunc("0 * * * *", func() {
		tagline.Store(deps.Tables.RandomQuote())
	}); err != nil {
		return fmt.Errorf("cron tagline: %w", err)
	}
	if _, err := crontab.AddFunc("30 3 * * *", func() {
		cleanFiles(cfg.Files.RootDir, 24*time.Hour, log.Named("cleanup"))
	}); err != nil {
		return fmt.Errorf("cron cleanup: %w", err)
	}
	crontab.Start()

	// === HTTP ===
	statusHandler := handlers.NewStatusHandler(userService, groupService, botName, startedAt)
	statusHandler.Tagline = func() string { s, _ := tagline.Load().(string); return s }
	router := routes.SetupRoutes(gin.Default(), statusHandler, authService)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}()
	log.Info("bot up",
		zap.Int("port", cfg.Server.Port),
		zap.String("prefix", cfg.Bot.CommandPrefix),
		zap.Bool("telegram_dry_run", cfg.Telegram.DryRun))

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	crontab.Stop()
	if err := dispatcher.Shutdown(); err != nil {
		log.Warn("dispatcher shutdown", zap.Error(err))
	}
	sched.Stop()
	return nil
}

// cleanFiles removes files under dir that have not been touched within ttl.
func cleanFiles(dir string, ttl time.Duration, log *zap.Logger) {
	cutoff := time.Now().Add(-ttl)
	removed := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		log.Warn("cache cleanup failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	if removed > 0 {
		log.Info("cache cleaned", zap.String("dir", dir), zap.Int("removed", removed))
	}
}
