package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/approval-engine/internal/api"
	"github.com/garyjia/approval-engine/internal/catalog"
	"github.com/garyjia/approval-engine/internal/config"
	"github.com/garyjia/approval-engine/internal/engine"
	"github.com/garyjia/approval-engine/internal/repository"
	"github.com/garyjia/approval-engine/internal/validation"
	"github.com/garyjia/approval-engine/pkg/database"
	"github.com/garyjia/approval-engine/pkg/utils"
)

func main() {
	// Optional .env for local development
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("rules_path", cfg.Engine.RulesPath))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	cat, err := catalog.Load(cfg.Engine.RulesPath)
	if err != nil {
		logger.Fatal("Failed to load rule catalog", zap.Error(err))
	}
	logger.Info("Rule catalog loaded",
		zap.String("version", cat.Version),
		zap.Int("rules", len(cat.Rules)))

	queueRepo := repository.NewQueueRepository(db.DB, logger)
	outboxRepo := repository.NewNotificationRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)
	recordRepo := repository.NewRecordRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	txManager := repository.NewTxManager(db)

	validator := validation.NewEngine(cat, historyRepo, validation.Config{
		DuplicateWindow:    cfg.Engine.DuplicateWindow,
		ActivityWindow:     cfg.Engine.ActivityWindow,
		ActivityLimit:      cfg.Engine.ActivityLimit,
		AnonymousThreshold: cfg.Engine.AnonymousThreshold,
	}, logger)

	approvalEngine := engine.New(
		cat,
		validator,
		queueRepo,
		outboxRepo,
		auditRepo,
		recordRepo,
		historyRepo,
		txManager,
		engine.Config{AutoApproveCeiling: cfg.Engine.AutoApproveCeiling},
		logger,
	)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, approvalEngine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
