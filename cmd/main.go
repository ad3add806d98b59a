package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"foodie-skill/handler"
	"foodie-skill/internal/config"
	"foodie-skill/internal/dialog"
	"foodie-skill/internal/integrations/deviceapi"
	"foodie-skill/internal/integrations/paramstore"
	"foodie-skill/internal/repository"
	"foodie-skill/internal/speech"
	"foodie-skill/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, closeStore, err := repository.NewStore(ctx, repository.StoreOptions{
		Backend:   cfg.Store.Backend,
		Dynamo:    awsdynamodb.NewFromConfig(awsCfg),
		TableName: cfg.Store.Table,
		RedisURL:  cfg.Redis.URL,
		RedisTTL:  cfg.Redis.TTL,
	})
	if err != nil {
		logger.Error("failed to create profile store", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()

	platform := deviceapi.NewClient(
		deviceapi.WithTimeout(cfg.DeviceAPI.Timeout),
		deviceapi.WithLogger(logger),
	)

	var opts []usecase.Option
	if cfg.Skill.IDParam != "" {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			logger.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		opts = append(opts, usecase.WithSkillID(ssmClient, cfg.Skill.IDParam))
	}

	// ---- Dialog ----
	catalog, err := speech.Load()
	if err != nil {
		logger.Error("failed to load speech catalog", "err", err)
		os.Exit(1)
	}
	engine, err := dialog.New(dialog.DefaultConfig(), catalog, logger)
	if err != nil {
		logger.Error("failed to create dialog engine", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	skillService, err := usecase.NewSkillService(store, platform, engine, logger, opts...)
	if err != nil {
		logger.Error("failed to create skill service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(skillService, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	logger.Info("foodie skill starting", "storeBackend", cfg.Store.Backend, "skillIdCheck", cfg.Skill.IDParam != "")
	lambda.Start(h.Handle)
}
