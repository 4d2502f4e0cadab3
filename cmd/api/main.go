package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/combinewear/wardrobe-backend/api/routes"
	"github.com/combinewear/wardrobe-backend/internal/auth"
	"github.com/combinewear/wardrobe-backend/internal/importantdays"
	"github.com/combinewear/wardrobe-backend/internal/media"
	"github.com/combinewear/wardrobe-backend/internal/outfits"
	"github.com/combinewear/wardrobe-backend/internal/users"
	"github.com/combinewear/wardrobe-backend/internal/wardrobe"
	"github.com/combinewear/wardrobe-backend/pkg/auth/session"
	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db"
	"github.com/combinewear/wardrobe-backend/pkg/gemini"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/mail"
	"github.com/combinewear/wardrobe-backend/pkg/metrics"
	"github.com/combinewear/wardrobe-backend/pkg/migrate"
	"github.com/combinewear/wardrobe-backend/pkg/outbox"
	"github.com/combinewear/wardrobe-backend/pkg/redis"
	"github.com/combinewear/wardrobe-backend/pkg/storage/gcs"
	"github.com/combinewear/wardrobe-backend/pkg/weather"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	// Garment analysis and outfit generation are core features, so the API
	// refuses to start without a Gemini key. Weather stays optional; its
	// endpoint reports a configuration error when the key is absent.
	if err := cfg.Gemini.Validate(); err != nil {
		logg.Error(context.Background(), "gemini configuration invalid", err)
		os.Exit(1)
	}
	geminiClient, err := gemini.NewClient(context.Background(), cfg.Gemini, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gemini", err)
		os.Exit(1)
	}
	defer func() { _ = geminiClient.Close() }()

	var weatherClient *weather.Client
	if cfg.Weather.APIKey != "" {
		weatherClient, err = weather.NewClient(cfg.Weather, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap weather client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "openweather api key missing, weather proxy disabled")
	}

	var mailer *mail.Mailer
	if cfg.Sendgrid.APIKey != "" {
		mailer, err = mail.NewMailer(cfg.Sendgrid, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap mailer", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "sendgrid api key missing, transactional email disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	generationMetrics := metrics.NewGenerationMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	userRepo := users.NewRepository(dbClient.DB())
	wardrobeRepo := wardrobe.NewRepository(dbClient.DB())
	outfitRepo := outfits.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())

	mediaService, err := media.NewService(media.ServiceParams{
		Repo:   mediaRepo,
		Store:  gcsClient,
		Tx:     dbClient,
		Outbox: outboxService,
		Bucket: cfg.GCS.BucketName,
		Media:  cfg.Media,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	wardrobeService, err := wardrobe.NewService(wardrobeRepo, geminiClient, mediaService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wardrobe service", err)
		os.Exit(1)
	}

	assembler := outfits.NewAssembler(geminiClient, rand.New(rand.NewSource(time.Now().UnixNano())), logg, generationMetrics)
	outfitService, err := outfits.NewService(outfitRepo, wardrobeRepo, assembler, dbClient, outboxService, generationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create outfit service", err)
		os.Exit(1)
	}

	importantDayRepo := importantdays.NewRepository(dbClient.DB())
	importantDayService, err := importantdays.NewService(importantDayRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create important day service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:          userRepo,
		Wardrobe:      wardrobeRepo,
		Outfits:       outfitRepo,
		ImportantDays: importantDayRepo,
		Media:         mediaRepo,
		Images:        mediaService,
		Tx:            dbClient,
		Outbox:        outboxService,
		Password:      cfg.Password,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	authParams := auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		FeatureFlags:   cfg.FeatureFlags,
		Logger:         logg,
	}
	if mailer != nil {
		authParams.Mailer = mailer
	}
	authService, err := auth.NewService(authParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	params := routes.RouterParams{
		Config:              cfg,
		Logger:              logg,
		DB:                  dbClient,
		Redis:               redisClient,
		GCS:                 gcsClient,
		SessionManager:      sessionManager,
		Metrics:             registry,
		AuthService:         authService,
		UserService:         userService,
		WardrobeService:     wardrobeService,
		OutfitService:       outfitService,
		MediaService:        mediaService,
		ImportantDayService: importantDayService,
	}
	if weatherClient != nil {
		params.Weather = weatherClient
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(params),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
