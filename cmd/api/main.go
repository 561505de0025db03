package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"offersync/internal/adapter/repo"
	"offersync/internal/batch"
	"offersync/internal/billing"
	"offersync/internal/content"
	"offersync/internal/http/handlers"
	httpapi "offersync/internal/http/httpapi"
	"offersync/internal/imagepipe"
	"offersync/internal/infra"
	"offersync/internal/infra/credentials"
	"offersync/internal/jobs"
	"offersync/internal/marketplace"
	"offersync/internal/providers"
	"offersync/internal/providers/genai"
	"offersync/internal/providers/openai"
	"offersync/internal/providers/resilience"
	"offersync/internal/storage"
	"offersync/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	creds := credentials.NewStore(sqlRunner)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.New(reg)

	// keys from the environment win over the stored ones
	geminiKey := cfg.GeminiAPIKey
	if geminiKey == "" {
		if geminiKey, err = creds.GeminiAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load stored gemini key")
		}
	}
	openaiKey := cfg.OpenAIAPIKey
	if openaiKey == "" {
		if openaiKey, err = creds.OpenAIAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load stored openai key")
		}
	}

	var (
		primary   providers.TextGenerator
		secondary providers.TextGenerator
		editor    providers.ImageEditor
	)
	if geminiKey != "" {
		gemini, err := genai.NewClient(genai.Options{
			APIKey:     geminiKey,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			ImageModel: cfg.GeminiImageModel,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init gemini client")
		}
		primary = gemini
		editor = gemini
	}
	if openaiKey != "" {
		gpt := openai.NewClient(openai.Options{
			APIKey:       openaiKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
		})
		if primary == nil {
			primary = gpt
		} else {
			secondary = gpt
		}
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}
	guard := imagepipe.NewGuard(cfg.ImageSourceAllowlist, nil)
	images := imagepipe.NewPipeline(store, imagepipe.NewGuardedDownloader(guard, 30*time.Second), editor, logger, metrics)
	if editor == nil {
		logger.Warn().Msg("no image provider configured, image edits will re-encode originals")
	}

	ledger := billing.NewLedger(billing.NewPGStore(sqlRunner), logger, metrics)

	deps := batch.Deps{Billing: ledger, Images: images}
	if primary != nil {
		policy := resilience.DefaultPolicy()
		policy.Attempts = cfg.ProviderAttempts
		policy.Delay = cfg.ProviderDelay
		generator := resilience.NewFallback(primary, secondary, policy, logger, metrics)
		templates := repo.NewTemplateRepository(sqlRunner)
		deps.Content = content.NewPipeline(templates, generator, cfg.GenerationWorkers, cfg.DefaultLocale, logger)
	} else {
		logger.Warn().Msg("no text provider configured, AI descriptions are unavailable")
	}

	adapter, err := marketplace.NewHTTPAdapter(marketplace.HTTPAdapterOptions{
		BaseURL:           cfg.MarketplaceBaseURL,
		AuthURL:           cfg.MarketplaceAuthURL,
		ClientID:          cfg.MarketplaceClientID,
		ClientSecret:      cfg.MarketplaceClientSecret,
		RequestsPerSecond: cfg.MarketplaceRPS,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init marketplace adapter")
	}
	opener := marketplace.NewOpener(adapter, func(ctx context.Context, userID string) (marketplace.Auth, bool, error) {
		tokens, ok, err := creds.MarketplaceTokens(ctx, userID)
		if err != nil || !ok {
			return marketplace.Auth{}, ok, err
		}
		return marketplace.Auth{
			UserID:       userID,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		}, true, nil
	}, creds, logger, metrics)

	registry := jobs.NewRegistry(cfg.JobRetention)
	deps.Jobs = registry
	runner := jobs.NewRunner(cfg.JobWorkers, cfg.JobQueueSize, logger)
	sweeper, err := jobs.NewSweeper(registry, cfg.JobSweepInterval, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init job sweeper")
	}
	sweeper.Start()

	processor := batch.NewProcessor(deps, batch.Options{
		ChunkSizeSimple:   cfg.ChunkSizeSimple,
		ChunkSizeComplex:  cfg.ChunkSizeComplex,
		PricePollInterval: cfg.PricePollInterval,
		PricePollAttempts: cfg.PricePollAttempts,
	}, logger, metrics)

	app := &handlers.App{
		Jobs:      registry,
		Runner:    runner,
		Processor: processor,
		Wallets:   ledger,
		OpenSession: func(ctx context.Context, userID string) (batch.Session, error) {
			session, err := opener.Open(ctx, userID)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		Metrics:  metrics,
		Logger:   logger,
		Currency: cfg.Currency,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTAudience:    cfg.JWTAudience,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitPerMin,
		RatePer:        time.Minute,
		DefaultLocale:  cfg.DefaultLocale,
		Languages:      cfg.Languages,
		Metrics:        metrics.Handler(),
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// queued jobs keep running until the shutdown deadline
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("job runner did not drain")
	}
	sweeper.Stop()
	logger.Info().Msg("server stopped")
}
