package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studioops/internal/http/handlers"
	httpapi "studioops/internal/http/httpapi"
	"studioops/internal/infra"
	"studioops/internal/media"
	"studioops/internal/providers/dropbox"
	"studioops/internal/providers/replicate"
	"studioops/internal/store"
	"studioops/internal/videogen"
)

func main() {
	// .env is optional
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
	galleries := store.NewGalleries(sqlRunner)
	credentials := store.NewCredentials(sqlRunner)

	storage, err := dropbox.NewClient(dropbox.Options{
		AppKey:         cfg.DropboxAppKey,
		AppSecret:      cfg.DropboxAppSecret,
		APIBaseURL:     cfg.DropboxAPIBaseURL,
		ContentBaseURL: cfg.DropboxContentBaseURL,
		Credentials:    credentials,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build storage client")
	}
	videos, err := replicate.NewClient(replicate.Options{
		APIToken:     cfg.ReplicateAPIToken,
		BaseURL:      cfg.ReplicateBaseURL,
		ModelVersion: cfg.ReplicateModelVersion,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation client")
	}

	transformer := media.NewTransformer(storage, media.NewTTLCache(cfg.LogoCacheTTL), nil, &logger)
	orchestrator := videogen.NewOrchestrator(galleries, videos, storage, nil, &logger)
	relay := videogen.NewRelay(storage, galleries, cfg.RelayPollInterval, cfg.RelayPollTimeout, &logger)

	app := &handlers.App{
		Logger:    logger,
		Galleries: galleries,
		Media:     transformer,
		Videos:    orchestrator,
		Relay:     relay,
	}

	router := httpapi.NewRouter(cfg, logger, app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	logger.Info().Msg("server stopped")
}
