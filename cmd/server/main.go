package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fapac/materiais-bff/app"
	"github.com/fapac/materiais-bff/app/aps"
	"github.com/fapac/materiais-bff/config"
	"github.com/fapac/materiais-bff/models"
	"github.com/fapac/materiais-bff/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cleanup, err := observability.InitTracing(ctx, app.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	observability.Register(prometheus.DefaultRegisterer)

	upstream := observability.UpstreamClient(cfg.UpstreamTimeout)

	opts := app.RouterOptions{
		Materials:          models.NewMaterialsGateway(cfg.Airtable(), upstream),
		ModelsDir:          cfg.ModelsDir,
		StaticDir:          cfg.StaticDir,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		audit := models.NewAuditRepository(db)
		if err := audit.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		opts.Audit = audit
		log.Info().Msg("audit trail enabled")
	}

	if cfg.APSEnabled() {
		var store aps.TokenStore = aps.NewMemoryStore()
		if cfg.RedisURL != "" {
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				log.Fatal().Err(err).Msg("parse redis url")
			}
			rdb := redis.NewClient(redisOpts)
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Msg("connect redis")
			}
			store = aps.NewRedisStore(rdb)
		}

		client := aps.NewClient(aps.Config{
			ClientID:     cfg.APSClientID,
			ClientSecret: cfg.APSClientSecret,
			CallbackURL:  cfg.APSCallbackURL,
			BaseURL:      cfg.APSBaseURL,
		}, upstream)
		opts.APS = aps.NewHandler(client, store, cfg.SecureCookies())
		log.Info().Msg("aps routes enabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting materials server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
