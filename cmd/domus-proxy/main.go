// Command domus-proxy is a debug server in front of the domus clients. It
// exposes commutes, realtor bundles, redfin lookups and a redfin pass-through
// with the anti-hijacking prefix removed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/domus-client/pkg/config"
	"github.com/Sternrassler/domus-client/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// limiterCleanupInterval is how often idle per-host limiters are dropped.
const limiterCleanupInterval = 10 * time.Minute

func main() {
	// .env is optional; real deployments set the environment directly.
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("DOMUS_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Service = "domus-proxy"
	logger := logging.Setup(logCfg)
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("No .env file loaded")
	}

	var redisClient *redis.Client
	if opts := cfg.RedisOptions(); opts != nil {
		redisClient = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", opts.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
		defer redisClient.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	app, err := NewApp(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create app")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.providerClient.Limiter().Cleanup(ctx, limiterCleanupInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("user_agent", cfg.Client.UserAgent).
			Bool("redis", redisClient != nil).
			Msg("Starting domus proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}
}
