package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arafat2020/feedwire/config"
	"github.com/arafat2020/feedwire/providers"
	"github.com/arafat2020/feedwire/src/bridge"
	"github.com/arafat2020/feedwire/src/hub"
	"github.com/arafat2020/feedwire/src/service"
	"github.com/arafat2020/feedwire/src/store"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func main() {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.FromEnv()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	h := hub.New(logger)
	go h.Run()
	defer h.Stop()

	var rb *bridge.RedisBridge
	if cfg.BridgeEnabled {
		rb = initBridge(h, logger)
		if rb != nil {
			defer rb.Stop()
		}
	}

	svc := service.New(h, logger)
	api := providers.NewAPI(st, svc, h, logger)

	app := fiber.New()
	api.RegisterRoutes(app)

	// Fiber v3 does not expose *fasthttp.RequestCtx, so the WebSocket
	// upgrade is mounted next to the app handler on the raw server.
	appHandler := app.Handler()
	wsHandler := api.FastHTTPHandler()
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) == "/ws" {
				wsHandler(ctx)
				return
			}
			appHandler(ctx)
		},
		ReadBufferSize:  cfg.Socket.ReadBufferSize,
		WriteBufferSize: cfg.Socket.WriteBufferSize,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}
}

func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.PostgresURL == "" {
		logger.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.NewPostgres(ctx, cfg.PostgresURL, logger)
}

// initBridge tries to start the Redis pub/sub bridge.
// If Redis is not reachable, the hub runs in standalone mode.
func initBridge(h *hub.Hub, logger zerolog.Logger) *bridge.RedisBridge {
	cfg := bridge.RedisConfigFromEnv()
	rb := bridge.NewRedisBridge(cfg, h, logger)

	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
		return nil
	}

	h.SetBridge(rb)
	logger.Info().Str("redis_addr", cfg.Addr).Msg("redis bridge connected")
	return rb
}
