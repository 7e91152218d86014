package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/rfq-router/internal/api"
	"github.com/Checker-Finance/rfq-router/internal/maker"
	"github.com/Checker-Finance/rfq-router/internal/publisher"
	"github.com/Checker-Finance/rfq-router/internal/rfq"
	internalsecrets "github.com/Checker-Finance/rfq-router/internal/secrets"
	"github.com/Checker-Finance/rfq-router/internal/ws"
	"github.com/Checker-Finance/rfq-router/pkg/config"
	"github.com/Checker-Finance/rfq-router/pkg/logger"
	"github.com/Checker-Finance/rfq-router/pkg/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [rfq-router]...")

	// --- NATS lifecycle event stream (optional) ---
	var nc *nats.Conn
	var events rfq.EventSink
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err := publisher.New(nc, cfg.SubjectPrefix, cfg.ServiceName, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
		events = pub
	} else {
		logg.Warn("NATS_URL not configured; lifecycle events disabled")
	}

	// --- Maker registry & allowlist ---
	makers := maker.NewRegistry(logg.Desugar())

	// --- RFQ registry + websocket hub (hub feeds quotes into the registry) ---
	registry := rfq.NewRegistry(makers, nil, events, logg.Desugar())
	hub := ws.NewHub(makers, registry, cfg.WSSendBuffer, logg.Desugar())
	registry.SetBroadcaster(hub)
	makers.SetConnections(hub)

	// --- Maker websocket server ---
	wsServer := ws.NewServer(cfg.WSPort, hub, logg.Desugar())
	go func() {
		if err := wsServer.Listen(); err != nil {
			logg.Fatalw("ws.listen_failed", "error", err)
		}
	}()

	// --- Admin token (env, or AWS Secrets Manager when configured) ---
	var adminSource api.AdminTokenSource
	switch {
	case cfg.AdminTokenSecret != "":
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		tokenCache := secrets.NewCache[string](cfg.SecretCacheTTL)
		adminSource = internalsecrets.NewAdminTokenResolver(
			logg.Desugar(),
			cfg.AdminTokenSecret,
			awsProvider,
			tokenCache,
		)
	case cfg.AdminToken != "":
		adminSource = api.StaticToken(cfg.AdminToken)
	default:
		logg.Warn("no admin token configured; admin routes are unprotected")
	}

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewRFQHandler(logg.Desugar(), registry, makers, cfg.DefaultAuctionWindow)
	api.RegisterRoutes(app, nc, handler, api.AdminGuard(logg.Desugar(), adminSource))

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.HTTPPort)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[rfq-router] running",
		"http_port", cfg.HTTPPort,
		"ws_port", cfg.WSPort,
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"default_auction_window", cfg.DefaultAuctionWindow,
	)

	<-ctx.Done()
	logg.Info("shutting down [rfq-router]...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logg.Warnw("ws.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
}
