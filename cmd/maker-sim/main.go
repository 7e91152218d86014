package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/internal/ws"
	"github.com/Checker-Finance/rfq-router/pkg/config"
	"github.com/Checker-Finance/rfq-router/pkg/logger"
	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// maker-sim is a demo liquidity provider: it joins the allowlist over HTTP,
// registers over the websocket, and auto-quotes every RFQ it sees at a fixed
// premium in basis points of the requested size.

type simConfig struct {
	wsURL      string
	httpURL    string
	pubkey     string
	premiumBps int64
	adminToken string
}

func loadSimConfig() simConfig {
	return simConfig{
		wsURL:      config.GetEnv("RFQ_WS_URL", "ws://localhost:3002"),
		httpURL:    config.GetEnv("RFQ_HTTP_URL", "http://localhost:3001"),
		pubkey:     config.GetEnv("MAKER_PUBKEY", "maker-sim-demo"),
		premiumBps: int64(config.GetEnvInt("PREMIUM_BPS", 100)),
		adminToken: config.GetEnv("ADMIN_TOKEN", ""),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Init("maker-sim", config.GetEnv("ENV", "dev"), config.GetEnv("LOG_LEVEL", "info"))
	defer logger.Sync()
	logg := logger.L()

	cfg := loadSimConfig()
	logg.Info("starting [maker-sim]",
		zap.String("ws", cfg.wsURL),
		zap.String("http", cfg.httpURL),
		zap.String("pubkey", cfg.pubkey),
		zap.Int64("premium_bps", cfg.premiumBps),
	)

	if err := joinAllowlist(ctx, cfg); err != nil {
		logg.Fatal("failed to join allowlist", zap.Error(err))
	}

	for {
		if err := runSession(ctx, cfg, logg); err != nil {
			logg.Warn("session ended", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			logg.Info("shutting down [maker-sim]")
			return
		case <-time.After(5 * time.Second):
			logg.Info("reconnecting...")
		}
	}
}

// joinAllowlist registers the pubkey on the router's allowlist. Idempotent on
// the router side, so reconnects can call it again safely.
func joinAllowlist(ctx context.Context, cfg simConfig) error {
	body, _ := json.Marshal(map[string]string{"pubkey": cfg.pubkey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.httpURL+"/makers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.adminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("allowlist add returned %s", resp.Status)
	}
	return nil
}

// runSession holds one websocket connection: register, then quote every
// NEW_RFQ until the connection drops or the context is cancelled.
func runSession(ctx context.Context, cfg simConfig, logg *zap.Logger) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, cfg.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := send(conn, ws.TypeRegister, ws.RegisterPayload{Pubkey: cfg.pubkey}); err != nil {
		return err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logg.Warn("unparseable frame", zap.ByteString("raw", raw))
			continue
		}

		switch env.Type {
		case ws.TypeRegistered:
			logg.Info("registered with router")

		case ws.TypeNewRFQ:
			var req model.RFQRequest
			if err := json.Unmarshal(env.Data, &req); err != nil {
				continue
			}
			premium := req.Size * cfg.premiumBps / 10000
			logg.Info("quoting",
				zap.String("rfq_id", req.ID),
				zap.String("underlying", req.Underlying),
				zap.Int64("premium", premium),
			)
			quote := ws.QuotePayload{
				RFQID:        req.ID,
				MakerPubkey:  cfg.pubkey,
				Premium:      premium,
				ValidUntilTs: time.Now().Add(time.Minute).Unix(),
				Signature:    "sim-signature",
			}
			if err := send(conn, ws.TypeQuote, quote); err != nil {
				return err
			}

		case ws.TypeQuoteAck:
			var ack ws.QuoteAckPayload
			_ = json.Unmarshal(env.Data, &ack)
			logg.Info("quote acknowledged", zap.String("rfq_id", ack.RFQID))

		case ws.TypeRFQFilled:
			var filled ws.FilledPayload
			_ = json.Unmarshal(env.Data, &filled)
			logg.Info("won the auction",
				zap.String("rfq_id", filled.RFQID),
				zap.Int64("premium", filled.Premium),
			)

		case ws.TypeError:
			var e ws.ErrorPayload
			_ = json.Unmarshal(env.Data, &e)
			logg.Warn("router error", zap.String("reason", e.Error))
		}
	}
}

func send(conn *websocket.Conn, msgType string, payload any) error {
	msg, err := ws.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
