package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/internal/metrics"
	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// QuoteSink accepts validated maker quotes. Implemented by the RFQ registry.
type QuoteSink interface {
	RecordQuote(q model.Quote) (model.Quote, error)
}

// Allowlist gates REGISTER. Implemented by the maker registry.
type Allowlist interface {
	IsAllowed(pubkey string) bool
}

// Hub manages one addressable channel per maker. A connection is anonymous
// until a REGISTER frame supplies an identity; registering the same identity
// again rebinds it to the newest connection (last writer wins) without
// forcibly closing the old one. All outbound sends are best-effort: a slow or
// dead maker drops frames, it never stalls the broadcast to others.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*Conn]struct{}
	byPubkey map[string]*Conn

	allowlist  Allowlist
	quotes     QuoteSink
	logger     *zap.Logger
	sendBuffer int
}

// NewHub creates an empty hub.
func NewHub(allowlist Allowlist, quotes QuoteSink, sendBuffer int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		conns:      make(map[*Conn]struct{}),
		byPubkey:   make(map[string]*Conn),
		allowlist:  allowlist,
		quotes:     quotes,
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// Conn is one maker websocket connection. Writes go through the send channel
// so only the write loop touches the socket.
type Conn struct {
	sock      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	pubkey    string // bound identity, guarded by hub.mu; empty while anonymous
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.Close()
	})
}

// trySend queues a frame without blocking. Returns false if the connection is
// closed or its buffer is full.
func (c *Conn) trySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ServeConn owns the connection until it disconnects: it starts the write
// loop and runs the read loop on the calling goroutine.
func (h *Hub) ServeConn(sock *websocket.Conn) {
	c := &Conn{
		sock: sock,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("hub.connected", zap.String("remote", sock.RemoteAddr().String()))

	go c.writeLoop()
	h.readLoop(c)
}

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			// A nil frame is the hang-up sentinel: close once everything
			// queued ahead of it has been flushed.
			if msg == nil {
				c.shutdown()
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) readLoop(c *Conn) {
	defer h.remove(c)

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("hub.read_failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, model.ErrMalformedMessage.Error())
			continue
		}

		switch env.Type {
		case TypeRegister:
			h.handleRegister(c, env.Data)
		case TypeQuote:
			h.handleQuote(c, env.Data)
		default:
			h.sendError(c, "unknown message type")
		}
	}
}

// handleRegister binds the connection to a maker identity after the allowlist
// check. A rejected registration gets an ERROR frame and the connection is
// closed, matching the taker-side contract.
func (h *Hub) handleRegister(c *Conn, data json.RawMessage) {
	var reg RegisterPayload
	if err := json.Unmarshal(data, &reg); err != nil || reg.Pubkey == "" {
		h.sendError(c, fmt.Sprintf("REGISTER: %s", model.ErrMalformedMessage))
		return
	}

	if h.allowlist != nil && !h.allowlist.IsAllowed(reg.Pubkey) {
		h.logger.Warn("hub.register_rejected", zap.String("pubkey", reg.Pubkey))
		h.sendError(c, "not in allowlist")
		if !c.trySend(nil) {
			c.shutdown()
		}
		return
	}

	h.mu.Lock()
	// Displace any prior connection bound to this identity. The old channel
	// stays open, it just stops being addressable under the pubkey.
	if prev, ok := h.byPubkey[reg.Pubkey]; ok && prev != c {
		prev.pubkey = ""
	}
	// Re-registering the same connection under a new identity releases the
	// old binding.
	if c.pubkey != "" && c.pubkey != reg.Pubkey && h.byPubkey[c.pubkey] == c {
		delete(h.byPubkey, c.pubkey)
	}
	c.pubkey = reg.Pubkey
	h.byPubkey[reg.Pubkey] = c
	bound := len(h.byPubkey)
	h.mu.Unlock()

	metrics.ConnectedMakers.Set(float64(bound))
	h.logger.Info("hub.registered", zap.String("pubkey", reg.Pubkey))

	if msg, err := Marshal(TypeRegistered, RegisteredPayload{Pubkey: reg.Pubkey}); err == nil {
		if !c.trySend(msg) {
			metrics.IncDropped(TypeRegistered)
		}
	}
}

// handleQuote forwards a quote to the registry and acks or reports the
// rejection reason over the same channel.
func (h *Hub) handleQuote(c *Conn, data json.RawMessage) {
	var q QuotePayload
	if err := json.Unmarshal(data, &q); err != nil || q.RFQID == "" || q.MakerPubkey == "" {
		h.sendError(c, fmt.Sprintf("QUOTE: %s", model.ErrMalformedMessage))
		return
	}

	_, err := h.quotes.RecordQuote(model.Quote{
		RFQID:        q.RFQID,
		MakerPubkey:  q.MakerPubkey,
		Premium:      q.Premium,
		ValidUntilTs: q.ValidUntilTs,
		Signature:    q.Signature,
	})
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	if msg, err := Marshal(TypeQuoteAck, QuoteAckPayload{RFQID: q.RFQID}); err == nil {
		if !c.trySend(msg) {
			metrics.IncDropped(TypeQuoteAck)
		}
	}
}

func (h *Hub) sendError(c *Conn, reason string) {
	msg, err := Marshal(TypeError, ErrorPayload{Error: reason})
	if err != nil {
		return
	}
	if !c.trySend(msg) {
		metrics.IncDropped(TypeError)
	}
}

// remove unbinds and drops the connection once its read loop exits.
func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	if c.pubkey != "" && h.byPubkey[c.pubkey] == c {
		delete(h.byPubkey, c.pubkey)
		h.logger.Info("hub.disconnected", zap.String("pubkey", c.pubkey))
	}
	bound := len(h.byPubkey)
	h.mu.Unlock()

	metrics.ConnectedMakers.Set(float64(bound))
	c.shutdown()
}

// BroadcastNewRFQ fans the new request out to every currently bound maker.
// Makers connecting later never see this request; there is no backfill.
func (h *Hub) BroadcastNewRFQ(req model.RFQRequest) {
	msg, err := Marshal(TypeNewRFQ, req)
	if err != nil {
		h.logger.Error("hub.broadcast_marshal_failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.byPubkey))
	for _, c := range h.byPubkey {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.trySend(msg) {
			sent++
		} else {
			metrics.IncDropped(TypeNewRFQ)
		}
	}

	h.logger.Info("hub.broadcast",
		zap.String("rfq_id", req.ID),
		zap.Int("makers", len(targets)),
		zap.Int("sent", sent),
	)
}

// NotifyFilled unicasts the fill notification to the winning maker.
// Silently drops if the maker is not currently connected; fill notifications
// are not queued or retried.
func (h *Hub) NotifyFilled(pubkey string, fill model.FillResult) {
	msg, err := Marshal(TypeRFQFilled, FilledPayload{RFQID: fill.RFQID, Premium: fill.Premium})
	if err != nil {
		return
	}

	h.mu.RLock()
	c, ok := h.byPubkey[pubkey]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("hub.unicast_skipped", zap.String("pubkey", pubkey), zap.String("rfq_id", fill.RFQID))
		return
	}
	if !c.trySend(msg) {
		metrics.IncDropped(TypeRFQFilled)
	}
}

// IsConnected reports whether the identity has a live, registered channel.
func (h *Hub) IsConnected(pubkey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byPubkey[pubkey]
	return ok
}

// CloseAll tears down every connection (shutdown path).
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
}
