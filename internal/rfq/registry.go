package rfq

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/internal/metrics"
	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// Broadcaster delivers engine-to-maker notifications. Implemented by the
// websocket hub; sends are best-effort and must never block the registry.
type Broadcaster interface {
	BroadcastNewRFQ(req model.RFQRequest)
	NotifyFilled(pubkey string, fill model.FillResult)
}

// Allowlist gates quote submission. Implemented by the maker registry.
type Allowlist interface {
	IsAllowed(pubkey string) bool
}

// EventSink receives lifecycle events for downstream consumers (settlement
// keeper, audit). Implemented by the NATS publisher.
type EventSink interface {
	RFQCreated(req model.RFQRequest)
	RFQFilled(fill model.FillResult)
	RFQExpired(id string)
	RFQCancelled(id string)
}

// Registry owns every in-flight and completed auction. All state transitions
// for an RFQ (recordQuote, fill, expire, cancel) serialize on the registry
// mutex, so a fill racing a timer-driven expiry can never leave inconsistent
// state. Completed auctions stay queryable for the process lifetime.
type Registry struct {
	mu    sync.RWMutex
	rfqs  map[string]*model.RFQState
	order []string // creation order, for stable listings

	allowlist Allowlist
	hub       Broadcaster
	events    EventSink
	logger    *zap.Logger
}

// NewRegistry creates an empty RFQ registry. hub and events may be nil; the
// registry then skips the corresponding notifications.
func NewRegistry(allowlist Allowlist, hub Broadcaster, events EventSink, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rfqs:      make(map[string]*model.RFQState),
		allowlist: allowlist,
		hub:       hub,
		events:    events,
		logger:    logger,
	}
}

// SetBroadcaster wires the hub after construction (the hub needs the registry
// as its quote sink, so one side has to be set late).
func (r *Registry) SetBroadcaster(hub Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hub = hub
}

func (r *Registry) broadcaster() Broadcaster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hub
}

// Create assigns a fresh id, stores the auction OPEN, schedules its expiry
// timer and broadcasts the request to every registered maker. A deadline
// already in the past is clamped to zero, so the auction expires immediately
// after creation rather than being rejected.
func (r *Registry) Create(req model.RFQRequest) model.RFQRequest {
	req.ID = fmt.Sprintf("rfq_%s", uuid.NewString())
	now := time.Now()

	state := &model.RFQState{
		Request:   req,
		Quotes:    []model.Quote{},
		Status:    model.StatusOpen,
		CreatedAt: now,
	}

	r.mu.Lock()
	r.rfqs[req.ID] = state
	r.order = append(r.order, req.ID)
	r.mu.Unlock()

	delay := time.Until(time.Unix(req.ValidUntilTs, 0))
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() { r.Expire(req.ID) })

	if hub := r.broadcaster(); hub != nil {
		hub.BroadcastNewRFQ(req)
	}
	if r.events != nil {
		r.events.RFQCreated(req)
	}
	metrics.IncRFQ("created")

	r.logger.Info("rfq.created",
		zap.String("rfq_id", req.ID),
		zap.String("underlying", req.Underlying),
		zap.String("option_type", string(req.OptionType)),
		zap.Int64("strike", req.Strike),
		zap.Duration("auction_window", delay),
	)
	return req
}

// Get returns a snapshot of the auction state, or ErrNotFound.
func (r *Registry) Get(id string) (model.RFQState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rfqs[id]
	if !ok {
		return model.RFQState{}, model.ErrNotFound
	}
	return snapshot(state), nil
}

// ListOpen returns summaries of all currently OPEN auctions in creation order.
func (r *Registry) ListOpen() []model.RFQSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]model.RFQSummary, 0)
	for _, id := range r.order {
		state := r.rfqs[id]
		if state.Status != model.StatusOpen {
			continue
		}
		summaries = append(summaries, model.RFQSummary{
			ID:         id,
			Underlying: state.Request.Underlying,
			Strike:     state.Request.Strike,
			Size:       state.Request.Size,
			QuoteCount: len(state.Quotes),
		})
	}
	return summaries
}

// RecordQuote validates and appends a maker quote. Rejections (unknown RFQ,
// non-OPEN status, maker not allowlisted) happen here, at submission time, so
// rejected quotes never enter the quote list. The receipt timestamp is
// assigned by the engine and is the tie-break key.
func (r *Registry) RecordQuote(q model.Quote) (model.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rfqs[q.RFQID]
	if !ok {
		metrics.IncQuote("not_found")
		return model.Quote{}, fmt.Errorf("record quote for %q: %w", q.RFQID, model.ErrNotFound)
	}
	if state.Status != model.StatusOpen {
		metrics.IncQuote("invalid_state")
		return model.Quote{}, fmt.Errorf("rfq %q is %s: %w", q.RFQID, state.Status, model.ErrInvalidState)
	}
	if r.allowlist != nil && !r.allowlist.IsAllowed(q.MakerPubkey) {
		metrics.IncQuote("not_allowlisted")
		return model.Quote{}, fmt.Errorf("maker %q: %w", q.MakerPubkey, model.ErrNotAllowlisted)
	}

	q.ReceivedAt = time.Now()
	state.Quotes = append(state.Quotes, q)

	// Incremental best-quote cache: strictly greater displaces, ties keep
	// the earlier quote.
	if state.BestQuote == nil || q.Premium > state.BestQuote.Premium {
		stored := q
		state.BestQuote = &stored
	}

	metrics.IncQuote("accepted")
	r.logger.Info("rfq.quote_received",
		zap.String("rfq_id", q.RFQID),
		zap.String("maker", q.MakerPubkey),
		zap.Int64("premium", q.Premium),
		zap.Int("quote_count", len(state.Quotes)),
	)
	return q, nil
}

// Fill selects the best outstanding quote, validates it against the premium
// floor, and transitions the auction to FILLED. The returned FillResult is
// what downstream settlement consumes. A second fill on the same id fails
// with ErrInvalidState and has no side effects.
func (r *Registry) Fill(id string) (model.FillResult, error) {
	r.mu.Lock()

	state, ok := r.rfqs[id]
	if !ok {
		r.mu.Unlock()
		return model.FillResult{}, fmt.Errorf("fill %q: %w", id, model.ErrNotFound)
	}
	if state.Status != model.StatusOpen {
		status := state.Status
		r.mu.Unlock()
		return model.FillResult{}, fmt.Errorf("rfq %q is %s: %w", id, status, model.ErrInvalidState)
	}

	best := Best(state.Quotes)
	if best == nil {
		r.mu.Unlock()
		return model.FillResult{}, fmt.Errorf("fill %q: %w", id, model.ErrNoQuotes)
	}
	if best.Premium < state.Request.PremiumFloor {
		premium, floor := best.Premium, state.Request.PremiumFloor
		r.mu.Unlock()
		return model.FillResult{}, fmt.Errorf("best quote %d below floor %d: %w", premium, floor, model.ErrBelowFloor)
	}

	state.Status = model.StatusFilled
	winner := *best
	state.BestQuote = &winner
	createdAt := state.CreatedAt
	r.mu.Unlock()

	fill := model.FillResult{RFQID: id, Maker: winner.MakerPubkey, Premium: winner.Premium}

	if hub := r.broadcaster(); hub != nil {
		hub.NotifyFilled(winner.MakerPubkey, fill)
	}
	if r.events != nil {
		r.events.RFQFilled(fill)
	}
	metrics.IncRFQ("filled")
	metrics.ObserveTimeToFill(createdAt)

	r.logger.Info("rfq.filled",
		zap.String("rfq_id", id),
		zap.String("maker", winner.MakerPubkey),
		zap.Int64("premium", winner.Premium),
	)
	return fill, nil
}

// Expire transitions an OPEN auction to EXPIRED. Idempotent: a no-op when the
// RFQ is unknown or already terminal, which makes the timer safe to fire
// after a concurrent fill or cancel.
func (r *Registry) Expire(id string) {
	r.mu.Lock()
	state, ok := r.rfqs[id]
	if !ok || state.Status != model.StatusOpen {
		r.mu.Unlock()
		return
	}
	state.Status = model.StatusExpired
	r.mu.Unlock()

	if r.events != nil {
		r.events.RFQExpired(id)
	}
	metrics.IncRFQ("expired")
	r.logger.Info("rfq.expired", zap.String("rfq_id", id))
}

// Cancel explicitly transitions an OPEN auction to CANCELLED.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	state, ok := r.rfqs[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("cancel %q: %w", id, model.ErrNotFound)
	}
	if state.Status != model.StatusOpen {
		status := state.Status
		r.mu.Unlock()
		return fmt.Errorf("rfq %q is %s: %w", id, status, model.ErrInvalidState)
	}
	state.Status = model.StatusCancelled
	r.mu.Unlock()

	if r.events != nil {
		r.events.RFQCancelled(id)
	}
	metrics.IncRFQ("cancelled")
	r.logger.Info("rfq.cancelled", zap.String("rfq_id", id))
	return nil
}

// snapshot copies the state so callers never observe concurrent mutation.
func snapshot(state *model.RFQState) model.RFQState {
	out := *state
	out.Quotes = append([]model.Quote(nil), state.Quotes...)
	if state.BestQuote != nil {
		best := *state.BestQuote
		out.BestQuote = &best
	}
	return out
}
