package rfq

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeAllowlist struct {
	mu      sync.Mutex
	allowed map[string]bool
}

func newFakeAllowlist(pubkeys ...string) *fakeAllowlist {
	a := &fakeAllowlist{allowed: make(map[string]bool)}
	for _, p := range pubkeys {
		a.allowed[p] = true
	}
	return a
}

func (a *fakeAllowlist) IsAllowed(pubkey string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowed[pubkey]
}

type fakeHub struct {
	mu         sync.Mutex
	broadcasts []model.RFQRequest
	fills      []model.FillResult
	fillMakers []string
}

func (h *fakeHub) BroadcastNewRFQ(req model.RFQRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, req)
}

func (h *fakeHub) NotifyFilled(pubkey string, fill model.FillResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fillMakers = append(h.fillMakers, pubkey)
	h.fills = append(h.fills, fill)
}

type fakeEvents struct {
	mu        sync.Mutex
	created   []string
	filled    []model.FillResult
	expired   []string
	cancelled []string
}

func (e *fakeEvents) RFQCreated(req model.RFQRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, req.ID)
}

func (e *fakeEvents) RFQFilled(fill model.FillResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filled = append(e.filled, fill)
}

func (e *fakeEvents) RFQExpired(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, id)
}

func (e *fakeEvents) RFQCancelled(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, id)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func testRequest(floor int64, window time.Duration) model.RFQRequest {
	return model.RFQRequest{
		Underlying:   "SOL",
		OptionType:   model.OptionCall,
		ExpiryTs:     time.Now().Add(24 * time.Hour).Unix(),
		Strike:       150_000000,
		Size:         10_000000,
		PremiumFloor: floor,
		ValidUntilTs: time.Now().Add(window).Unix(),
		Settlement:   model.SettlementCash,
		OraclePrice:  149_500000,
		OracleTs:     time.Now().Unix(),
	}
}

func quote(rfqID, maker string, premium int64) model.Quote {
	return model.Quote{
		RFQID:        rfqID,
		MakerPubkey:  maker,
		Premium:      premium,
		ValidUntilTs: time.Now().Add(time.Minute).Unix(),
		Signature:    "test-signature",
	}
}

// ─── Create / Get / ListOpen ──────────────────────────────────────────────────

func TestCreate_AssignsIDStoresOpenAndBroadcasts(t *testing.T) {
	hub := &fakeHub{}
	events := &fakeEvents{}
	reg := NewRegistry(newFakeAllowlist(), hub, events, zap.NewNop())

	stored := reg.Create(testRequest(500000, 5*time.Minute))
	require.NotEmpty(t, stored.ID)

	state, err := reg.Get(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, state.Status)
	assert.Equal(t, stored, state.Request)
	assert.Empty(t, state.Quotes)
	assert.Nil(t, state.BestQuote)

	require.Len(t, hub.broadcasts, 1)
	assert.Equal(t, stored.ID, hub.broadcasts[0].ID)
	assert.Equal(t, []string{stored.ID}, events.created)
}

func TestGet_Unknown(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist(), nil, nil, zap.NewNop())

	_, err := reg.Get("rfq_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListOpen_OnlyOpenInCreationOrder(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())

	first := reg.Create(testRequest(0, 5*time.Minute))
	second := reg.Create(testRequest(0, 5*time.Minute))
	third := reg.Create(testRequest(0, 5*time.Minute))

	_, err := reg.RecordQuote(quote(second.ID, "mm-a", 100))
	require.NoError(t, err)
	_, err = reg.Fill(second.ID)
	require.NoError(t, err)

	open := reg.ListOpen()
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, third.ID, open[1].ID)
}

// ─── RecordQuote ──────────────────────────────────────────────────────────────

func TestRecordQuote_UnknownRFQ(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())

	_, err := reg.RecordQuote(quote("rfq_missing", "mm-a", 100))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRecordQuote_NotAllowlisted(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-intruder", 100))
	assert.ErrorIs(t, err, model.ErrNotAllowlisted)

	// The rejected quote never polluted the list.
	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Len(t, state.Quotes, 0)
	assert.Nil(t, state.BestQuote)
}

func TestRecordQuote_AssignsReceiptTimestamp(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	q := quote(req.ID, "mm-a", 100)
	q.ReceivedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC) // maker-supplied, must be ignored

	stored, err := reg.RecordQuote(q)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), stored.ReceivedAt, time.Second)
}

func TestRecordQuote_UpdatesBestQuoteCache(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a", "mm-b", "mm-c"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	for _, q := range []model.Quote{
		quote(req.ID, "mm-a", 10),
		quote(req.ID, "mm-b", 30),
		quote(req.ID, "mm-c", 30), // tie: mm-b stays best
		quote(req.ID, "mm-a", 5),
	} {
		_, err := reg.RecordQuote(q)
		require.NoError(t, err)
	}

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	require.Len(t, state.Quotes, 4)
	require.NotNil(t, state.BestQuote)
	assert.Equal(t, "mm-b", state.BestQuote.MakerPubkey)
	assert.Equal(t, int64(30), state.BestQuote.Premium)
}

// ─── Fill ─────────────────────────────────────────────────────────────────────

func TestFill_EndToEndScenario(t *testing.T) {
	hub := &fakeHub{}
	events := &fakeEvents{}
	reg := NewRegistry(newFakeAllowlist("mm-a", "mm-b"), hub, events, zap.NewNop())

	req := reg.Create(testRequest(500000, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-a", 600000))
	require.NoError(t, err)
	_, err = reg.RecordQuote(quote(req.ID, "mm-b", 900000))
	require.NoError(t, err)

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Len(t, state.Quotes, 2)
	require.NotNil(t, state.BestQuote)
	assert.Equal(t, int64(900000), state.BestQuote.Premium)

	fill, err := reg.Fill(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FillResult{RFQID: req.ID, Maker: "mm-b", Premium: 900000}, fill)

	state, err = reg.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFilled, state.Status)

	// The winner was unicast and the decision published for settlement.
	assert.Equal(t, []string{"mm-b"}, hub.fillMakers)
	require.Len(t, events.filled, 1)
	assert.Equal(t, fill, events.filled[0])

	// A quote arriving after the fill is rejected and leaves no trace.
	_, err = reg.RecordQuote(quote(req.ID, "mm-a", 950000))
	assert.ErrorIs(t, err, model.ErrInvalidState)
	state, _ = reg.Get(req.ID)
	assert.Len(t, state.Quotes, 2)
}

func TestFill_SecondFillRejectedWithoutSideEffects(t *testing.T) {
	hub := &fakeHub{}
	reg := NewRegistry(newFakeAllowlist("mm-a"), hub, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-a", 100))
	require.NoError(t, err)

	_, err = reg.Fill(req.ID)
	require.NoError(t, err)

	_, err = reg.Fill(req.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	assert.Len(t, hub.fillMakers, 1, "no second notification")
}

func TestFill_NoQuotes(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist(), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	_, err := reg.Fill(req.ID)
	assert.ErrorIs(t, err, model.ErrNoQuotes)
}

func TestFill_BelowFloorLeavesOpen(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(5, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-a", 4))
	require.NoError(t, err)

	_, err = reg.Fill(req.ID)
	assert.ErrorIs(t, err, model.ErrBelowFloor)

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, state.Status)
}

func TestFill_FloorMetExactly(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(100, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-a", 100))
	require.NoError(t, err)

	fill, err := reg.Fill(req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), fill.Premium)
}

func TestFill_Unknown(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist(), nil, nil, zap.NewNop())

	_, err := reg.Fill("rfq_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// ─── Expire ───────────────────────────────────────────────────────────────────

func TestExpire_IdempotentAndTerminalSafe(t *testing.T) {
	events := &fakeEvents{}
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, events, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	reg.Expire(req.ID)
	reg.Expire(req.ID) // second firing is a no-op
	reg.Expire("rfq_missing")

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, state.Status)
	assert.Equal(t, []string{req.ID}, events.expired)
}

func TestExpire_DoesNotRegressFilled(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	_, err := reg.RecordQuote(quote(req.ID, "mm-a", 100))
	require.NoError(t, err)
	_, err = reg.Fill(req.ID)
	require.NoError(t, err)

	// Timer firing late must not move a terminal state.
	reg.Expire(req.ID)

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFilled, state.Status)
}

func TestTimerExpiry_PastDeadlineExpiresImmediately(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, nil, zap.NewNop())

	req := testRequest(0, 0)
	req.ValidUntilTs = time.Now().Add(-time.Second).Unix() // already past, clamped to zero
	stored := reg.Create(req)

	require.Eventually(t, func() bool {
		state, err := reg.Get(stored.ID)
		return err == nil && state.Status == model.StatusExpired
	}, 2*time.Second, 10*time.Millisecond)

	// Quotes and fills against the expired auction are rejected.
	_, err := reg.RecordQuote(quote(stored.ID, "mm-a", 100))
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = reg.Fill(stored.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

// ─── Cancel ───────────────────────────────────────────────────────────────────

func TestCancel_Transitions(t *testing.T) {
	events := &fakeEvents{}
	reg := NewRegistry(newFakeAllowlist("mm-a"), nil, events, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	require.NoError(t, reg.Cancel(req.ID))

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, state.Status)
	assert.Equal(t, []string{req.ID}, events.cancelled)

	assert.ErrorIs(t, reg.Cancel(req.ID), model.ErrInvalidState)
	assert.ErrorIs(t, reg.Cancel("rfq_missing"), model.ErrNotFound)

	_, err = reg.RecordQuote(quote(req.ID, "mm-a", 100))
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

// ─── Concurrency ──────────────────────────────────────────────────────────────

// Quotes, a fill and the expiry race on the same RFQ; the registry must end
// in exactly one terminal state with a best quote consistent with the list.
func TestConcurrentQuotesFillAndExpire(t *testing.T) {
	reg := NewRegistry(newFakeAllowlist("mm-a", "mm-b", "mm-c"), &fakeHub{}, &fakeEvents{}, zap.NewNop())
	req := reg.Create(testRequest(0, 5*time.Minute))

	var wg sync.WaitGroup
	makers := []string{"mm-a", "mm-b", "mm-c"}
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = reg.RecordQuote(quote(req.ID, makers[i%3], int64(i)))
		}(i)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = reg.Fill(req.ID)
	}()
	go func() {
		defer wg.Done()
		reg.Expire(req.ID)
	}()
	wg.Wait()

	state, err := reg.Get(req.ID)
	require.NoError(t, err)
	assert.True(t, state.Status.Terminal(), "auction must settle into a terminal state")

	if len(state.Quotes) > 0 {
		require.NotNil(t, state.BestQuote)
		best := Best(state.Quotes)
		assert.Equal(t, best.Premium, state.BestQuote.Premium)
	}

	// Terminal means frozen: nothing gets in afterwards.
	before := len(state.Quotes)
	_, err = reg.RecordQuote(quote(req.ID, "mm-a", 999))
	assert.True(t, errors.Is(err, model.ErrInvalidState))
	state, _ = reg.Get(req.ID)
	assert.Equal(t, before, len(state.Quotes))
}
