package rfq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/rfq-router/pkg/model"
)

func quoteAt(maker string, premium int64, offset time.Duration) model.Quote {
	return model.Quote{
		RFQID:       "rfq_test",
		MakerPubkey: maker,
		Premium:     premium,
		ReceivedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestBest_Empty(t *testing.T) {
	assert.Nil(t, Best(nil))
	assert.Nil(t, Best([]model.Quote{}))
}

func TestBest_SingleQuote(t *testing.T) {
	quotes := []model.Quote{quoteAt("mm-a", 100, 0)}

	best := Best(quotes)
	require.NotNil(t, best)
	assert.Equal(t, "mm-a", best.MakerPubkey)
	assert.Equal(t, int64(100), best.Premium)
}

func TestBest_HighestPremiumWins(t *testing.T) {
	quotes := []model.Quote{
		quoteAt("mm-a", 100, 0),
		quoteAt("mm-b", 300, time.Second),
		quoteAt("mm-c", 200, 2*time.Second),
	}

	best := Best(quotes)
	require.NotNil(t, best)
	assert.Equal(t, "mm-b", best.MakerPubkey)
}

// Given premiums [10, 30, 30, 5] in receipt order, the first of the two
// premium-30 quotes must win.
func TestBest_TieGoesToFirstReceived(t *testing.T) {
	quotes := []model.Quote{
		quoteAt("mm-a", 10, 0),
		quoteAt("mm-b", 30, time.Second),
		quoteAt("mm-c", 30, 2*time.Second),
		quoteAt("mm-d", 5, 3*time.Second),
	}

	best := Best(quotes)
	require.NotNil(t, best)
	assert.Equal(t, "mm-b", best.MakerPubkey)
	assert.Equal(t, int64(30), best.Premium)
	assert.Equal(t, quotes[1].ReceivedAt, best.ReceivedAt)
}
