package model

import "time"

// OptionType discriminates calls from puts.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Settlement is how a filled option ultimately settles.
type Settlement string

const (
	SettlementCash     Settlement = "CASH"
	SettlementPhysical Settlement = "PHYSICAL"
)

// Status is the auction lifecycle state. OPEN is the only non-terminal state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusFilled    Status = "FILLED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s != StatusOpen
}

// RFQRequest is the immutable terms of a single option auction.
// All monetary fields (strike, size, premiumFloor, oraclePrice) are integer
// fixed-point base units.
type RFQRequest struct {
	ID           string     `json:"id"`
	Underlying   string     `json:"underlying"`
	OptionType   OptionType `json:"optionType"`
	ExpiryTs     int64      `json:"expiryTs"`     // option expiry (unix seconds), distinct from the auction deadline
	Strike       int64      `json:"strike"`
	Size         int64      `json:"size"`
	PremiumFloor int64      `json:"premiumFloor"`
	ValidUntilTs int64      `json:"validUntilTs"` // auction deadline (unix seconds)
	Settlement   Settlement `json:"settlement"`
	OraclePrice  int64      `json:"oraclePrice"`  // oracle snapshot the taker priced against
	OracleTs     int64      `json:"oracleTs"`
}

// Quote is a maker's offer on an RFQ. Signature is threaded through opaque
// and is not verified by the router. ReceivedAt is assigned by the engine on
// acceptance and is the tie-break key; maker-supplied values are ignored.
type Quote struct {
	RFQID        string    `json:"rfqId"`
	MakerPubkey  string    `json:"makerPubkey"`
	Premium      int64     `json:"premium"`
	ValidUntilTs int64     `json:"validUntilTs"`
	Signature    string    `json:"signature"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// RFQState wraps one request with its received quotes and lifecycle status.
// Quotes only grows while Status is OPEN; BestQuote, when set, is always the
// maximum-premium element of Quotes (first received wins ties).
type RFQState struct {
	Request   RFQRequest `json:"request"`
	Quotes    []Quote    `json:"quotes"`
	Status    Status     `json:"status"`
	BestQuote *Quote     `json:"bestQuote,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RFQSummary is the listing view of an open auction.
type RFQSummary struct {
	ID         string `json:"id"`
	Underlying string `json:"underlying"`
	Strike     int64  `json:"strike"`
	Size       int64  `json:"size"`
	QuoteCount int    `json:"quoteCount"`
}

// FillResult is the fill decision handed to downstream settlement.
type FillResult struct {
	RFQID   string `json:"rfqId"`
	Maker   string `json:"maker"`
	Premium int64  `json:"premium"`
}

// MakerInfo is the directory view of an allowlisted maker.
type MakerInfo struct {
	Pubkey    string `json:"pubkey"`
	Connected bool   `json:"connected"`
}
