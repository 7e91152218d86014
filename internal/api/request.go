package api

// RFQCreateRequest is the payload for opening a new auction. Monetary fields
// are integer fixed-point base units.
type RFQCreateRequest struct {
	Underlying   string `json:"underlying"`
	OptionType   string `json:"optionType"`
	ExpiryTs     int64  `json:"expiryTs"`
	Strike       int64  `json:"strike"`
	Size         int64  `json:"size"`
	PremiumFloor int64  `json:"premiumFloor"`
	ValidUntilTs int64  `json:"validUntilTs"`
	Settlement   string `json:"settlement"`
	OraclePrice  int64  `json:"oraclePrice"`
	OracleTs     int64  `json:"oracleTs"`
}

// MakerAddRequest is the payload for adding a maker to the allowlist.
type MakerAddRequest struct {
	Pubkey string `json:"pubkey"`
}
