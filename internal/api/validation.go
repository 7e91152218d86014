package api

import (
	"fmt"

	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// Validate checks that RFQCreateRequest has all required fields.
func (r *RFQCreateRequest) Validate() error {
	if r.Underlying == "" {
		return fmt.Errorf("underlying is required")
	}
	switch model.OptionType(r.OptionType) {
	case model.OptionCall, model.OptionPut:
	default:
		return fmt.Errorf("optionType must be CALL or PUT")
	}
	if r.Strike <= 0 {
		return fmt.Errorf("strike must be positive")
	}
	if r.Size <= 0 {
		return fmt.Errorf("size must be positive")
	}
	if r.ExpiryTs <= 0 {
		return fmt.Errorf("expiryTs is required")
	}
	if r.PremiumFloor < 0 {
		return fmt.Errorf("premiumFloor must not be negative")
	}
	switch model.Settlement(r.Settlement) {
	case model.SettlementCash, model.SettlementPhysical:
	case "":
		// defaults to CASH
	default:
		return fmt.Errorf("settlement must be CASH or PHYSICAL")
	}
	if r.OraclePrice < 0 {
		return fmt.Errorf("oraclePrice must not be negative")
	}
	return nil
}

// Validate checks that MakerAddRequest has all required fields.
func (r *MakerAddRequest) Validate() error {
	if r.Pubkey == "" {
		return fmt.Errorf("pubkey is required")
	}
	return nil
}
