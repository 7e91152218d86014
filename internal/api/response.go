package api

import "github.com/Checker-Finance/rfq-router/pkg/model"

// CreateRFQResponse confirms a newly opened auction.
type CreateRFQResponse struct {
	Success bool             `json:"success"`
	RFQID   string           `json:"rfqId"`
	Request model.RFQRequest `json:"request"`
}

// BestQuoteView is the winning-quote summary inside an RFQ view.
type BestQuoteView struct {
	Premium int64  `json:"premium"`
	Maker   string `json:"maker"`
}

// RFQView is the queryable state of one auction: the request terms plus
// lifecycle status and quote statistics.
type RFQView struct {
	model.RFQRequest
	Status     model.Status   `json:"status"`
	QuoteCount int            `json:"quoteCount"`
	BestQuote  *BestQuoteView `json:"bestQuote"`
}

// GetRFQResponse wraps a single RFQ view.
type GetRFQResponse struct {
	Success bool    `json:"success"`
	RFQ     RFQView `json:"rfq"`
}

// ListRFQsResponse wraps the open-auction listing.
type ListRFQsResponse struct {
	Success bool               `json:"success"`
	RFQs    []model.RFQSummary `json:"rfqs"`
}

// FillRFQResponse confirms a fill decision.
type FillRFQResponse struct {
	Success bool             `json:"success"`
	Filled  model.FillResult `json:"filled"`
}

// MakerAddResponse confirms an allowlist addition.
type MakerAddResponse struct {
	Success bool   `json:"success"`
	Pubkey  string `json:"pubkey"`
}

// ListMakersResponse wraps the maker directory listing.
type ListMakersResponse struct {
	Success bool              `json:"success"`
	Makers  []model.MakerInfo `json:"makers"`
}

// ErrorResponse reports a rejection with its reason.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorResponse(reason string) ErrorResponse {
	return ErrorResponse{Success: false, Error: reason}
}
