package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// RFQRegistry defines the auction operations used by the handler.
type RFQRegistry interface {
	Create(req model.RFQRequest) model.RFQRequest
	Get(id string) (model.RFQState, error)
	ListOpen() []model.RFQSummary
	Fill(id string) (model.FillResult, error)
	Cancel(id string) error
}

// MakerDirectory defines the allowlist operations used by the handler.
type MakerDirectory interface {
	Allow(pubkey string)
	List() []model.MakerInfo
}

// RFQHandler handles HTTP API requests for the RFQ router.
type RFQHandler struct {
	logger        *zap.Logger
	registry      RFQRegistry
	makers        MakerDirectory
	defaultWindow time.Duration
}

// NewRFQHandler creates a new RFQHandler. defaultWindow is applied when a
// create request omits validUntilTs.
func NewRFQHandler(logger *zap.Logger, registry RFQRegistry, makers MakerDirectory, defaultWindow time.Duration) *RFQHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RFQHandler{
		logger:        logger,
		registry:      registry,
		makers:        makers,
		defaultWindow: defaultWindow,
	}
}

// CreateRFQ opens a new auction and broadcasts it to connected makers.
func (h *RFQHandler) CreateRFQ(c *fiber.Ctx) error {
	var req RFQCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse(err.Error()))
	}

	settlement := model.Settlement(req.Settlement)
	if settlement == "" {
		settlement = model.SettlementCash
	}
	validUntil := req.ValidUntilTs
	if validUntil == 0 {
		validUntil = time.Now().Add(h.defaultWindow).Unix()
	}

	stored := h.registry.Create(model.RFQRequest{
		Underlying:   req.Underlying,
		OptionType:   model.OptionType(req.OptionType),
		ExpiryTs:     req.ExpiryTs,
		Strike:       req.Strike,
		Size:         req.Size,
		PremiumFloor: req.PremiumFloor,
		ValidUntilTs: validUntil,
		Settlement:   settlement,
		OraclePrice:  req.OraclePrice,
		OracleTs:     req.OracleTs,
	})

	return c.JSON(CreateRFQResponse{Success: true, RFQID: stored.ID, Request: stored})
}

// GetRFQ returns one auction's state, terminal or not.
func (h *RFQHandler) GetRFQ(c *fiber.Ctx) error {
	state, err := h.registry.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse("RFQ not found"))
	}

	view := RFQView{
		RFQRequest: state.Request,
		Status:     state.Status,
		QuoteCount: len(state.Quotes),
	}
	if state.BestQuote != nil {
		view.BestQuote = &BestQuoteView{
			Premium: state.BestQuote.Premium,
			Maker:   state.BestQuote.MakerPubkey,
		}
	}
	return c.JSON(GetRFQResponse{Success: true, RFQ: view})
}

// ListRFQs returns summaries of all OPEN auctions.
func (h *RFQHandler) ListRFQs(c *fiber.Ctx) error {
	return c.JSON(ListRFQsResponse{Success: true, RFQs: h.registry.ListOpen()})
}

// FillRFQ accepts the best outstanding quote for an auction.
func (h *RFQHandler) FillRFQ(c *fiber.Ctx) error {
	id := c.Params("id")

	fill, err := h.registry.Fill(id)
	if err != nil {
		h.logger.Warn("api.fill_rejected",
			zap.String("rfq_id", id),
			zap.Error(err))
		return c.Status(statusForError(err)).JSON(errorResponse(err.Error()))
	}

	return c.JSON(FillRFQResponse{Success: true, Filled: fill})
}

// CancelRFQ explicitly cancels an OPEN auction.
func (h *RFQHandler) CancelRFQ(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.registry.Cancel(id); err != nil {
		return c.Status(statusForError(err)).JSON(errorResponse(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "rfqId": id})
}

// AddMaker adds a maker identity to the allowlist. Idempotent.
func (h *RFQHandler) AddMaker(c *fiber.Ctx) error {
	var req MakerAddRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse(err.Error()))
	}

	h.makers.Allow(req.Pubkey)
	return c.JSON(MakerAddResponse{Success: true, Pubkey: req.Pubkey})
}

// ListMakers returns the allowlist with live-connection flags.
func (h *RFQHandler) ListMakers(c *fiber.Ctx) error {
	return c.JSON(ListMakersResponse{Success: true, Makers: h.makers.List()})
}

func statusForError(err error) int {
	if errors.Is(err, model.ErrNotFound) {
		return fiber.StatusNotFound
	}
	return fiber.StatusBadRequest
}
