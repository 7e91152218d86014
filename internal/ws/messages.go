package ws

import "encoding/json"

// Wire message types. Every frame is an Envelope carrying a type
// discriminator and a JSON data payload.
const (
	TypeRegister   = "REGISTER"
	TypeRegistered = "REGISTERED"
	TypeNewRFQ     = "NEW_RFQ"
	TypeQuote      = "QUOTE"
	TypeQuoteAck   = "QUOTE_ACK"
	TypeRFQFilled  = "RFQ_FILLED"
	TypeError      = "ERROR"
)

// Envelope is the frame exchanged with makers in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal builds a serialized envelope around the given payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: data})
}

// RegisterPayload binds a connection to a maker identity.
type RegisterPayload struct {
	Pubkey string `json:"pubkey"`
}

// RegisteredPayload acknowledges a successful REGISTER.
type RegisteredPayload struct {
	Pubkey string `json:"pubkey"`
}

// QuotePayload is a maker's quote submission. The signature is carried
// opaque; the router does not verify it.
type QuotePayload struct {
	RFQID        string `json:"rfqId"`
	MakerPubkey  string `json:"makerPubkey"`
	Premium      int64  `json:"premium"`
	ValidUntilTs int64  `json:"validUntilTs"`
	Signature    string `json:"signature"`
}

// QuoteAckPayload acknowledges an accepted quote.
type QuoteAckPayload struct {
	RFQID string `json:"rfqId"`
}

// FilledPayload notifies the winning maker of a fill.
type FilledPayload struct {
	RFQID   string `json:"rfqId"`
	Premium int64  `json:"premium"`
}

// ErrorPayload reports a rejection reason back over the channel.
type ErrorPayload struct {
	Error string `json:"error"`
}
