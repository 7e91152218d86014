package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/internal/metrics"
	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// Publisher emits canonical RFQ lifecycle envelopes to NATS JetStream.
// The rfq.filled event is the feed the external settlement keeper consumes.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	prefix  string // e.g. "evt.rfq"
	service string
	logger  *zap.Logger
}

// New creates a Publisher with JetStream enabled.
func New(nc *nats.Conn, prefix, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		prefix:  prefix,
		service: service,
		logger:  logger,
	}, nil
}

// subject maps "rfq.created" onto "evt.rfq.created.v1".
func (p *Publisher) subject(eventType string) string {
	suffix := strings.TrimPrefix(eventType, "rfq.")
	return fmt.Sprintf("%s.%s.v1", p.prefix, suffix)
}

func (p *Publisher) publish(eventType, rfqID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		RFQID:         rfqID,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}

	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	subject := p.subject(eventType)
	msg := &nats.Msg{
		Subject: subject,
		Data:    body,
		Header: nats.Header{
			"event_type":     []string{eventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"rfq_id":         []string{rfqID},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		// Event egress is best-effort; the auction state already moved on.
		p.logger.Warn("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("rfq_id", rfqID),
			zap.Error(err))
		metrics.IncNATSPublish(subject, "error")
		return
	}
	metrics.IncNATSPublish(subject, "ok")
}

// statusPayload is the body for terminal transitions without a fill decision.
type statusPayload struct {
	RFQID  string       `json:"rfqId"`
	Status model.Status `json:"status"`
}

// RFQCreated publishes the full request so makers consuming the stream
// out-of-band see the auction terms.
func (p *Publisher) RFQCreated(req model.RFQRequest) {
	p.publish(model.EventRFQCreated, req.ID, req)
}

// RFQFilled publishes the fill decision for settlement.
func (p *Publisher) RFQFilled(fill model.FillResult) {
	p.publish(model.EventRFQFilled, fill.RFQID, fill)
}

// RFQExpired publishes the expiry transition.
func (p *Publisher) RFQExpired(id string) {
	p.publish(model.EventRFQExpired, id, statusPayload{RFQID: id, Status: model.StatusExpired})
}

// RFQCancelled publishes the cancel transition.
func (p *Publisher) RFQCancelled(id string) {
	p.publish(model.EventRFQCancelled, id, statusPayload{RFQID: id, Status: model.StatusCancelled})
}
