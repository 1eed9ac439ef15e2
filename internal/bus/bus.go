// Package bus publishes and subscribes to Field 15 parse events over NATS,
// decoupling the parsing service from whatever downstream consumers (the
// storage writer, review tooling, alerting) want to react to a parse.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used on the bus.
const (
	SubjectRaw    = "field15.raw"    // Unparsed Field 15 strings awaiting processing.
	SubjectParsed = "field15.parsed" // Successfully produced ERS, published after ParseF15.
	SubjectErrors = "field15.errors" // Parses that produced at least one diagnostic.
)

// RawMessage is published to SubjectRaw by producers feeding the parser
// (a flight-plan ingest feed, a batch replay tool, etc).
type RawMessage struct {
	ADEP      string    `json:"adep,omitempty"`
	ADES      string    `json:"ades,omitempty"`
	Field15   string    `json:"field15"`
	Timestamp time.Time `json:"timestamp"`
}

// ParsedMessage is published to SubjectParsed (and, when ErrorCount > 0,
// also to SubjectErrors) after a route description has been parsed.
type ParsedMessage struct {
	EventID      uint64    `json:"event_id"`
	ADEP         string    `json:"adep,omitempty"`
	ADES         string    `json:"ades,omitempty"`
	Field15      string    `json:"field15"`
	Rules        string    `json:"rules"`
	ElementCount int       `json:"element_count"`
	ErrorCount   int       `json:"error_count"`
	FirstError   string    `json:"first_error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Bus wraps a NATS connection for publishing and subscribing to the
// subjects above.
type Bus struct {
	nc *nats.Conn
}

// Config holds connection settings for the bus.
type Config struct {
	URL  string
	Name string
}

// Connect dials the NATS server.
func Connect(cfg Config) (*Bus, error) {
	opts := []nats.Option{nats.Name(cfg.Name)}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{nc: nc}, nil
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	_ = b.nc.Drain()
}

// PublishRaw publishes a raw Field 15 string for asynchronous parsing.
func (b *Bus) PublishRaw(msg RawMessage) error {
	return b.publish(SubjectRaw, msg)
}

// PublishParsed publishes a completed parse result. If the result carries
// at least one diagnostic, it is also republished on SubjectErrors so
// error-only subscribers don't have to filter the full parsed stream.
func (b *Bus) PublishParsed(msg ParsedMessage) error {
	if err := b.publish(SubjectParsed, msg); err != nil {
		return err
	}
	if msg.ErrorCount > 0 {
		return b.publish(SubjectErrors, msg)
	}
	return nil
}

func (b *Bus) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return b.nc.Publish(subject, data)
}

// SubscribeRaw registers a handler for raw Field 15 strings awaiting
// parsing. The returned subscription must be unsubscribed by the caller.
func (b *Bus) SubscribeRaw(handler func(RawMessage)) (*nats.Subscription, error) {
	return b.nc.Subscribe(SubjectRaw, func(m *nats.Msg) {
		var msg RawMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		handler(msg)
	})
}

// SubscribeParsed registers a handler for every completed parse.
func (b *Bus) SubscribeParsed(handler func(ParsedMessage)) (*nats.Subscription, error) {
	return b.nc.Subscribe(SubjectParsed, func(m *nats.Msg) {
		var msg ParsedMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		handler(msg)
	})
}

// SubscribeErrors registers a handler for parses that produced at least
// one diagnostic.
func (b *Bus) SubscribeErrors(handler func(ParsedMessage)) (*nats.Subscription, error) {
	return b.nc.Subscribe(SubjectErrors, func(m *nats.Msg) {
		var msg ParsedMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		handler(msg)
	})
}
