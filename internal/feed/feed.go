// Package feed carries committed snapshots between server instances over
// NATS so every instance can push them to its own subscribers.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"party-rounds/internal/store"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const DefaultPrefix = "rounds.games"

type Config struct {
	URL           string
	Prefix        string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Prefix:        DefaultPrefix,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

func Connect(cfg Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("party-rounds"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subject is where snapshots of one game are published.
func Subject(prefix, code string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "." + code
}

func codeFromSubject(prefix, subject string) (string, bool) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	code, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || code == "" || strings.Contains(code, ".") {
		return "", false
	}
	return code, true
}

type Envelope struct {
	Origin   string         `json:"origin"`
	SentAt   time.Time      `json:"sent_at"`
	Snapshot store.Snapshot `json:"snapshot"`
}

// NewOrigin identifies this process in envelopes so it can skip its own.
func NewOrigin() string {
	return uuid.NewString()
}

type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher is a store.Notifier that forwards snapshots to NATS.
type Publisher struct {
	conn   Conn
	prefix string
	origin string
}

func NewPublisher(conn Conn, prefix, origin string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix, origin: origin}
}

func (p *Publisher) Notify(ctx context.Context, snap store.Snapshot) error {
	if snap.Game == nil {
		return nil
	}
	data, err := json.Marshal(Envelope{Origin: p.origin, SentAt: time.Now().UTC(), Snapshot: snap})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, snap.Game.GameCode), data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Sink receives snapshots from other instances. store.Hub.Publish fits.
type Sink func(code string, snap store.Snapshot) bool

type Relay struct {
	prefix string
	origin string
	sink   Sink
}

func NewRelay(prefix, origin string, sink Sink) *Relay {
	return &Relay{prefix: prefix, origin: origin, sink: sink}
}

// Start subscribes to every game subject until the returned subscription
// is drained.
func (r *Relay) Start(nc *nats.Conn) (*nats.Subscription, error) {
	prefix := r.prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	sub, err := nc.Subscribe(prefix+".*", func(msg *nats.Msg) {
		r.handle(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s.*: %w", prefix, err)
	}
	log.Info().Str("subject", prefix+".*").Msg("change feed relay started")
	return sub, nil
}

func (r *Relay) handle(subject string, data []byte) bool {
	code, ok := codeFromSubject(r.prefix, subject)
	if !ok {
		log.Warn().Str("subject", subject).Msg("unexpected feed subject")
		return false
	}
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("undecodable feed message")
		return false
	}
	if envelope.Origin == r.origin || envelope.Snapshot.Game == nil {
		return false
	}
	if envelope.Snapshot.Game.GameCode != code {
		log.Warn().Str("subject", subject).Str("game_code", envelope.Snapshot.Game.GameCode).Msg("feed subject mismatch")
		return false
	}
	return r.sink(code, envelope.Snapshot)
}
