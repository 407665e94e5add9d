package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/maxpilipovic/INB-internal-project/pkg/logger"
)

const (
	// StreamName is the name of the help-desk events stream.
	StreamName = "HELPDESK"

	// SubjectPrefix is the prefix for all help-desk subjects.
	SubjectPrefix = "helpdesk"
)

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// JetStreamPublisher publishes events to a NATS JetStream stream.
type JetStreamPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect establishes the NATS connection and ensures the stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	p := &JetStreamPublisher{conn: nc, js: js}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the NATS connection.
func (p *JetStreamPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// IsConnected reports whether the NATS connection is up.
func (p *JetStreamPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Help-desk assistant turn and ticket events",
	})
	if err != nil {
		return fmt.Errorf("creating stream: %w", err)
	}
	return nil
}

// TurnLogged publishes a turn event.
func (p *JetStreamPublisher) TurnLogged(ctx context.Context, ev TurnEvent) error {
	subject := fmt.Sprintf("%s.%s.%s.turn", SubjectPrefix, ev.UserID, ev.SessionID)
	return p.publish(ctx, subject, ev)
}

// TicketSubmitted publishes a ticket-submission event.
func (p *JetStreamPublisher) TicketSubmitted(ctx context.Context, ev TicketEvent) error {
	subject := fmt.Sprintf("%s.%s.ticket", SubjectPrefix, ev.UserID)
	return p.publish(ctx, subject, ev)
}

func (p *JetStreamPublisher) publish(ctx context.Context, subject string, ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	return nil
}
