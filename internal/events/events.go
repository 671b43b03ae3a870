// AngelaMos | 2026
// events.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
)

const (
	SubjectOrderCreated       = "order.created"
	SubjectOrderStatusUpdated = "order.status.updated"
	SubjectPaymentSucceeded   = "payment.succeeded"
	SubjectItemModerated      = "item.moderated"
	SubjectUserBanned         = "user.banned"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = 10
	reconnectWait = 2 * time.Second
)

// Publisher emits domain events after the owning transaction commits.
// Delivery is best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(cfg config.NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	return &NATSPublisher{conn: nc, logger: logger}, nil
}

func (p *NATSPublisher) Publish(
	_ context.Context,
	subject string,
	payload any,
) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}

// Ping reports whether the connection is currently usable, for readiness.
func (p *NATSPublisher) Ping(_ context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats status %s", p.conn.Status())
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// LogPublisher stands in when NATS is disabled so services never branch
// on whether a broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(
	ctx context.Context,
	subject string,
	payload any,
) error {
	p.logger.DebugContext(ctx, "event", "subject", subject, "payload", payload)
	return nil
}

func (p *LogPublisher) Close() {}

// Emit publishes and logs a failure instead of returning it. Events are
// sent after commit so a broker outage must not fail the request.
func Emit(
	ctx context.Context,
	pub Publisher,
	logger *slog.Logger,
	subject string,
	payload any,
) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			"subject", subject,
			"error", err,
		)
	}
}
