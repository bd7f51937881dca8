package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// NATSPublisher publishes engine events as JSON messages. Downstream
// consumers (API cache invalidation, push feeds) subscribe to the park.*
// subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

func Connect(url string) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}

	conn, err := nats.Connect(url, nats.Name("park-fan-reconciler"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "marshal event payload")
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return errs.Wrapf(err, "publish %s", subject)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher stands in when no NATS URL is configured; the engine runs
// without event emission.
type NoopPublisher struct{}

var _ ports.EventPublisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
