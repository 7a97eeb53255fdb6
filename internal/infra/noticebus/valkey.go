// Package noticebus broadcasts notices to other processes over Valkey
// pub/sub, one channel per session.
package noticebus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/harvesta/companion/internal/domain/notice"
)

const defaultPrefix = "harvesta:notices"

// ValkeyPublisher publishes every notice as JSON on <prefix>:<session>.
type ValkeyPublisher struct {
	prefix string
	send   func(ctx context.Context, channel, message string) error
	logger *slog.Logger
}

// NewValkeyPublisher constructs a publisher on an existing client.
func NewValkeyPublisher(client valkey.Client, prefix string, logger *slog.Logger) *ValkeyPublisher {
	return newPublisher(prefix, func(ctx context.Context, channel, message string) error {
		cmd := client.B().Publish().Channel(channel).Message(message).Build()
		return client.Do(ctx, cmd).Error()
	}, logger)
}

func newPublisher(prefix string, send func(ctx context.Context, channel, message string) error, logger *slog.Logger) *ValkeyPublisher {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValkeyPublisher{prefix: prefix, send: send, logger: logger.With("component", "noticebus.valkey")}
}

// Channel returns the channel notices of session are published on.
func (p *ValkeyPublisher) Channel(session string) string {
	return p.prefix + ":" + session
}

// Publish implements notice.Notifier.
func (p *ValkeyPublisher) Publish(ctx context.Context, n notice.Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	channel := p.Channel(n.Session)
	if err := p.send(ctx, channel, string(payload)); err != nil {
		p.logger.Warn("notice publish failed", "channel", channel, "error", err)
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

var _ notice.Notifier = (*ValkeyPublisher)(nil)

// NewValkeyClient dials addr, which may be a host:port or a redis:// URL.
func NewValkeyClient(addr, password string, db int) (valkey.Client, error) {
	opt, err := clientOptions(addr, password, db)
	if err != nil {
		return nil, err
	}
	return valkey.NewClient(opt)
}

func clientOptions(addr, password string, db int) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		opt, err := valkey.ParseURL(addr)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("parse valkey url: %w", err)
		}
		if password != "" {
			opt.Password = password
		}
		return opt, nil
	}
	return valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
		SelectDB:    db,
	}, nil
}
