package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures RedisSink. Channel may contain {entity} and
// {tenant}.
type RedisConfig struct {
	Enabled  bool         `yaml:"enabled"`
	DSN      string       `yaml:"dsn"`
	Channel  string       `yaml:"channel"`
	Entities EntityFilter `yaml:"entities"`
}

// RedisSink publishes events over Redis Pub/Sub.
type RedisSink struct {
	Client  *redis.Client
	Channel string
	Only    EntityFilter
}

// NewRedisSink creates a RedisSink from config, or nil when disabled.
func NewRedisSink(c RedisConfig) (*RedisSink, error) {
	if !c.Enabled || c.DSN == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(c.DSN)
	if err != nil {
		return nil, err
	}
	ch := c.Channel
	if ch == "" {
		ch = "admin:events"
	}
	return &RedisSink{Client: redis.NewClient(opt), Channel: ch, Only: c.Entities}, nil
}

func (s *RedisSink) channel(e Event) string {
	return strings.NewReplacer("{entity}", e.Data.Entity, "{tenant}", e.Data.Tenant).Replace(s.Channel)
}

func (s *RedisSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Client == nil || !s.Only.Match(e.Data.Entity) {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.channel(e), data).Err()
}

// Close releases the client.
func (s *RedisSink) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}
