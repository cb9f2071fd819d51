package events

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config provides dispatcher settings.
type Config struct {
	Sinks struct {
		Webhook WebhookConfig `yaml:"webhook"`
		Redis   RedisConfig   `yaml:"redis"`
		Kafka   KafkaConfig   `yaml:"kafka"`
	} `yaml:"sinks"`
	Retry RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// LoadConfig reads YAML from path. An empty path yields the zero config,
// which has no sinks.
func LoadConfig(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	return c, err
}

// BuildSinks builds every enabled sink of c. Sinks that fail to initialize are
// returned as errors alongside the ones that succeeded.
func (c Config) BuildSinks() ([]Sink, []error) {
	var (
		sinks []Sink
		errs  []error
	)
	if wh := NewWebhookSink(c.Sinks.Webhook); wh != nil {
		sinks = append(sinks, wh)
	}
	if rs, err := NewRedisSink(c.Sinks.Redis); err != nil {
		errs = append(errs, err)
	} else if rs != nil {
		sinks = append(sinks, rs)
	}
	if ks, err := NewKafkaSink(c.Sinks.Kafka); err != nil {
		errs = append(errs, err)
	} else if ks != nil {
		sinks = append(sinks, ks)
	}
	return sinks, errs
}
