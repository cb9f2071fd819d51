package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/IBM/sarama"
)

// KafkaConfig configures KafkaSink. Topic may contain {entity}.
type KafkaConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Brokers  []string     `yaml:"brokers"`
	Topic    string       `yaml:"topic"`
	Entities EntityFilter `yaml:"entities"`
}

// KafkaSink publishes events keyed by entity and record id, so the events
// of one record stay ordered within a partition.
type KafkaSink struct {
	Producer sarama.AsyncProducer
	Topic    string
	Only     EntityFilter
}

// NewKafkaSink creates a KafkaSink from config, or nil when disabled.
func NewKafkaSink(c KafkaConfig) (*KafkaSink, error) {
	if !c.Enabled || len(c.Brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	prod, err := sarama.NewAsyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, err
	}
	topic := c.Topic
	if topic == "" {
		topic = "admin.events"
	}
	return &KafkaSink{Producer: prod, Topic: topic, Only: c.Entities}, nil
}

func (s *KafkaSink) message(e Event) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &sarama.ProducerMessage{
		Topic: strings.ReplaceAll(s.Topic, "{entity}", e.Data.Entity),
		Key:   sarama.StringEncoder(e.Data.Entity + "/" + e.Data.ID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(e.Name)},
			{Key: []byte("tenant"), Value: []byte(e.Data.Tenant)},
		},
	}, nil
}

func (s *KafkaSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Producer == nil || !s.Only.Match(e.Data.Entity) {
		return nil
	}
	msg, err := s.message(e)
	if err != nil {
		return err
	}
	select {
	case s.Producer.Input() <- msg:
		return nil
	case perr := <-s.Producer.Errors():
		return perr.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	if s == nil || s.Producer == nil {
		return nil
	}
	return s.Producer.Close()
}
