// Package notify hands finished run reports to the downstream notification
// layer. The report is the sole contract; formatting and chat delivery
// happen elsewhere.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"

	"policywatch/types"
)

// Publisher delivers a run report.
type Publisher interface {
	PublishReport(report *types.RunReport) error
}

// KafkaPublisher emits run reports as JSON messages on a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

// FromEnv builds a publisher from KAFKA_BROKERS (comma-separated) and
// KAFKA_REPORT_TOPIC. Returns nil when publishing is not configured.
func FromEnv() (*KafkaPublisher, error) {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		return nil, nil
	}
	topic := strings.TrimSpace(os.Getenv("KAFKA_REPORT_TOPIC"))
	if topic == "" {
		topic = "policywatch.reports"
	}
	return NewKafkaPublisher(strings.Split(brokers, ","), topic)
}

// PublishReport sends the report as a single JSON message.
func (p *KafkaPublisher) PublishReport(report *types.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("publishing report to %s: %w", p.topic, err)
	}
	return nil
}

// Close releases the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
