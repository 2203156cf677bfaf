package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Producer streams curation lifecycle notifications. In mock mode messages
// are logged and dropped, which keeps local development broker-free.
type Producer struct {
	writer   *kafka.Writer
	mockMode bool
}

func NewProducer(brokers []string, mockMode bool) *Producer {
	if mockMode {
		return &Producer{mockMode: true}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer}
}

// Publish writes one message to the given topic.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	if p.mockMode {
		fmt.Printf("Kafka (mock) [%s] key=%s value=%s\n", topic, key, string(value))
		return nil
	}
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
