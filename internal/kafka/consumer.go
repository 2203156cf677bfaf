package kafka

import (
	"context"
	"encoding/json"
	"log"

	"ms-curation/internal/models"

	"github.com/segmentio/kafka-go"
)

// ScrapedSubmission is the wire form scraped events arrive in. The scraper id
// becomes the source identity recorded in the bronze tier.
type ScrapedSubmission struct {
	ScraperID string                    `json:"scraper_id"`
	Event     models.EventUpsertRequest `json:"event"`
}

type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a Kafka consumer for the scraped-submissions topic.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes scraped submissions until the context is cancelled. Each
// message goes through the same intake path as a user submission.
func (c *Consumer) Start(ctx context.Context, handler func(submission ScrapedSubmission)) {
	log.Println("Kafka consumer started for scraped submissions")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v\n", err)
			continue
		}

		var submission ScrapedSubmission
		if err := json.Unmarshal(msg.Value, &submission); err != nil {
			log.Printf("Failed to unmarshal scraped submission: %v\n", err)
			continue
		}

		handler(submission)
	}
}

// Close gracefully shuts down the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
