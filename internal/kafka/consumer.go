package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer reads topic as part of groupID. Give every replica its own
// group to have each one see every message.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: log}
}

// ConsumePayments decodes payment events and passes them to handler until ctx is done.
func (c *Consumer) ConsumePayments(ctx context.Context, handler func(models.PaymentEvent)) error {
	c.logger.Info("KAFKA", fmt.Sprintf("Consumer started on %s", c.reader.Config().Topic))
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		var evt models.PaymentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("CONSUME", msg.Topic, evt.SessionID)
		handler(evt)
	}
}
