package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

type Config struct {
	Broker string
	Topic  string
}

// AlarmMessage is the hand-off record read by the external notification service.
type AlarmMessage struct {
	RequestID  string    `json:"request_id"`
	AlertID    int64     `json:"alert_id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Channel    string    `json:"channel"`
	Value      string    `json:"value"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	RaisedAt   time.Time `json:"raised_at"`
	SentAt     time.Time `json:"sent_at"`
}

// Producer publishes escalated alarms, keyed by device id.
type Producer struct {
	writer *kafka.Writer
	logger *logging.Logger
}

func NewProducer(cfg Config, logger *logging.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Broker),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
		logger: logger,
	}
}

// Send matches the notification provider signature.
func (p *Producer) Send(ctx context.Context, notif models.Notification) error {
	key, value, err := Encode(notif, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to write alarm to kafka topic %s: %w", p.writer.Topic, err)
	}
	p.logger.Infof("Alarm %s published to kafka topic %s", notif.ID, p.writer.Topic)
	return nil
}

func (p *Producer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Errorf("Kafka writer close failed: %v", err)
	}
}

// Encode builds the message key and JSON value for notif.
func Encode(notif models.Notification, sentAt time.Time) ([]byte, []byte, error) {
	a := notif.Alert
	value, err := json.Marshal(AlarmMessage{
		RequestID:  notif.ID.String(),
		AlertID:    a.ID,
		DeviceID:   a.DeviceID,
		DeviceName: a.DeviceName,
		Channel:    a.Channel,
		Value:      a.Value,
		Subject:    notif.Subject,
		Message:    notif.Body,
		RaisedAt:   a.CreatedAt,
		SentAt:     sentAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal alarm message: %w", err)
	}
	return []byte(a.DeviceID), value, nil
}
