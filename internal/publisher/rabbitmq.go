package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"livingstories/internal/domain"
)

// Message type discriminators; all messages share one exchange and routing
// key, consumers dispatch on the envelope type.
const (
	TypeItemChange  = "item_change"
	TypeStoryUpdate = "story_update"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// ItemMessage announces a content item save or delete.
type ItemMessage struct {
	Type      string              `json:"type"`
	Action    string              `json:"action"` // "create", "update" or "delete"
	Item      *domain.ContentItem `json:"item"`
	Timestamp time.Time           `json:"timestamp"`
}

// StoryUpdateMessage announces that a published story gained new events.
type StoryUpdateMessage struct {
	Type      string    `json:"type"`
	StoryID   int64     `json:"story_id"`
	NewEvents int       `json:"new_events"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *RabbitMQ) PublishItemChange(ctx context.Context, item *domain.ContentItem, action string) error {
	msg := ItemMessage{
		Type:      TypeItemChange,
		Action:    action,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, msg); err != nil {
		return err
	}
	r.logger.Debug("published item change",
		"item_id", item.ID,
		"action", action,
	)
	return nil
}

func (r *RabbitMQ) PublishStoryUpdate(ctx context.Context, storyID int64, newEvents int) error {
	msg := StoryUpdateMessage{
		Type:      TypeStoryUpdate,
		StoryID:   storyID,
		NewEvents: newEvents,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, msg); err != nil {
		return err
	}
	r.logger.Debug("published story update",
		"story_id", storyID,
		"new_events", newEvents,
	)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
