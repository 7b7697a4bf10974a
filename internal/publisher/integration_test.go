//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"livingstories/internal/domain"
	"livingstories/testdata/utils"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_ItemChange() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-item",
		RoutingKey: "test-routing-key-item",
		QueueName:  "test-queue-item",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	end := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	item := &domain.ContentItem{
		ID:         1,
		Kind:       domain.KindEvent,
		Importance: domain.ImportanceHigh,
		StoryID:    utils.Ptr(int64(10)),
		State:      domain.StatePublished,
		Content:    "full event text",
		Event: &domain.EventDetails{
			EndDate: &end,
			Update:  "ruling issued",
		},
	}

	err = pub.PublishItemChange(s.ctx, item, "create")
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)

	var received ItemMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(TypeItemChange, received.Type)
	s.Equal("create", received.Action)
	s.Require().NotNil(received.Item)
	s.Equal(int64(1), received.Item.ID)
	s.Equal(domain.KindEvent, received.Item.Kind)
	s.Require().NotNil(received.Item.Event)
	s.Equal("ruling issued", received.Item.Event.Update)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_StoryUpdate() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-story",
		RoutingKey: "test-routing-key-story",
		QueueName:  "test-queue-story",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.PublishStoryUpdate(s.ctx, 10, 3)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received StoryUpdateMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(TypeStoryUpdate, received.Type)
	s.Equal(int64(10), received.StoryID)
	s.Equal(3, received.NewEvents)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.PublishStoryUpdate(s.ctx, 10, 1)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
