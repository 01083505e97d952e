package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Preflight/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// MessageTypeValidationRequested — запрошена проверка review request.
const MessageTypeValidationRequested MessageType = "validation.requested"

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ValidationRequestedPayload — payload validation.requested.
type ValidationRequestedPayload struct {
	RunID  uuid.UUID `json:"run_id"`
	Owner  string    `json:"owner"`
	Repo   string    `json:"repo"`
	Number int       `json:"number"`
}

// ReviewRequest возвращает проверяемое изменение.
func (p ValidationRequestedPayload) ReviewRequest() domain.ReviewRequest {
	return domain.ReviewRequest{Owner: p.Owner, Repo: p.Repo, Number: p.Number}
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// NewMessage собирает конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishValidationRequested публикует запрос на проверку run.
// Потребитель: Orchestrator.
func (p *Publisher) PublishValidationRequested(ctx context.Context, run *domain.Run) error {
	msg, err := NewMessage(MessageTypeValidationRequested, ValidationRequestedPayload{
		RunID:  run.ID,
		Owner:  run.ReviewRequest.Owner,
		Repo:   run.ReviewRequest.Repo,
		Number: run.ReviewRequest.Number,
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeValidations, RoutingKeyRequested, msg)
}
