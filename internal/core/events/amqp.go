package events

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
)

const accountQueue = "account_events"

// 账号事件，下游（通知、审计）自行消费
const (
	UserRegistered  = "user.registered"
	PasswordChanged = "user.password_changed"
)

// Publisher 账号事件发布器。nil 接收者安全：未配置 broker 时所有发布都是空操作。
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(accountQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", accountQueue, err)
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) Publish(event string, payload map[string]any) error {
	if p == nil || p.channel == nil {
		return nil
	}
	body, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.channel.Publish("", accountQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}
