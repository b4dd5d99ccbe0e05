package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

const exchangeKind = "topic"

// RoutingKey is transaction.<kind>.<status>, lower-cased.
func RoutingKey(event domain.TransactionEvent) string {
	return "transaction." + strings.ToLower(string(event.Kind)) + "." + strings.ToLower(string(event.Status))
}

// RabbitPublisher publishes transaction events to a durable topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

var _ service_interfaces.EventPublisher = (*RabbitPublisher)(nil)

func NewRabbitPublisher(rawURL string, exchange string) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &RabbitPublisher{conn: conn, exchange: exchange}
	if err := p.reopen(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("notification publisher connected", logger.Fields{"exchange": exchange})
	return p, nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse rabbitmq url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("rabbitmq url must use amqp:// or amqps://")
	}
	return clean, nil
}

// reopen replaces the channel and redeclares the exchange. Callers hold mu
// or own p exclusively.
func (p *RabbitPublisher) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	p.channel = ch
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.TransactionID, err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.TransactionID + ":" + string(event.Status),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}
	key := RoutingKey(event)

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err == nil {
		return nil
	}

	// A closed channel is reopened once before giving up.
	logger.Warn("notification publish failed, reopening channel", logger.Fields{
		"exchange":   p.exchange,
		"routingKey": key,
		"error":      err.Error(),
	})
	if reopenErr := p.reopen(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// LogPublisher stands in when no broker is configured or reachable.
type LogPublisher struct{}

var _ service_interfaces.EventPublisher = LogPublisher{}

func (LogPublisher) Publish(_ context.Context, event domain.TransactionEvent) error {
	logger.Info("notification publish skipped", logger.Fields{
		"mode":          "fallback",
		"routingKey":    RoutingKey(event),
		"transactionId": event.TransactionID,
		"status":        string(event.Status),
	})
	return nil
}
