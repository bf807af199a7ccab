package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"main/internal/config"
	pricing "main/internal/domain/entity/pricing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher fans derived pipeline artifacts out to RabbitMQ fanout
// exchanges for downstream consumers. Publishing is best effort: callers
// log failures and move on.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.RabbitMQConfig
	logger  *logrus.Logger
	mu      sync.Mutex
}

// NewPublisher connects to the broker and declares the fanout exchanges.
func NewPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create channel: %w", err)
	}

	declared := map[string]struct{}{}
	for _, name := range []string{cfg.CyclesExchange, cfg.VWAPExchange} {
		if name == "" {
			ch.Close()
			conn.Close()
			return nil, errors.New("exchange name cannot be empty")
		}
		if _, ok := declared[name]; ok {
			continue
		}
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", name, err)
		}
		declared[name] = struct{}{}
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Errorf("close rabbitmq channel: %v", err)
	}
	if err := p.conn.Close(); err != nil {
		p.logger.Errorf("close rabbitmq connection: %v", err)
	}
}

func (p *Publisher) PublishCycleRun(ctx context.Context, run *pricing.CycleRun) error {
	if run == nil {
		return errors.New("cycle run is nil")
	}
	return p.publish(ctx, p.cfg.CyclesExchange, run)
}

func (p *Publisher) PublishVWAP(ctx context.Context, record *pricing.VWAPRecord) error {
	if record == nil {
		return errors.New("vwap record is nil")
	}
	return p.publish(ctx, p.cfg.VWAPExchange, record)
}

func (p *Publisher) publish(ctx context.Context, exchange string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
