// Package events publica o ciclo de vida das consultas no RabbitMQ para integrações externas
// (confirmação automática, BI). Sem AMQP_URL o servidor usa o Nop.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	AppointmentCreated       = "appointment.created"
	AppointmentBatchCreated  = "appointment.batch_created"
	AppointmentStatusChanged = "appointment.status_changed"
)

// Event é o envelope publicado; Data carrega o payload específico do tipo.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	Data       interface{} `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop descarta os eventos.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publica no exchange topic configurado usando o tipo do evento como routing key.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	log      *zap.Logger
}

func NewAMQP(url, exchange string, log *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange %s: %w", exchange, err)
	}
	log.Named("events").Info("rabbitmq conectado", zap.String("exchange", exchange))
	return &AMQP{conn: conn, ch: ch, exchange: exchange, log: log.Named("events")}, nil
}

func (p *AMQP) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Headers:      amqp.Table{"request_id": ev.RequestID},
	}
	// amqp.Channel não é seguro para publicações concorrentes.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, msg)
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Emit publica sem propagar erro: falha de mensageria nunca derruba a requisição, só vira log.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("falha ao publicar evento", zap.String("type", ev.Type), zap.String("request_id", ev.RequestID), zap.Error(err))
	}
}
