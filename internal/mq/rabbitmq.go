package mq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/globaltrotters/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// EventsExchange is the topic exchange every domain event is routed
	// through. The routing key is the event channel.
	EventsExchange = "globaltrotters.events"

	queuePrefix        = "globaltrotters."
	defaultContentType = "application/octet-stream"
)

// RabbitMQClient publishes events to a topic exchange and consumes them from
// one durable queue per channel bound to it.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	durable    bool
	autoDelete bool

	// publishMu serialises writes on the shared AMQP channel.
	publishMu sync.Mutex
	bound     sync.Map
}

// NewRabbitMQClient dials the broker and declares the events exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	fail := func(err error) (*RabbitMQClient, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fail(err)
		}
	}
	if err := ch.ExchangeDeclare(EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange: %w", err))
	}

	return &RabbitMQClient{
		conn:       conn,
		channel:    ch,
		durable:    cfg.QueueDurable,
		autoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish routes data to the queue bound for channel. The queue is declared
// on first use so events published before the worker starts are kept.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}
	if err := r.bindQueue(channel); err != nil {
		return "", err
	}

	contentType := defaultContentType
	headers := amqp.Table{}
	for key, value := range attrs {
		if strings.EqualFold(key, "content-type") {
			contentType = value
			continue
		}
		headers[key] = value
	}
	deliveryMode := amqp.Transient
	if r.durable {
		deliveryMode = amqp.Persistent
	}

	messageID := uuid.NewString()
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	err := r.channel.PublishWithContext(ctx, EventsExchange, channel, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: deliveryMode,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return messageID, nil
}

// Subscribe consumes the queue bound for channel until ctx is done. A message
// whose handler fails is requeued once; a second failure drops it.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.bindQueue(channel); err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("globaltrotters-%s-%s", channel, uuid.NewString())
	deliveries, err := r.channel.Consume(queueName(channel), consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				if delivery.Redelivered {
					log.Printf("mq: dropping %s message %s after retry: %v", channel, delivery.MessageId, err)
					_ = delivery.Nack(false, false)
					continue
				}
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) bindQueue(channel string) error {
	if _, done := r.bound.Load(channel); done {
		return nil
	}
	name := queueName(channel)
	if _, err := r.channel.QueueDeclare(name, r.durable, r.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := r.channel.QueueBind(name, channel, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	r.bound.Store(channel, struct{}{})
	return nil
}

func queueName(channel string) string {
	return queuePrefix + channel
}

func deliveryMessage(delivery amqp.Delivery) Message {
	attrs := headersToAttributes(delivery.Headers)
	if delivery.ContentType != "" {
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs["content-type"] = delivery.ContentType
	}
	return Message{
		ID:         delivery.MessageId,
		Data:       delivery.Body,
		Attributes: attrs,
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
