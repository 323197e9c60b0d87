package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Consumer owns the command queue. It keeps a single connection to the
// broker, re-dialing with backoff whenever the connection drops, and fans
// deliveries out to a bounded pool of workers.
type Consumer struct {
	url         string
	queue       string
	prefetch    int
	concurrency int
	dispatcher  *Dispatcher
	logger      *logrus.Logger
}

func NewConsumer(url, queue string, prefetch, concurrency int, d *Dispatcher, logger *logrus.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		url:         url,
		queue:       queue,
		prefetch:    prefetch,
		concurrency: concurrency,
		dispatcher:  d,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, consuming and answering commands.
func (c *Consumer) Run(ctx context.Context) error {
	delay := reconnectBaseDelay
	for {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).Warnf("consumer disconnected, retrying in %s", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// consumeOnce runs one connection's lifetime: dial, declare, consume until
// the channel closes or ctx is cancelled.
func (c *Consumer) consumeOnce(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	// Replies go out on a dedicated channel so publishes never race the
	// consumer channel.
	pubCh, err := conn.Channel()
	if err != nil {
		return err
	}
	defer pubCh.Close()
	producer := NewReplyProducer(pubCh, c.logger)

	c.logger.WithField("queue", c.queue).Info("consuming commands")

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(msg amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handle(ctx, producer, msg)
			}(msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, producer *ReplyProducer, msg amqp.Delivery) {
	defer func() {
		if err := msg.Ack(false); err != nil {
			c.logger.WithError(err).Error("ack failed")
		}
	}()

	if msg.ReplyTo == "" {
		c.logger.WithField("correlation_id", msg.CorrelationId).Warn("command without reply-to, dropping")
		return
	}

	var env CommandEnvelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		c.logger.WithError(err).WithField("correlation_id", msg.CorrelationId).Warn("malformed command envelope")
		if perr := producer.Publish(ctx, UnknownOperationReply, msg.CorrelationId, msg.ReplyTo); perr != nil {
			c.logger.WithError(perr).Error("reply publish failed")
		}
		return
	}

	c.dispatcher.Dispatch(ctx, producer, env.Operation, env.Data, msg.CorrelationId, msg.ReplyTo)
}
