package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/eduquest/user-service/pkg/response"
)

// ErrNilResult reports a handler result that cannot be published.
var ErrNilResult = errors.New("reply result is nil")

// ReplyPublisher publishes a handler result to the reply destination named
// in the originating envelope, tagged with its correlation id.
type ReplyPublisher interface {
	Publish(ctx context.Context, result any, correlationID, replyTo string) error
}

// ReplyProducer publishes replies on an AMQP channel. A result that cannot
// be serialized is not dropped: a failure envelope is published in its
// place and the serialization error is returned for logging.
type ReplyProducer struct {
	ch     *amqp.Channel
	logger *logrus.Logger
}

func NewReplyProducer(ch *amqp.Channel, logger *logrus.Logger) *ReplyProducer {
	return &ReplyProducer{ch: ch, logger: logger}
}

func (p *ReplyProducer) Publish(ctx context.Context, result any, correlationID, replyTo string) error {
	body, serr := marshalResult(result)
	if serr != nil {
		p.logger.WithError(serr).WithField("correlation_id", correlationID).Error("reply serialization failed")
		body, _ = json.Marshal(response.Failure(http.StatusInternalServerError, "reply serialization failed"))
	}
	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		replyTo, // routing key = reply queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Timestamp:     time.Now().UTC(),
			Body:          body,
		},
	); err != nil {
		return err
	}
	return serr
}

func marshalResult(result any) ([]byte, error) {
	if result == nil {
		return nil, ErrNilResult
	}
	return json.Marshal(result)
}
