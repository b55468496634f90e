package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const queueSize = 256

// ErrQueueFull is returned when the background writer has fallen behind.
var ErrQueueFull = errors.New("kafka: publish queue full")

// KafkaPublisher hands messages to a single background writer so callers
// never wait on broker metadata lookups or acks.
type KafkaPublisher struct {
	writer *kafka.Writer
	queue  chan kafka.Message

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		queue: make(chan kafka.Message, queueSize),
		stop:  cancel,
		done:  make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

// New returns a Kafka publisher, or Nop when no brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic)
}

// PublishEvent enqueues the event and returns immediately.
func (p *KafkaPublisher) PublishEvent(ctx context.Context, key string, event map[string]any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	select {
	case p.queue <- kafka.Message{Key: []byte(key), Value: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			wctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := p.writer.WriteMessages(wctx, msg)
			cancel()
			if err != nil {
				slog.Default().Error("event_publish_error", "topic", p.writer.Topic, "key", string(msg.Key), "error", err)
			}
		}
	}
}

// Close stops the background writer. Events still queued are dropped.
func (p *KafkaPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.stop()
		<-p.done
		err = p.writer.Close()
	})
	return err
}
