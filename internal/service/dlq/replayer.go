// Package dlq возвращает события checkout из dead letter queue в основной topic.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
)

const (
	DefaultLimit       = 100
	DefaultIdleTimeout = 2 * time.Second
)

// ErrNotReplayable означает, что сообщение DLQ не содержит исходного события.
var ErrNotReplayable = errors.New("dlq message is not replayable")

// Config описывает один проход по DLQ.
type Config struct {
	SourceTopic string
	Limit       int
	// При Execute=false кандидаты только логируются (dry-run).
	Execute     bool
	FromNewest  bool
	IdleTimeout time.Duration
}

// OffsetClient отдаёт партиции и границы offset'ов topic'а.
type OffsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
}

// PartitionConsumer читает одну партицию.
type PartitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

// ConsumerSource открывает партиции на чтение.
type ConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error)
}

// Stats содержит итог прохода.
type Stats struct {
	Processed int
	Replayed  int
	Skipped   int
}

// Replayer читает DLQ и публикует исходные события через publisher.
type Replayer struct {
	client    OffsetClient
	consumer  ConsumerSource
	publisher domain.OutboxPublisher
	cfg       Config
	logger    *log.Entry
}

// NewReplayer создаёт Replayer. В режиме Execute publisher обязателен.
func NewReplayer(client OffsetClient, consumer ConsumerSource, publisher domain.OutboxPublisher, cfg Config) (*Replayer, error) {
	if client == nil || consumer == nil {
		return nil, errors.New("kafka client and consumer are required")
	}
	if cfg.Execute && publisher == nil {
		return nil, errors.New("publisher is required in execute mode")
	}
	if strings.TrimSpace(cfg.SourceTopic) == "" {
		cfg.SourceTopic = kafka.TopicDeadLetterQueue
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Replayer{
		client:    client,
		consumer:  consumer,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithField("component", "dlq-replay"),
	}, nil
}

// Run проходит партиции по порядку, пока не обработает Limit сообщений.
func (r *Replayer) Run(ctx context.Context) (Stats, error) {
	var total Stats

	partitions, err := r.client.Partitions(r.cfg.SourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", r.cfg.SourceTopic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.cfg.SourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.Processed >= r.cfg.Limit {
			break
		}
		stats, err := r.processPartition(ctx, partition, r.cfg.Limit-total.Processed)
		total.Processed += stats.Processed
		total.Replayed += stats.Replayed
		total.Skipped += stats.Skipped
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if r.cfg.Execute {
		mode = "execute"
	}
	r.logger.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.Processed,
		"replayed":  total.Replayed,
		"skipped":   total.Skipped,
	}).Info("dlq replay finished")
	return total, nil
}

func (r *Replayer) processPartition(ctx context.Context, partition int32, limit int) (Stats, error) {
	var stats Stats

	oldest, err := r.client.GetOffset(r.cfg.SourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.cfg.SourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.cfg.FromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.consumer.ConsumePartition(r.cfg.SourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.IdleTimeout)
	defer idle.Stop()

	for stats.Processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case cerr := <-pc.Errors():
			if cerr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(r.cfg.IdleTimeout)

			stats.Processed++
			event, err := ExtractEvent(msg)
			if err != nil {
				stats.Skipped++
				r.logger.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip unsupported dlq message")
				continue
			}

			if r.cfg.Execute {
				if err := r.publisher.Publish(event); err != nil {
					return stats, fmt.Errorf("publish replay message: %w", err)
				}
			} else {
				r.logger.WithFields(log.Fields{
					"partition":  msg.Partition,
					"offset":     msg.Offset,
					"event_id":   event.ID,
					"event_type": event.EventType,
					"request_id": event.AggregateID,
				}).Info("dlq replay candidate")
			}
			stats.Replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

// ExtractEvent восстанавливает исходное outbox-событие из сообщения DLQ.
func ExtractEvent(msg *sarama.ConsumerMessage) (domain.OutboxMessage, error) {
	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("%w: decode envelope: %w", ErrNotReplayable, err)
	}
	if len(envelope.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("%w: empty envelope payload", ErrNotReplayable)
	}

	var payload outbox.DLQPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("%w: decode dlq payload: %w", ErrNotReplayable, err)
	}
	if len(payload.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("%w: original event payload is missing", ErrNotReplayable)
	}

	return domain.OutboxMessage{
		ID:            firstNonEmpty(payload.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(payload.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(payload.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(payload.EventType, envelope.EventType),
		Payload:       []byte(payload.Payload),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

type saramaConsumer struct {
	consumer sarama.Consumer
}

func (a saramaConsumer) ConsumePartition(topic string, partition int32, offset int64) (PartitionConsumer, error) {
	return a.consumer.ConsumePartition(topic, partition, offset)
}

// Source держит подключение к Kafka для чтения DLQ.
type Source struct {
	Client   sarama.Client
	Consumer ConsumerSource
	closeFn  func() error
}

// Close закрывает consumer и client.
func (s *Source) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// OpenSource подключается к брокерам и создаёт consumer для DLQ.
func OpenSource(brokers []string) (*Source, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	return &Source{
		Client:   client,
		Consumer: saramaConsumer{consumer: consumer},
		closeFn: func() error {
			return errors.Join(consumer.Close(), client.Close())
		},
	}, nil
}
