package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
)

func dlqMessage(t *testing.T, id string, offset int64) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(outbox.DLQPayload{
		OutboxID:      id,
		AggregateType: kafka.AggregateCheckout,
		AggregateID:   "req-" + id,
		EventType:     string(kafka.EventTypeCheckoutForwarded),
		Payload:       json.RawMessage(`{"item_count":1,"amount_minor":2990}`),
		PublishError:  "broker down",
	})
	require.NoError(t, err)

	value, err := json.Marshal(kafka.Envelope{
		ID:            id,
		AggregateType: kafka.AggregateCheckout,
		AggregateID:   "req-" + id,
		EventType:     string(kafka.EventTypeCheckoutForwarded),
		Payload:       payload,
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: kafka.TopicDeadLetterQueue, Offset: offset, Value: value}
}

func TestExtractEvent(t *testing.T) {
	event, err := ExtractEvent(dlqMessage(t, "evt-1", 0))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, "req-evt-1", event.AggregateID)
	assert.Equal(t, string(kafka.EventTypeCheckoutForwarded), event.EventType)
	assert.JSONEq(t, `{"item_count":1,"amount_minor":2990}`, string(event.Payload))
}

func TestExtractEvent_NotReplayable(t *testing.T) {
	tests := map[string]string{
		"not json":         `<html>`,
		"empty payload":    `{"id":"x"}`,
		"missing original": `{"id":"x","payload":{"outbox_id":"x","publish_error":"timeout"}}`,
		"payload not obj":  `{"id":"x","payload":"text"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractEvent(&sarama.ConsumerMessage{Value: []byte(raw)})
			assert.ErrorIs(t, err, ErrNotReplayable)
		})
	}
}

func TestReplayer_ExecuteRepublishes(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{1, 0}, oldest: 0, newest: 3}
	consumer := newFakeConsumer(map[int32][]*sarama.ConsumerMessage{
		0: {dlqMessage(t, "a", 0), {Offset: 1, Value: []byte(`{"foo":"bar"}`)}, dlqMessage(t, "b", 2)},
		1: {dlqMessage(t, "c", 0)},
	})
	publisher := &recordingPublisher{}

	replayer, err := NewReplayer(client, consumer, publisher, Config{Execute: true, IdleTimeout: time.Second})
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 4, Replayed: 3, Skipped: 1}, stats)
	assert.Equal(t, []string{"a", "b", "c"}, publisher.ids())
	assert.Equal(t, []int32{0, 1}, consumer.opened, "partitions are read in order")
}

func TestReplayer_DryRunDoesNotPublish(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{0}, oldest: 0, newest: 2}
	consumer := newFakeConsumer(map[int32][]*sarama.ConsumerMessage{
		0: {dlqMessage(t, "a", 0), dlqMessage(t, "b", 1)},
	})

	replayer, err := NewReplayer(client, consumer, nil, Config{IdleTimeout: time.Second})
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Replayed)
}

func TestReplayer_LimitAndFromNewest(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{0}, oldest: 0, newest: 10}
	consumer := newFakeConsumer(map[int32][]*sarama.ConsumerMessage{
		0: {dlqMessage(t, "x", 8), dlqMessage(t, "y", 9)},
	})
	publisher := &recordingPublisher{}

	replayer, err := NewReplayer(client, consumer, publisher, Config{Execute: true, Limit: 2, FromNewest: true, IdleTimeout: time.Second})
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, int64(8), consumer.startOffsets[0])
}

func TestReplayer_PublishError(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{0}, oldest: 0, newest: 1}
	consumer := newFakeConsumer(map[int32][]*sarama.ConsumerMessage{0: {dlqMessage(t, "a", 0)}})
	publisher := &recordingPublisher{err: errors.New("broker down")}

	replayer, err := NewReplayer(client, consumer, publisher, Config{Execute: true, IdleTimeout: time.Second})
	require.NoError(t, err)

	_, err = replayer.Run(context.Background())
	assert.ErrorContains(t, err, "broker down")
}

func TestReplayer_IdleTimeoutStopsPartition(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{0}, oldest: 0, newest: 5}
	consumer := newFakeConsumer(map[int32][]*sarama.ConsumerMessage{0: {dlqMessage(t, "a", 0)}})
	consumer.keepOpen = true

	replayer, err := NewReplayer(client, consumer, nil, Config{IdleTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
}

func TestReplayer_EmptyTopicAndErrors(t *testing.T) {
	replayer, err := NewReplayer(&fakeOffsetClient{}, newFakeConsumer(nil), nil, Config{})
	require.NoError(t, err)
	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats)

	replayer, err = NewReplayer(&fakeOffsetClient{partitionsErr: errors.New("no metadata")}, newFakeConsumer(nil), nil, Config{})
	require.NoError(t, err)
	_, err = replayer.Run(context.Background())
	assert.ErrorContains(t, err, "no metadata")

	_, err = NewReplayer(nil, nil, nil, Config{})
	assert.Error(t, err)
	_, err = NewReplayer(&fakeOffsetClient{}, newFakeConsumer(nil), nil, Config{Execute: true})
	assert.ErrorContains(t, err, "publisher is required")
}

type fakeOffsetClient struct {
	partitions    []int32
	partitionsErr error
	oldest        int64
	newest        int64
}

func (c *fakeOffsetClient) GetOffset(_ string, _ int32, at int64) (int64, error) {
	if at == sarama.OffsetOldest {
		return c.oldest, nil
	}
	return c.newest, nil
}

func (c *fakeOffsetClient) Partitions(string) ([]int32, error) {
	return c.partitions, c.partitionsErr
}

type fakeConsumer struct {
	messages     map[int32][]*sarama.ConsumerMessage
	keepOpen     bool
	opened       []int32
	startOffsets map[int32]int64
}

func newFakeConsumer(messages map[int32][]*sarama.ConsumerMessage) *fakeConsumer {
	return &fakeConsumer{messages: messages, startOffsets: make(map[int32]int64)}
}

func (c *fakeConsumer) ConsumePartition(_ string, partition int32, offset int64) (PartitionConsumer, error) {
	c.opened = append(c.opened, partition)
	c.startOffsets[partition] = offset

	msgs := make(chan *sarama.ConsumerMessage, len(c.messages[partition]))
	for _, msg := range c.messages[partition] {
		if msg.Offset >= offset {
			msg.Partition = partition
			msgs <- msg
		}
	}
	if !c.keepOpen {
		close(msgs)
	}
	return &fakePartitionConsumer{messages: msgs, errors: make(chan *sarama.ConsumerError)}, nil
}

type fakePartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (p *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return p.messages }
func (p *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return p.errors }
func (p *fakePartitionConsumer) Close() error                             { return nil }

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.published))
	for _, event := range p.published {
		ids = append(ids, event.ID)
	}
	return ids
}
