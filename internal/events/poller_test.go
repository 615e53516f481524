package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outboxMock struct {
	events    []*orders.OutboxEvent
	getErr    error
	processed []int
	markErr   error
}

func (m *outboxMock) GetUnprocessedEvents(_ context.Context, _ int) ([]*orders.OutboxEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var pending []*orders.OutboxEvent
	for _, ev := range m.events {
		done := false
		for _, id := range m.processed {
			if id == ev.ID {
				done = true
			}
		}
		if !done {
			pending = append(pending, ev)
		}
	}
	return pending, nil
}

func (m *outboxMock) MarkEventAsProcessed(_ context.Context, id int) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	return nil
}

type writerMock struct {
	messages []kafka.Message
	err      error
}

func (m *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func newTestPoller(repo OutboxSource, w publisher) *OutboxPoller {
	return &OutboxPoller{tick: time.Millisecond, repo: repo, writer: w, logger: zap.NewNop()}
}

func TestDrainPublishesAndMarks(t *testing.T) {
	repo := &outboxMock{events: []*orders.OutboxEvent{
		{ID: 1, AggregateId: "order-a", EventType: "order.captured", Payload: []byte(`{"n":"PF-1"}`)},
		{ID: 2, AggregateId: "order-b", EventType: "order.captured", Payload: []byte(`{"n":"PF-2"}`)},
	}}
	w := &writerMock{}
	p := newTestPoller(repo, w)

	p.drain(context.Background())

	require.Len(t, w.messages, 2)
	assert.Equal(t, []byte("order-a"), w.messages[0].Key)
	assert.Equal(t, []byte(`{"n":"PF-1"}`), w.messages[0].Value)
	require.Len(t, w.messages[0].Headers, 1)
	assert.Equal(t, "order.captured", string(w.messages[0].Headers[0].Value))
	assert.Equal(t, []int{1, 2}, repo.processed)
}

func TestDrainPublishFailureLeavesEventPending(t *testing.T) {
	repo := &outboxMock{events: []*orders.OutboxEvent{
		{ID: 1, AggregateId: "order-a", EventType: "order.captured", Payload: []byte(`{}`)},
	}}
	w := &writerMock{err: errors.New("broker unavailable")}
	p := newTestPoller(repo, w)

	p.drain(context.Background())
	assert.Empty(t, repo.processed)

	// Next tick after the broker recovers delivers the event.
	w.err = nil
	p.drain(context.Background())
	assert.Equal(t, []int{1}, repo.processed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &outboxMock{}
	p := newTestPoller(repo, &writerMock{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
