package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydo/internal/core"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", amqp091.ErrClosed, true},
		{"other error", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "paydo", queueName: "ledger_events"}

	assert.False(t, client.isCircuitOpen(), "closed initially")

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	assert.True(t, client.isCircuitOpen())
	assert.Equal(t, StateOpen, atomic.LoadInt32(&client.state))

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, client.isCircuitOpen(), "half-open after timeout")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))

	client.recordFailure()
	assert.True(t, client.isCircuitOpen(), "a half-open failure reopens")

	client.recordSuccess()
	assert.False(t, client.isCircuitOpen())
	assert.Zero(t, atomic.LoadInt64(&client.failureCount))
}

func TestPublishEventShortCircuits(t *testing.T) {
	client := &Client{exchangeName: "paydo", queueName: "ledger_events"}
	ev := core.LedgerEvent{ID: "1", Kind: core.EventLedgerReset}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.PublishEvent(ctx, ev), context.Canceled)

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	assert.ErrorIs(t, client.PublishEvent(context.Background(), ev), ErrCircuitOpen)

	atomic.StoreInt32(&client.state, StateClosed)
	client.closed = true
	assert.ErrorIs(t, client.PublishEvent(context.Background(), ev), ErrClosed)
}

func TestEventRoundTrip(t *testing.T) {
	target := int64(2)
	ev := core.LedgerEvent{
		ID:   "5d0c3c1e-2a43-4c55-9a43-4e0f9c1c0b7e",
		Kind: core.EventTransactionCreated,
		Transactions: []core.Transaction{{
			ID: 1, Type: core.Transfer, Amount: 10, Title: "x", Tags: []string{"#a"},
			AccountID: 1, TargetAccountID: &target, Date: "1403/10/05", Timestamp: 1,
		}},
		OccurredAt: time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	body, err := EncodeEvent(ev)
	require.NoError(t, err)
	got, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeEventRejects(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"kind":"ledger.reset"}`,
		`{"id":"x","kind":"expense.synced"}`,
	} {
		_, err := DecodeEvent([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedEvent, body)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	good := []byte(`{"id":"a","kind":"ledger.reset","occurred_at":"2024-12-25T00:00:00Z"}`)

	ack := &fakeAck{}
	dispatch(ctx, good, ack, func(context.Context, core.LedgerEvent) error { return nil })
	assert.True(t, ack.acked)

	ack = &fakeAck{}
	dispatch(ctx, good, ack, func(context.Context, core.LedgerEvent) error { return errors.New("sink down") })
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeued)

	ack = &fakeAck{}
	called := false
	dispatch(ctx, []byte(`{}`), ack, func(context.Context, core.LedgerEvent) error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}
