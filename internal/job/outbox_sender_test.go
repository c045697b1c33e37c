package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campuscoin/internal/config"
	"campuscoin/internal/model"
	"campuscoin/internal/notify"
	"campuscoin/internal/repository/memory"
	"campuscoin/internal/store"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	err   error
	calls int
}

func (n *recordingNotifier) Send(_ context.Context, to, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, to)
	return nil
}

func (n *recordingNotifier) attempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func enqueue(t *testing.T, st *memory.Store, recipients ...string) {
	t.Helper()
	err := st.Transact(context.Background(), func(tx store.Tx) error {
		for _, to := range recipients {
			msg := &model.OutboxMessage{MessageKey: "k-" + to, Recipient: to, Subject: "s", Body: "b"}
			if err := tx.EnqueueNotification(context.Background(), msg); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func testOutboxConfig() config.OutboxConfig {
	return config.OutboxConfig{Interval: time.Hour, BatchSize: 10, MaxRetryCount: 3}
}

func TestOutboxSender_MarksSent(t *testing.T) {
	st := memory.NewStore()
	enqueue(t, st, "a@x", "b@x")
	n := &recordingNotifier{}
	s := NewOutboxSender(st.Outbox(), n, testOutboxConfig(), zerolog.Nop())

	assert.Equal(t, 2, s.ProcessPending(context.Background()))
	assert.Equal(t, []string{"a@x", "b@x"}, n.recipients())

	for _, msg := range st.Messages() {
		assert.Equal(t, model.OutboxStatusSent, msg.Status)
	}
	assert.Equal(t, 0, s.ProcessPending(context.Background()))
}

func TestOutboxSender_RetriesThenFails(t *testing.T) {
	st := memory.NewStore()
	enqueue(t, st, "a@x")
	n := &recordingNotifier{err: errors.New("broker down")}
	s := NewOutboxSender(st.Outbox(), n, testOutboxConfig(), zerolog.Nop())
	ctx := context.Background()

	s.ProcessPending(ctx)
	msg := st.Messages()[0]
	assert.Equal(t, model.OutboxStatusPending, msg.Status)
	assert.Equal(t, 1, msg.RetryCount)
	assert.Equal(t, "broker down", msg.LastError)

	s.ProcessPending(ctx)
	s.ProcessPending(ctx)
	msg = st.Messages()[0]
	assert.Equal(t, model.OutboxStatusFailed, msg.Status)
	assert.Equal(t, 3, msg.RetryCount)

	// FAILED 不再被拾取
	assert.Equal(t, 0, s.ProcessPending(ctx))
}

func TestOutboxSender_OpenBreakerKeepsMessagesPending(t *testing.T) {
	st := memory.NewStore()
	down := &recordingNotifier{err: errors.New("broker down")}
	breaker := notify.NewBreakerNotifier(down, 2, time.Hour, zerolog.Nop())
	ctx := context.Background()

	// 先打开熔断器
	for i := 0; i < 2; i++ {
		require.Error(t, breaker.Send(ctx, "x@y", "s", "b"))
	}
	require.Equal(t, gobreaker.StateOpen, breaker.State())
	tripped := down.attempts()

	enqueue(t, st, "a@x", "b@x")
	s := NewOutboxSender(st.Outbox(), breaker, testOutboxConfig(), zerolog.Nop())

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, s.ProcessPending(ctx))
	}

	assert.Equal(t, tripped, down.attempts())
	for _, msg := range st.Messages() {
		assert.Equal(t, model.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.RetryCount)
		assert.Empty(t, msg.LastError)
	}

	// 下游恢复后正常投递
	ok := &recordingNotifier{}
	s = NewOutboxSender(st.Outbox(), ok, testOutboxConfig(), zerolog.Nop())
	assert.Equal(t, 2, s.ProcessPending(ctx))
	assert.Equal(t, []string{"a@x", "b@x"}, ok.recipients())
}

func TestOutboxSender_SignalWakesLoop(t *testing.T) {
	st := memory.NewStore()
	n := &recordingNotifier{}
	s := NewOutboxSender(st.Outbox(), n, testOutboxConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	enqueue(t, st, "a@x")
	s.Signal()
	s.Signal() // 不阻塞

	assert.Eventually(t, func() bool {
		return len(n.recipients()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestOutboxSender_StopsOnStop(t *testing.T) {
	st := memory.NewStore()
	s := NewOutboxSender(st.Outbox(), &recordingNotifier{}, testOutboxConfig(), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not stop")
	}
}
