package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campuscoin/internal/model"

	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributedLock_TryLockAndUnlock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectSetNX("coin:lock:account:a", "tok", time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"coin:lock:account:a"}, "tok").SetVal(int64(1))

	dl := NewDistributedLock(client, "coin:lock:account:a", "tok", time.Second)
	ok, err := dl.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, dl.Unlock(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_AcquireSortedAndReleaseReverse(t *testing.T) {
	client, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectSetNX("coin:lock:account:a", "tok", time.Second).SetVal(true)
	mock.ExpectSetNX("coin:lock:account:b", "tok", time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"coin:lock:account:b"}, "tok").SetVal(int64(1))
	mock.ExpectEval(unlockScript, []string{"coin:lock:account:a"}, "tok").SetVal(int64(1))

	l := NewRedisLocker(client, time.Second, time.Millisecond, 3, zerolog.Nop())
	l.newToken = func() string { return "tok" }

	release, err := l.Acquire(ctx, "b", "a", "b")
	require.NoError(t, err)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_ContentionIsConflict(t *testing.T) {
	client, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectSetNX("coin:lock:account:a", "tok", time.Second).SetVal(true)
	mock.ExpectSetNX("coin:lock:account:b", "tok", time.Second).SetVal(false)
	mock.ExpectSetNX("coin:lock:account:b", "tok", time.Second).SetVal(false)
	mock.ExpectEval(unlockScript, []string{"coin:lock:account:a"}, "tok").SetVal(int64(1))

	l := NewRedisLocker(client, time.Second, time.Millisecond, 2, zerolog.Nop())
	l.newToken = func() string { return "tok" }

	release, err := l.Acquire(ctx, "a", "b")
	assert.Nil(t, release)
	assert.True(t, errors.Is(err, model.ErrConcurrencyConflict))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisErrorIsNotConflict(t *testing.T) {
	client, mock := redismock.NewClientMock()

	mock.ExpectSetNX("coin:lock:account:a", "tok", time.Second).SetErr(errors.New("connection refused"))

	l := NewRedisLocker(client, time.Second, time.Millisecond, 2, zerolog.Nop())
	l.newToken = func() string { return "tok" }

	_, err := l.Acquire(context.Background(), "a")
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrConcurrencyConflict))
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// 不同顺序传入，验证排序后不会死锁
			ids := []string{"x", "y"}
			if i%2 == 0 {
				ids = []string{"y", "x"}
			}
			release, err := l.Acquire(ctx, ids...)
			if !assert.NoError(t, err) {
				return
			}

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.locks)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	release2()
	assert.Empty(t, l.locks)
}
