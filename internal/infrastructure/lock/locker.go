package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"campuscoin/internal/model"
	"campuscoin/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const accountKeyPrefix = "coin:lock:account:"

// Locker 对一组账户加悲观锁。
// 实现必须去重并按字典序升序加锁，release 按相反顺序释放，
// 这样任意两个并发调用都不会互相等待成环。
type Locker interface {
	Acquire(ctx context.Context, accountIDs ...string) (release func(), err error)
}

// normalize 去重并升序排列
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ============================================================================
// RedisLocker 多实例部署时使用
// ============================================================================

type RedisLocker struct {
	client        redis.Cmdable
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
	newToken      func() string
	log           zerolog.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl, retryInterval time.Duration, maxRetries int, log zerolog.Logger) *RedisLocker {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		newToken:      idgen.NewID,
		log:           log.With().Str("component", "RedisLocker").Logger(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, accountIDs ...string) (func(), error) {
	token := l.newToken()
	held := make([]*DistributedLock, 0, len(accountIDs))

	release := func() {
		// 释放不受调用方取消影响
		rctx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(rctx); err != nil {
				l.log.Warn().Err(err).Str("key", held[i].Key()).Msg("释放账户锁失败，等待过期")
			}
		}
	}

	for _, id := range normalize(accountIDs) {
		dl := NewDistributedLock(l.client, accountKeyPrefix+id, token, l.ttl)
		if err := dl.Lock(ctx, l.retryInterval, l.maxRetries); err != nil {
			release()
			if errors.Is(err, ErrLockFailed) {
				return nil, fmt.Errorf("%w: 账户锁被占用 account=%s", model.ErrConcurrencyConflict, id)
			}
			return nil, fmt.Errorf("获取账户锁失败 account=%s: %w", id, err)
		}
		held = append(held, dl)
	}

	return release, nil
}

// ============================================================================
// LocalLocker 单进程部署或测试时使用
// ============================================================================

type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, accountIDs ...string) (func(), error) {
	ids := normalize(accountIDs)
	held := make([]string, 0, len(ids))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, id := range ids {
		if err := l.lock(ctx, id); err != nil {
			release()
			return nil, fmt.Errorf("获取账户锁失败 account=%s: %w", id, err)
		}
		held = append(held, id)
	}
	return release, nil
}

func (l *LocalLocker) lock(ctx context.Context, id string) error {
	l.mu.Lock()
	kl, ok := l.locks[id]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[id] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(id)
		return ctx.Err()
	}
}

func (l *LocalLocker) unlock(id string) {
	l.mu.Lock()
	kl := l.locks[id]
	l.mu.Unlock()

	<-kl.ch
	l.unref(id)
}

func (l *LocalLocker) unref(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl := l.locks[id]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, id)
	}
}
