package job

import (
	"context"
	"errors"
	"time"

	"campuscoin/internal/config"
	"campuscoin/internal/metrics"
	"campuscoin/internal/model"
	"campuscoin/internal/notify"
	"campuscoin/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// OutboxSender 把事务内写入的通知投递给 Notifier
//
// 定时轮询 PENDING 消息，兑换提交后也可以通过 Signal 立即唤醒。
// 投递失败只累加重试次数，达到上限后标记为 FAILED，不影响账本。
// 熔断期间的拒绝不算一次投递：消息保持 PENDING，重试次数不变，本批次提前结束。
type OutboxSender struct {
	outbox        store.OutboxStore
	notifier      notify.Notifier
	limiter       *rate.Limiter
	signalCh      chan struct{}
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
	log           zerolog.Logger
}

func NewOutboxSender(outbox store.OutboxStore, notifier notify.Notifier, cfg config.OutboxConfig, log zerolog.Logger) *OutboxSender {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &OutboxSender{
		outbox:        outbox,
		notifier:      notifier,
		limiter:       rate.NewLimiter(limit, 1),
		signalCh:      make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		interval:      cfg.Interval,
		batchSize:     cfg.BatchSize,
		maxRetryCount: cfg.MaxRetryCount,
		log:           log.With().Str("component", "OutboxSender").Logger(),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info().Msg("通知投递任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info().Msg("任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		case <-s.signalCh:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// Signal 非阻塞，已有未处理的信号时直接丢弃
func (s *OutboxSender) Signal() {
	select {
	case s.signalCh <- struct{}{}:
	default:
	}
}

// ProcessPending 处理一批待发送消息，返回本批处理条数
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outbox.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("查询消息失败")
		return 0
	}

	for i, msg := range messages {
		if err := s.limiter.Wait(ctx); err != nil {
			s.log.Warn().Err(err).Int("remaining", len(messages)-i).Msg("限流等待中断")
			return i
		}
		if !s.sendMessage(ctx, msg) {
			return i
		}
	}
	return len(messages)
}

// sendMessage 返回 false 表示下游不可用，调用方应停止本批次
func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.notifier.Send(ctx, msg.Recipient, msg.Subject, msg.Body)

	// 状态回写不受停止信号影响，已发出的消息必须落为 SENT
	ctx = context.WithoutCancel(ctx)

	if errors.Is(err, model.ErrNotifierUnavailable) {
		metrics.RecordOutboxDispatch("deferred")
		s.log.Warn().Err(err).Int64("id", msg.ID).Msg("通知通道熔断中，消息保留待下次投递")
		return false
	}

	if err == nil {
		metrics.RecordOutboxDispatch("sent")
		if updateErr := s.outbox.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			s.log.Error().Err(updateErr).Int64("id", msg.ID).Msg("更新消息状态失败")
		} else {
			s.log.Debug().Int64("id", msg.ID).Str("key", msg.MessageKey).Str("to", msg.Recipient).Msg("消息发送成功")
		}
		return true
	}

	s.log.Warn().Err(err).Int64("id", msg.ID).Str("to", msg.Recipient).Msg("消息发送失败")

	if msg.RetryCount+1 >= s.maxRetryCount {
		metrics.RecordOutboxDispatch("failed")
		if markErr := s.outbox.MarkAsFailed(ctx, msg.ID, err.Error()); markErr != nil {
			s.log.Error().Err(markErr).Int64("id", msg.ID).Msg("标记消息失败状态失败")
		} else {
			s.log.Error().Int64("id", msg.ID).Str("to", msg.Recipient).Msg("消息超过最大重试次数，标记为失败")
		}
		return true
	}

	metrics.RecordOutboxDispatch("retry")
	if incErr := s.outbox.IncrementRetryCount(ctx, msg.ID, err.Error()); incErr != nil {
		s.log.Error().Err(incErr).Int64("id", msg.ID).Msg("增加重试次数失败")
	}
	return true
}
