package job

import (
	"context"
	"time"

	"campuscoin/internal/metrics"
	"campuscoin/internal/service"

	"github.com/rs/zerolog"
)

// LedgerAuditJob 定期用流水重算余额，发现不一致时记错误日志
type LedgerAuditJob struct {
	audit    *service.AuditService
	stopCh   chan struct{}
	interval time.Duration
	log      zerolog.Logger
}

func NewLedgerAuditJob(audit *service.AuditService, interval time.Duration, log zerolog.Logger) *LedgerAuditJob {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &LedgerAuditJob{
		audit:    audit,
		stopCh:   make(chan struct{}),
		interval: interval,
		log:      log.With().Str("component", "LedgerAuditJob").Logger(),
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Msg("账本对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info().Msg("任务停止")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

// RunOnce 执行一次对账，返回发现的不一致数量；查询失败返回 -1
func (j *LedgerAuditJob) RunOnce(ctx context.Context) int {
	discrepancies, err := j.audit.Verify(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("对账失败")
		return -1
	}

	metrics.SetAuditDiscrepancies(len(discrepancies))
	for _, d := range discrepancies {
		j.log.Error().
			Str("account_id", d.AccountID).
			Str("kind", string(d.Kind)).
			Int64("stored", d.Stored).
			Int64("expected", d.Expected).
			Str("reason", d.Reason).
			Msg("账户余额与流水不一致")
	}
	if len(discrepancies) == 0 {
		j.log.Debug().Msg("对账完成，未发现不一致")
	}
	return len(discrepancies)
}
