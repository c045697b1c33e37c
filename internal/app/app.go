// Package app 按配置组装存储、锁、通知和服务，供 server 与 ledgerctl 共用
package app

import (
	"fmt"

	"campuscoin/internal/config"
	"campuscoin/internal/handler"
	"campuscoin/internal/infrastructure/cache"
	"campuscoin/internal/infrastructure/database"
	"campuscoin/internal/infrastructure/lock"
	"campuscoin/internal/infrastructure/mq"
	"campuscoin/internal/job"
	"campuscoin/internal/notify"
	"campuscoin/internal/repository"
	"campuscoin/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *gorm.DB
	Store *repository.Store
	Redis *redis.Client

	Accounts  *service.AccountService
	Companies *service.CompanyService
	Catalog   *service.CatalogService
	Exchange  *service.ExchangeService
	History   *service.HistoryService
	Audit     *service.AuditService

	closers []func() error
}

// New 连接 MySQL，按配置选择 Redis 锁或进程内锁，并组装各服务
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	db, err := database.InitMySQL(&cfg.MySQL, cfg.Log.SQLLevel, log)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: db, Store: repository.NewStore(db)}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	var locker lock.Locker
	if cfg.Redis.Enabled {
		rdb, err := cache.InitRedis(&cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		a.closers = append(a.closers, rdb.Close)
		locker = lock.NewRedisLocker(rdb, cfg.Ledger.LockTTL, cfg.Ledger.LockRetryInterval, cfg.Ledger.LockMaxRetries, log)
	} else {
		log.Warn().Msg("Redis 未启用，使用进程内账户锁，仅适用于单实例部署")
		locker = lock.NewLocalLocker()
	}

	a.Accounts = service.NewAccountService(a.Store.Accounts())
	a.Companies = service.NewCompanyService(a.Store.Companies())
	a.Catalog = service.NewCatalogService(a.Store.Advantages(), a.Store.Companies())
	a.Exchange = service.NewExchangeService(a.Store, locker, cfg.Ledger, log)
	a.History = service.NewHistoryService(a.Store.Transactions(), a.Store.Redemptions())
	a.Audit = service.NewAuditService(a.Store.Accounts(), a.Store.Transactions())
	return a, nil
}

// Migrate 自动迁移表结构
func (a *App) Migrate() error {
	return database.Migrate(a.DB)
}

// NewNotifier 按配置创建通知实现，外层包一层熔断
func (a *App) NewNotifier() (notify.Notifier, error) {
	var inner notify.Notifier
	switch a.Config.Notifier.Driver {
	case "kafka":
		producer, err := mq.NewProducer(&a.Config.Kafka)
		if err != nil {
			return nil, err
		}
		publisher := mq.NewPublisher(producer)
		a.closers = append(a.closers, publisher.Close)
		inner = notify.NewKafkaNotifier(publisher, a.Config.Kafka.Topic.Mail)
	case "log", "":
		inner = notify.NewLogNotifier(a.Log)
	default:
		return nil, fmt.Errorf("未知的通知驱动: %s", a.Config.Notifier.Driver)
	}
	return notify.NewBreakerNotifier(inner, a.Config.Notifier.BreakerFailures, a.Config.Notifier.BreakerOpenTimeout, a.Log), nil
}

// NewOutboxSender 创建通知投递任务并注册为兑换后的唤醒回调
func (a *App) NewOutboxSender(notifier notify.Notifier) *job.OutboxSender {
	sender := job.NewOutboxSender(a.Store.Outbox(), notifier, a.Config.Outbox, a.Log)
	a.Exchange.SetSignaler(sender)
	return sender
}

func (a *App) NewLedgerAuditJob() *job.LedgerAuditJob {
	return job.NewLedgerAuditJob(a.Audit, a.Config.Audit.Interval, a.Log)
}

func (a *App) Handler() *handler.Handler {
	return handler.NewHandler(handler.Services{
		Accounts:  a.Accounts,
		Companies: a.Companies,
		Catalog:   a.Catalog,
		Exchange:  a.Exchange,
		History:   a.History,
	})
}

// Close 按创建的相反顺序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn().Err(err).Msg("释放资源失败")
		}
	}
	a.closers = nil
}
