// Package store 定义账本各存储组件的接口。
//
// 兑换服务只依赖这些接口；MySQL(gorm) 与内存两套实现分别位于
// internal/repository 与 internal/repository/memory。
package store

import (
	"context"

	"campuscoin/internal/model"
)

// Tx 是一次存储事务内可用的操作集合。
// 所有写操作只能通过 Tx 进行，事务函数返回错误时全部回滚。
type Tx interface {
	// GetAccountForUpdate 读取并锁定账户行
	GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error)
	// SetBalance 原子写入绝对余额，version 不匹配时返回 model.ErrConcurrencyConflict。
	// 不校验非负，调用方必须在锁定读取之后、写入之前完成校验。
	SetBalance(ctx context.Context, id string, newBalance int64, version int) (*model.Account, error)
	GetAdvantage(ctx context.Context, id string) (*model.Advantage, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	AppendEntry(ctx context.Context, entry *model.TransactionEntry) error
	AppendRedemption(ctx context.Context, redemption *model.Redemption) error
	EnqueueNotification(ctx context.Context, msg *model.OutboxMessage) error
}

// Store 提供事务边界
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, id string) (*model.Account, error)
	ListByKind(ctx context.Context, kind model.AccountKind) ([]*model.Account, error)
}

type CompanyDirectory interface {
	Create(ctx context.Context, company *model.Company) error
	Get(ctx context.Context, id string) (*model.Company, error)
}

// AdvantageCatalog 的 Get/List/Update/Delete 都看不到已删除（墓碑）的优惠
type AdvantageCatalog interface {
	Create(ctx context.Context, advantage *model.Advantage) error
	Get(ctx context.Context, id string) (*model.Advantage, error)
	ListByCompany(ctx context.Context, companyID string) ([]*model.Advantage, error)
	Update(ctx context.Context, id, name string, price int64) (*model.Advantage, error)
	Delete(ctx context.Context, id string) error
}

// TransactionLog 只读视图，结果按插入顺序返回
type TransactionLog interface {
	ByStudent(ctx context.Context, studentID string) ([]*model.TransactionEntry, error)
	ByTeacher(ctx context.Context, teacherID string) ([]*model.TransactionEntry, error)
	ByCompany(ctx context.Context, companyID string) ([]*model.TransactionEntry, error)
}

type RedemptionRegistry interface {
	ByStudent(ctx context.Context, studentID string) ([]*model.Redemption, error)
	ByAdvantage(ctx context.Context, advantageID string) ([]*model.Redemption, error)
}

// OutboxStore 供通知投递任务使用
type OutboxStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	IncrementRetryCount(ctx context.Context, id int64, lastError string) error
	MarkAsFailed(ctx context.Context, id int64, lastError string) error
}
