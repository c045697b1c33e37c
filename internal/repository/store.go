package repository

import (
	"context"

	"campuscoin/internal/model"
	"campuscoin/internal/store"

	"gorm.io/gorm"
)

// Store 把各个 repository 组合成 store.Store，事务由 gorm 的 db.Transaction 提供
type Store struct {
	db              *gorm.DB
	accountRepo     *AccountRepository
	advantageRepo   *AdvantageRepository
	companyRepo     *CompanyRepository
	transactionRepo *TransactionRepository
	redemptionRepo  *RedemptionRepository
	outboxRepo      *OutboxRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		accountRepo:     NewAccountRepository(db),
		advantageRepo:   NewAdvantageRepository(db),
		companyRepo:     NewCompanyRepository(db),
		transactionRepo: NewTransactionRepository(db),
		redemptionRepo:  NewRedemptionRepository(db),
		outboxRepo:      NewOutboxRepository(db),
	}
}

func (s *Store) Accounts() *AccountRepository { return s.accountRepo }
func (s *Store) Advantages() *AdvantageRepository { return s.advantageRepo }
func (s *Store) Companies() *CompanyRepository { return s.companyRepo }
func (s *Store) Transactions() *TransactionRepository { return s.transactionRepo }
func (s *Store) Redemptions() *RedemptionRepository { return s.redemptionRepo }
func (s *Store) Outbox() *OutboxRepository { return s.outboxRepo }

func (s *Store) Transact(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txScope{tx: tx, store: s})
	})
	return translateError(err)
}

// txScope 绑定一个 gorm 事务句柄，实现 store.Tx
type txScope struct {
	tx    *gorm.DB
	store *Store
}

func (t *txScope) GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error) {
	return t.store.accountRepo.GetForUpdate(ctx, t.tx, id)
}

func (t *txScope) SetBalance(ctx context.Context, id string, newBalance int64, version int) (*model.Account, error) {
	return t.store.accountRepo.SetBalance(ctx, t.tx, id, newBalance, version)
}

func (t *txScope) GetAdvantage(ctx context.Context, id string) (*model.Advantage, error) {
	return t.store.advantageRepo.getWith(ctx, t.tx, id)
}

func (t *txScope) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return t.store.companyRepo.getWith(ctx, t.tx, id)
}

func (t *txScope) AppendEntry(ctx context.Context, entry *model.TransactionEntry) error {
	return t.store.transactionRepo.Create(ctx, t.tx, entry)
}

func (t *txScope) AppendRedemption(ctx context.Context, redemption *model.Redemption) error {
	return t.store.redemptionRepo.Create(ctx, t.tx, redemption)
}

func (t *txScope) EnqueueNotification(ctx context.Context, msg *model.OutboxMessage) error {
	return t.store.outboxRepo.Create(ctx, t.tx, msg)
}

var (
	_ store.Store              = (*Store)(nil)
	_ store.Tx                 = (*txScope)(nil)
	_ store.AccountStore       = (*AccountRepository)(nil)
	_ store.AdvantageCatalog   = (*AdvantageRepository)(nil)
	_ store.CompanyDirectory   = (*CompanyRepository)(nil)
	_ store.TransactionLog     = (*TransactionRepository)(nil)
	_ store.RedemptionRegistry = (*RedemptionRepository)(nil)
	_ store.OutboxStore        = (*OutboxRepository)(nil)
)
