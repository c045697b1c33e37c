// Package memory 是 store 接口的内存实现，用于单进程部署和测试。
//
// 整个 Store 由一把互斥锁保护：Transact 在持锁期间执行事务函数，
// 因而事务之间天然串行；函数返回错误时恢复到事务开始前的快照。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"campuscoin/internal/model"
	"campuscoin/internal/store"

	"gorm.io/gorm"
)

type Store struct {
	mu          sync.Mutex
	accounts    map[string]*model.Account
	companies   map[string]*model.Company
	advantages  map[string]*model.Advantage
	entries     []*model.TransactionEntry
	redemptions []*model.Redemption
	outbox      []*model.OutboxMessage
	seq         int64
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]*model.Account),
		companies:  make(map[string]*model.Company),
		advantages: make(map[string]*model.Advantage),
		now:        time.Now,
	}
}

func (m *Store) Accounts() store.AccountStore { return accountView{m} }
func (m *Store) Advantages() store.AdvantageCatalog { return advantageView{m} }
func (m *Store) Companies() store.CompanyDirectory { return companyView{m} }
func (m *Store) Transactions() store.TransactionLog { return transactionView{m} }
func (m *Store) Redemptions() store.RedemptionRegistry { return redemptionView{m} }
func (m *Store) Outbox() store.OutboxStore { return outboxView{m} }

// snapshot 只记录事务可能修改的部分：账户余额和三个追加序列的长度
type snapshot struct {
	accounts    map[string]model.Account
	entries     int
	redemptions int
	outbox      int
	seq         int64
}

func (m *Store) takeSnapshot() snapshot {
	accounts := make(map[string]model.Account, len(m.accounts))
	for id, a := range m.accounts {
		accounts[id] = *a
	}
	return snapshot{
		accounts:    accounts,
		entries:     len(m.entries),
		redemptions: len(m.redemptions),
		outbox:      len(m.outbox),
		seq:         m.seq,
	}
}

func (m *Store) restore(s snapshot) {
	for id, a := range s.accounts {
		restored := a
		m.accounts[id] = &restored
	}
	m.entries = m.entries[:s.entries]
	m.redemptions = m.redemptions[:s.redemptions]
	m.outbox = m.outbox[:s.outbox]
	m.seq = s.seq
}

func (m *Store) Transact(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.takeSnapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Store) nextSeq() int64 {
	m.seq++
	return m.seq
}

// ============================================================================
// 事务内操作（调用时已持有 m.mu）
// ============================================================================

type memTx struct {
	m *Store
}

func (t *memTx) GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error) {
	a, ok := t.m.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (t *memTx) SetBalance(ctx context.Context, id string, newBalance int64, version int) (*model.Account, error) {
	a, ok := t.m.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	if a.Version != version {
		return nil, model.ErrConcurrencyConflict
	}
	a.Balance = newBalance
	a.Version++
	a.UpdatedAt = t.m.now()
	copied := *a
	return &copied, nil
}

func (t *memTx) GetAdvantage(ctx context.Context, id string) (*model.Advantage, error) {
	return t.m.getAdvantage(id)
}

func (t *memTx) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return t.m.getCompany(id)
}

func (t *memTx) AppendEntry(ctx context.Context, entry *model.TransactionEntry) error {
	entry.ID = t.m.nextSeq()
	copied := *entry
	t.m.entries = append(t.m.entries, &copied)
	return nil
}

func (t *memTx) AppendRedemption(ctx context.Context, redemption *model.Redemption) error {
	redemption.ID = t.m.nextSeq()
	copied := *redemption
	t.m.redemptions = append(t.m.redemptions, &copied)
	return nil
}

func (t *memTx) EnqueueNotification(ctx context.Context, msg *model.OutboxMessage) error {
	msg.ID = t.m.nextSeq()
	if msg.Status == "" {
		msg.Status = model.OutboxStatusPending
	}
	now := t.m.now()
	msg.CreatedAt, msg.UpdatedAt = now, now
	copied := *msg
	t.m.outbox = append(t.m.outbox, &copied)
	return nil
}

func (m *Store) getAdvantage(id string) (*model.Advantage, error) {
	a, ok := m.advantages[id]
	if !ok || a.DeletedAt.Valid {
		return nil, model.ErrAdvantageNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *Store) getCompany(id string) (*model.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, model.ErrCompanyNotFound
	}
	copied := *c
	return &copied, nil
}

// ============================================================================
// 只读视图与目录写操作
// ============================================================================

type accountView struct{ m *Store }

func (v accountView) Create(ctx context.Context, account *model.Account) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if _, exists := v.m.accounts[account.ID]; exists {
		return model.ErrInvalidArgument
	}
	for _, a := range v.m.accounts {
		if a.Email == account.Email {
			return model.ErrInvalidArgument
		}
	}
	now := v.m.now()
	account.CreatedAt, account.UpdatedAt = now, now
	copied := *account
	v.m.accounts[account.ID] = &copied
	return nil
}

func (v accountView) Get(ctx context.Context, id string) (*model.Account, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	a, ok := v.m.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (v accountView) ListByKind(ctx context.Context, kind model.AccountKind) ([]*model.Account, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := make([]*model.Account, 0)
	for _, a := range v.m.accounts {
		if a.Kind == kind {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type companyView struct{ m *Store }

func (v companyView) Create(ctx context.Context, company *model.Company) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if _, exists := v.m.companies[company.ID]; exists {
		return model.ErrInvalidArgument
	}
	company.CreatedAt = v.m.now()
	copied := *company
	v.m.companies[company.ID] = &copied
	return nil
}

func (v companyView) Get(ctx context.Context, id string) (*model.Company, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return v.m.getCompany(id)
}

type advantageView struct{ m *Store }

func (v advantageView) Create(ctx context.Context, advantage *model.Advantage) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if _, exists := v.m.advantages[advantage.ID]; exists {
		return model.ErrInvalidArgument
	}
	now := v.m.now()
	advantage.CreatedAt, advantage.UpdatedAt = now, now
	copied := *advantage
	v.m.advantages[advantage.ID] = &copied
	return nil
}

func (v advantageView) Get(ctx context.Context, id string) (*model.Advantage, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return v.m.getAdvantage(id)
}

func (v advantageView) ListByCompany(ctx context.Context, companyID string) ([]*model.Advantage, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := make([]*model.Advantage, 0)
	for _, a := range v.m.advantages {
		if a.CompanyID == companyID && !a.DeletedAt.Valid {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (v advantageView) Update(ctx context.Context, id, name string, price int64) (*model.Advantage, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	a, ok := v.m.advantages[id]
	if !ok || a.DeletedAt.Valid {
		return nil, model.ErrAdvantageNotFound
	}
	a.Name = name
	a.Price = price
	a.UpdatedAt = v.m.now()
	copied := *a
	return &copied, nil
}

func (v advantageView) Delete(ctx context.Context, id string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	a, ok := v.m.advantages[id]
	if !ok || a.DeletedAt.Valid {
		return model.ErrAdvantageNotFound
	}
	a.DeletedAt = gorm.DeletedAt{Time: v.m.now(), Valid: true}
	return nil
}

type transactionView struct{ m *Store }

func (v transactionView) filter(keep func(e *model.TransactionEntry) bool) []*model.TransactionEntry {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := make([]*model.TransactionEntry, 0)
	for _, e := range v.m.entries {
		if keep(e) {
			copied := *e
			result = append(result, &copied)
		}
	}
	return result
}

func (v transactionView) ByStudent(ctx context.Context, studentID string) ([]*model.TransactionEntry, error) {
	return v.filter(func(e *model.TransactionEntry) bool {
		return e.Subject.IsStudent(studentID)
	}), nil
}

func (v transactionView) ByTeacher(ctx context.Context, teacherID string) ([]*model.TransactionEntry, error) {
	return v.filter(func(e *model.TransactionEntry) bool {
		return e.Subject.IsTeacher(teacherID) ||
			(e.CounterpartTeacherID != nil && *e.CounterpartTeacherID == teacherID)
	}), nil
}

func (v transactionView) ByCompany(ctx context.Context, companyID string) ([]*model.TransactionEntry, error) {
	return v.filter(func(e *model.TransactionEntry) bool {
		return e.ToCompanyID != nil && *e.ToCompanyID == companyID
	}), nil
}

type redemptionView struct{ m *Store }

func (v redemptionView) filter(keep func(r *model.Redemption) bool) []*model.Redemption {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := make([]*model.Redemption, 0)
	for _, r := range v.m.redemptions {
		if keep(r) {
			copied := *r
			result = append(result, &copied)
		}
	}
	return result
}

func (v redemptionView) ByStudent(ctx context.Context, studentID string) ([]*model.Redemption, error) {
	return v.filter(func(r *model.Redemption) bool { return r.StudentID == studentID }), nil
}

func (v redemptionView) ByAdvantage(ctx context.Context, advantageID string) ([]*model.Redemption, error) {
	return v.filter(func(r *model.Redemption) bool { return r.AdvantageID == advantageID }), nil
}

type outboxView struct{ m *Store }

func (v outboxView) find(id int64) *model.OutboxMessage {
	for _, msg := range v.m.outbox {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (v outboxView) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := make([]*model.OutboxMessage, 0)
	for _, msg := range v.m.outbox {
		if len(result) >= limit {
			break
		}
		if msg.Status == model.OutboxStatusPending {
			copied := *msg
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (v outboxView) UpdateStatus(ctx context.Context, id int64, status string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if msg := v.find(id); msg != nil {
		msg.Status = status
		msg.UpdatedAt = v.m.now()
	}
	return nil
}

func (v outboxView) IncrementRetryCount(ctx context.Context, id int64, lastError string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if msg := v.find(id); msg != nil {
		msg.RetryCount++
		msg.LastError = lastError
		msg.UpdatedAt = v.m.now()
	}
	return nil
}

func (v outboxView) MarkAsFailed(ctx context.Context, id int64, lastError string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if msg := v.find(id); msg != nil {
		msg.Status = model.OutboxStatusFailed
		msg.RetryCount++
		msg.LastError = lastError
		msg.UpdatedAt = v.m.now()
	}
	return nil
}

// Messages 返回全部通知消息的副本，便于检查投递状态
func (m *Store) Messages() []*model.OutboxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*model.OutboxMessage, 0, len(m.outbox))
	for _, msg := range m.outbox {
		copied := *msg
		result = append(result, &copied)
	}
	return result
}

// Compile-time check
var (
	_ store.Store              = (*Store)(nil)
	_ store.Tx                 = (*memTx)(nil)
	_ store.AccountStore       = accountView{}
	_ store.AdvantageCatalog   = advantageView{}
	_ store.CompanyDirectory   = companyView{}
	_ store.TransactionLog     = transactionView{}
	_ store.RedemptionRegistry = redemptionView{}
	_ store.OutboxStore        = outboxView{}
)
