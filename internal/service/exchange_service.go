package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"campuscoin/internal/config"
	"campuscoin/internal/infrastructure/lock"
	"campuscoin/internal/metrics"
	"campuscoin/internal/model"
	"campuscoin/internal/store"
	"campuscoin/pkg/idgen"

	"github.com/rs/zerolog"
)

const (
	opGrant    = "grant"
	opTransfer = "transfer"
	opRedeem   = "redeem"

	grantDescription = "granted"

	redeemSubject     = "Advantage redeemed"
	studentRedeemBody = "Hello %s, your advantage %s was redeemed successfully!"
	companyRedeemBody = "Hello %s, your advantage %s was redeemed by %s successfully!"
)

// OutboxSignaler 在事务提交后唤醒通知投递任务
type OutboxSignaler interface {
	Signal()
}

// ExchangeService 是唯一可以修改余额的组件
//
// 每笔操作：参数校验 -> 账户加锁 -> 存储事务{锁定读取、校验、改余额、写流水、写通知} -> 提交 -> 唤醒投递
//
// 【并发控制】
// 1. 账户锁：按账户 ID 升序加锁，同一账户上的操作串行
// 2. 事务内 FOR UPDATE + version 条件更新，锁失效时仍不会丢失更新
// 3. 事务本身保证全部成功或全部回滚
// 遇到 ErrConcurrencyConflict 时整笔操作按线性退避重试。
type ExchangeService struct {
	store      store.Store
	locker     lock.Locker
	signaler   OutboxSignaler
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func NewExchangeService(st store.Store, locker lock.Locker, cfg config.LedgerConfig, log zerolog.Logger) *ExchangeService {
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = 0
	}
	return &ExchangeService{
		store:      st,
		locker:     locker,
		maxRetries: cfg.MaxConflictRetries,
		backoff:    cfg.RetryBackoff,
		now:        time.Now,
		log:        log.With().Str("component", "ExchangeService").Logger(),
	}
}

// SetSignaler 注册提交后的回调，未注册时通知只能等投递任务轮询
func (s *ExchangeService) SetSignaler(signaler OutboxSignaler) {
	s.signaler = signaler
}

type GrantResult struct {
	Teacher *model.Account          `json:"teacher"`
	Entry   *model.TransactionEntry `json:"entry"`
}

type TransferResult struct {
	Teacher *model.Account          `json:"teacher"`
	Student *model.Account          `json:"student"`
	Entry   *model.TransactionEntry `json:"entry"`
}

type RedeemResult struct {
	Student    *model.Account          `json:"student"`
	Advantage  *model.Advantage        `json:"advantage"`
	Redemption *model.Redemption       `json:"redemption"`
	Entry      *model.TransactionEntry `json:"entry"`
}

// ============================================================================
// 发放：管理员给教师发硬币
// ============================================================================

func (s *ExchangeService) GrantCoins(ctx context.Context, teacherID string, amount int64) (*GrantResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount=%d", model.ErrInvalidAmount, amount)
	}

	var result *GrantResult
	err := s.execute(ctx, opGrant, []string{teacherID}, func(ctx context.Context, tx store.Tx) error {
		teacher, err := s.lockAccount(ctx, tx, teacherID, model.AccountKindTeacher)
		if err != nil {
			return err
		}
		if teacher.Balance > math.MaxInt64-amount {
			return fmt.Errorf("%w: 余额溢出 teacher=%s", model.ErrInvalidAmount, teacherID)
		}

		updated, err := tx.SetBalance(ctx, teacherID, teacher.Balance+amount, teacher.Version)
		if err != nil {
			return err
		}

		entry := &model.TransactionEntry{
			EntryNo:     idgen.GenerateEntryNo(),
			Kind:        model.EntryKindGrant,
			Quantity:    amount,
			Subject:     model.TeacherSubject(teacherID),
			Description: grantDescription,
			CreatedAt:   s.now(),
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		result = &GrantResult{Teacher: updated, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("teacher_id", teacherID).
		Int64("amount", amount).
		Int64("balance", result.Teacher.Balance).
		Str("entry_no", result.Entry.EntryNo).
		Msg("发放成功")
	return result, nil
}

// ============================================================================
// 转账：教师奖励学生
// ============================================================================

func (s *ExchangeService) TransferCoins(ctx context.Context, teacherID, studentID string, quantity int64, description string) (*TransferResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity=%d", model.ErrInvalidAmount, quantity)
	}
	// 同一个账户不可能既是教师又是学生
	if teacherID == studentID {
		return nil, fmt.Errorf("%w: 教师与学生为同一账户 id=%s", model.ErrAccountNotFound, teacherID)
	}

	var result *TransferResult
	err := s.execute(ctx, opTransfer, []string{teacherID, studentID}, func(ctx context.Context, tx store.Tx) error {
		// 事务内也按 ID 升序锁行，与账户锁顺序一致
		kinds := map[string]model.AccountKind{
			teacherID: model.AccountKindTeacher,
			studentID: model.AccountKindStudent,
		}
		ids := []string{teacherID, studentID}
		sort.Strings(ids)

		locked := make(map[string]*model.Account, 2)
		for _, id := range ids {
			account, err := s.lockAccount(ctx, tx, id, kinds[id])
			if err != nil {
				return err
			}
			locked[id] = account
		}
		teacher, student := locked[teacherID], locked[studentID]

		if teacher.Balance < quantity {
			return fmt.Errorf("%w: teacher=%s balance=%d need=%d",
				model.ErrInsufficientBalance, teacherID, teacher.Balance, quantity)
		}
		if student.Balance > math.MaxInt64-quantity {
			return fmt.Errorf("%w: 余额溢出 student=%s", model.ErrInvalidAmount, studentID)
		}

		updatedTeacher, err := tx.SetBalance(ctx, teacherID, teacher.Balance-quantity, teacher.Version)
		if err != nil {
			return err
		}
		updatedStudent, err := tx.SetBalance(ctx, studentID, student.Balance+quantity, student.Version)
		if err != nil {
			return err
		}

		counterpart := teacherID
		entry := &model.TransactionEntry{
			EntryNo:              idgen.GenerateEntryNo(),
			Kind:                 model.EntryKindTransfer,
			Quantity:             quantity,
			Subject:              model.StudentSubject(studentID),
			CounterpartTeacherID: &counterpart,
			Description:          description,
			CreatedAt:            s.now(),
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		result = &TransferResult{Teacher: updatedTeacher, Student: updatedStudent, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("teacher_id", teacherID).
		Str("student_id", studentID).
		Int64("quantity", quantity).
		Str("entry_no", result.Entry.EntryNo).
		Msg("转账成功")
	return result, nil
}

// ============================================================================
// 兑换：学生用硬币兑换企业优惠
// ============================================================================

func (s *ExchangeService) RedeemAdvantage(ctx context.Context, studentID, advantageID string) (*RedeemResult, error) {
	var result *RedeemResult
	err := s.execute(ctx, opRedeem, []string{studentID}, func(ctx context.Context, tx store.Tx) error {
		student, err := s.lockAccount(ctx, tx, studentID, model.AccountKindStudent)
		if err != nil {
			return err
		}

		advantage, err := tx.GetAdvantage(ctx, advantageID)
		if err != nil {
			return err
		}

		if student.Balance < advantage.Price {
			return fmt.Errorf("%w: student=%s balance=%d price=%d",
				model.ErrInsufficientBalance, studentID, student.Balance, advantage.Price)
		}

		updated, err := tx.SetBalance(ctx, studentID, student.Balance-advantage.Price, student.Version)
		if err != nil {
			return err
		}

		now := s.now()
		companyID := advantage.CompanyID
		entry := &model.TransactionEntry{
			EntryNo:     idgen.GenerateEntryNo(),
			Kind:        model.EntryKindRedemption,
			Quantity:    advantage.Price,
			Subject:     model.StudentSubject(studentID),
			ToCompanyID: &companyID,
			Description: advantage.Name,
			CreatedAt:   now,
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		redemption := &model.Redemption{
			RedemptionNo: idgen.GenerateRedemptionNo(),
			StudentID:    studentID,
			AdvantageID:  advantageID,
			EntryNo:      entry.EntryNo,
			CreatedAt:    now,
		}
		if err := tx.AppendRedemption(ctx, redemption); err != nil {
			return fmt.Errorf("记录兑换失败: %w", err)
		}

		if err := s.enqueueRedeemNotifications(ctx, tx, updated, advantage); err != nil {
			return err
		}

		result = &RedeemResult{Student: updated, Advantage: advantage, Redemption: redemption, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("student_id", studentID).
		Str("advantage_id", advantageID).
		Int64("price", result.Advantage.Price).
		Str("redemption_no", result.Redemption.RedemptionNo).
		Msg("兑换成功")
	return result, nil
}

// enqueueRedeemNotifications 与账本变更同一事务写入 outbox，提交后才会被投递
func (s *ExchangeService) enqueueRedeemNotifications(ctx context.Context, tx store.Tx, student *model.Account, advantage *model.Advantage) error {
	msg := &model.OutboxMessage{
		MessageKey: idgen.GenerateMessageKey(),
		Recipient:  student.Email,
		Subject:    redeemSubject,
		Body:       fmt.Sprintf(studentRedeemBody, student.Name, advantage.Name),
		Status:     model.OutboxStatusPending,
	}
	if err := tx.EnqueueNotification(ctx, msg); err != nil {
		return fmt.Errorf("写入通知失败: %w", err)
	}

	company, err := tx.GetCompany(ctx, advantage.CompanyID)
	if errors.Is(err, model.ErrCompanyNotFound) {
		s.log.Warn().
			Str("company_id", advantage.CompanyID).
			Str("advantage_id", advantage.ID).
			Msg("企业不存在，跳过企业通知")
		return nil
	}
	if err != nil {
		return err
	}

	msg = &model.OutboxMessage{
		MessageKey: idgen.GenerateMessageKey(),
		Recipient:  company.Email,
		Subject:    redeemSubject,
		Body:       fmt.Sprintf(companyRedeemBody, company.Name, advantage.Name, student.Name),
		Status:     model.OutboxStatusPending,
	}
	if err := tx.EnqueueNotification(ctx, msg); err != nil {
		return fmt.Errorf("写入通知失败: %w", err)
	}
	return nil
}

// lockAccount 锁定读取账户并校验类型，类型不符按不存在处理
func (s *ExchangeService) lockAccount(ctx context.Context, tx store.Tx, id string, kind model.AccountKind) (*model.Account, error) {
	account, err := tx.GetAccountForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Kind != kind {
		return nil, fmt.Errorf("%w: id=%s 不是 %s 账户", model.ErrAccountNotFound, id, kind)
	}
	return account, nil
}

// ============================================================================
// 执行框架：加锁、事务、冲突重试
// ============================================================================

// txFunc 收到的 ctx 已与调用方取消解绑
type txFunc func(ctx context.Context, tx store.Tx) error

func (s *ExchangeService) execute(ctx context.Context, op string, accountIDs []string, fn txFunc) error {
	start := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, accountIDs, fn)
		if err == nil || !errors.Is(err, model.ErrConcurrencyConflict) || attempt >= s.maxRetries {
			break
		}

		metrics.RecordConflictRetry(op)
		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("并发冲突，重试")

		wait := s.backoff * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			metrics.RecordExchange(op, outcome(err), time.Since(start))
			return err
		case <-time.After(wait):
		}
	}

	metrics.RecordExchange(op, outcome(err), time.Since(start))
	if err != nil {
		return err
	}

	if s.signaler != nil && op == opRedeem {
		s.signaler.Signal()
	}
	return nil
}

func (s *ExchangeService) attempt(ctx context.Context, accountIDs []string, fn txFunc) error {
	release, err := s.locker.Acquire(ctx, accountIDs...)
	if err != nil {
		return err
	}
	defer release()

	// 事务一旦开始就不再受调用方取消影响，避免提交到一半被中断
	txCtx := context.WithoutCancel(ctx)
	return s.store.Transact(txCtx, func(tx store.Tx) error {
		return fn(txCtx, tx)
	})
}

// outcome 把错误归类为指标标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInvalidAmount), errors.Is(err, model.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrAdvantageNotFound),
		errors.Is(err, model.ErrCompanyNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, model.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
