package model

import (
	"time"
)

// ============================================================================
// 流水类型常量
// ============================================================================

type EntryKind string

const (
	EntryKindGrant      EntryKind = "GRANT"      // 管理员给教师发放
	EntryKindTransfer   EntryKind = "TRANSFER"   // 教师奖励学生
	EntryKindRedemption EntryKind = "REDEMPTION" // 学生兑换优惠
)

// Subject 流水的主体账户：学生或教师，二者必居其一
//
// 用 kind + id 两列表达，而不是 student_id / teacher_id 两个可空列，
// 这样"恰好一个主体"由结构保证。
type Subject struct {
	Kind      AccountKind `gorm:"column:subject_kind;type:varchar(16);not null;index:idx_entry_subject,priority:1" json:"kind"`
	AccountID string      `gorm:"column:subject_id;type:char(36);not null;index:idx_entry_subject,priority:2" json:"account_id"`
}

func StudentSubject(id string) Subject {
	return Subject{Kind: AccountKindStudent, AccountID: id}
}

func TeacherSubject(id string) Subject {
	return Subject{Kind: AccountKindTeacher, AccountID: id}
}

func (s Subject) IsStudent(id string) bool {
	return s.Kind == AccountKindStudent && s.AccountID == id
}

func (s Subject) IsTeacher(id string) bool {
	return s.Kind == AccountKindTeacher && s.AccountID == id
}

// TransactionEntry 账本流水
//
// 【流水表设计原则】
// 1. 只追加，不修改，不删除
// 2. 转账流水的主体是学生，教师记录在 CounterpartTeacherID
// 3. ToCompanyID 只在兑换流水上出现
// 4. ID 自增，作为插入顺序
type TransactionEntry struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	EntryNo              string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	Kind                 EntryKind `gorm:"type:varchar(16);not null" json:"kind"`
	Quantity             int64     `gorm:"not null" json:"quantity"`
	Subject              Subject   `gorm:"embedded" json:"subject"`
	CounterpartTeacherID *string   `gorm:"type:char(36);index" json:"counterpart_teacher_id,omitempty"`
	ToCompanyID          *string   `gorm:"type:char(36);index" json:"to_company_id,omitempty"`
	Description          string    `gorm:"type:varchar(256)" json:"description"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
}

func (TransactionEntry) TableName() string {
	return "transaction_entry"
}

// Delta 返回该流水对指定账户余额的影响（正数入账，负数出账），不相关返回 0
func (e *TransactionEntry) Delta(account *Account) int64 {
	switch account.Kind {
	case AccountKindTeacher:
		if e.Kind == EntryKindGrant && e.Subject.IsTeacher(account.ID) {
			return e.Quantity
		}
		if e.Kind == EntryKindTransfer && e.CounterpartTeacherID != nil && *e.CounterpartTeacherID == account.ID {
			return -e.Quantity
		}
	case AccountKindStudent:
		if !e.Subject.IsStudent(account.ID) {
			return 0
		}
		switch e.Kind {
		case EntryKindTransfer:
			return e.Quantity
		case EntryKindRedemption:
			return -e.Quantity
		}
	}
	return 0
}
