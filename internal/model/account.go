package model

import (
	"time"
)

type AccountKind string

const (
	AccountKindStudent AccountKind = "STUDENT"
	AccountKindTeacher AccountKind = "TEACHER"
)

func (k AccountKind) Valid() bool {
	return k == AccountKindStudent || k == AccountKindTeacher
}

// Account 学生/教师的硬币账户
// 余额只能由兑换服务修改，每次修改必须伴随一条流水
type Account struct {
	ID        string      `gorm:"type:char(36);primaryKey" json:"id"`
	Kind      AccountKind `gorm:"type:varchar(16);index;not null" json:"kind"`
	Name      string      `gorm:"type:varchar(128);not null" json:"name"`
	Email     string      `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Balance   int64       `gorm:"not null;default:0" json:"balance"` // 硬币数，永不为负
	Version   int         `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// Company 合作企业，仅保留发送通知所需字段
type Company struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Email     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Company) TableName() string {
	return "company"
}
