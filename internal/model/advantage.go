package model

import (
	"time"

	"gorm.io/gorm"
)

// Advantage 企业提供的可兑换优惠
//
// 删除采用墓碑（软删除）：已有的兑换记录和流水仍然引用该 ID，
// 历史不可因为目录变化而失效。
type Advantage struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID string         `gorm:"type:char(36);index;not null" json:"company_id"`
	Name      string         `gorm:"type:varchar(128);not null" json:"name"`
	Price     int64          `gorm:"not null" json:"price"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Advantage) TableName() string {
	return "advantage"
}

// Redemption 学生兑换记录，用于证明学生拥有该优惠，写入后不再修改
type Redemption struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	RedemptionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"redemption_no"`
	StudentID    string    `gorm:"type:char(36);index;not null" json:"student_id"`
	AdvantageID  string    `gorm:"type:char(36);index;not null" json:"advantage_id"`
	EntryNo      string    `gorm:"type:varchar(64);not null" json:"entry_no"` // 对应的扣款流水
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (Redemption) TableName() string {
	return "student_advantage"
}
