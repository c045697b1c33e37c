package idgen

import (
	"github.com/google/uuid"
)

// ============================================================================
// ID 生成
// ============================================================================
//
// 账户、企业、优惠使用裸 UUID（128 位随机数）作为主键；
// 流水号、兑换号、消息 key 带业务前缀，便于在日志和对账中一眼区分。
//
// ID 在写入前由调用方生成，重试时沿用同一个 ID 不会产生重复记录
// （唯一索引兜底）。
// ============================================================================

const (
	prefixEntry      = "TXN"
	prefixRedemption = "RDM"
	prefixMessage    = "MSG"
)

func NewID() string {
	return uuid.NewString()
}

func GenerateEntryNo() string {
	return prefixEntry + compact()
}

func GenerateRedemptionNo() string {
	return prefixRedemption + compact()
}

func GenerateMessageKey() string {
	return prefixMessage + compact()
}

// compact 返回去掉连字符的 32 位十六进制 UUID
func compact() string {
	u := uuid.New()
	const hextable = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, b := range u {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
