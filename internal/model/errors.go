package model

import "errors"

// 账本错误分类，调用方统一使用 errors.Is 判断
var (
	ErrInvalidAmount       = errors.New("金额必须大于0")
	ErrInvalidArgument     = errors.New("参数不合法")
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrAdvantageNotFound   = errors.New("优惠不存在")
	ErrCompanyNotFound     = errors.New("合作企业不存在")
	ErrInsufficientBalance = errors.New("余额不足")

	// ErrConcurrencyConflict 为瞬时错误，整笔操作可安全重试
	ErrConcurrencyConflict = errors.New("并发冲突，请重试")

	// ErrNotifierFailure 只记录日志，不影响账本结果
	ErrNotifierFailure = errors.New("通知发送失败")

	// ErrNotifierUnavailable 下游熔断中，本次未真正发送，不计入重试次数
	ErrNotifierUnavailable = errors.New("通知通道熔断中")
)
