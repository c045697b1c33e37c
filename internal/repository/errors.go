package repository

import (
	"errors"
	"fmt"

	"campuscoin/internal/model"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// translateError 把 MySQL 的死锁、锁等待超时归为并发冲突，唯一键冲突归为参数错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: %s", model.ErrInvalidArgument, myErr.Message)
		}
	}
	return err
}
