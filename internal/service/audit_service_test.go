package service

import (
	"context"
	"testing"

	"campuscoin/internal/model"
	"campuscoin/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_DetectsBalanceWithoutEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.account(t, model.AccountKindTeacher, "tom")
	student := f.account(t, model.AccountKindStudent, "ana")
	_, err := f.exchange.GrantCoins(ctx, teacher.ID, 10)
	require.NoError(t, err)
	_, err = f.exchange.TransferCoins(ctx, teacher.ID, student.ID, 4, "")
	require.NoError(t, err)
	f.assertAuditClean(t)

	// 绕过兑换服务直接改余额，不写流水
	err = f.st.Transact(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, student.ID)
		if err != nil {
			return err
		}
		_, err = tx.SetBalance(ctx, student.ID, a.Balance+5, a.Version)
		return err
	})
	require.NoError(t, err)

	d, err := f.audit.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, d, 1)
	assert.Equal(t, student.ID, d[0].AccountID)
	assert.Equal(t, int64(9), d[0].Stored)
	assert.Equal(t, int64(4), d[0].Expected)
	assert.Equal(t, ReasonMismatch, d[0].Reason)
}

func TestAudit_DetectsNegativeBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.account(t, model.AccountKindTeacher, "tom")

	err := f.st.Transact(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, teacher.ID)
		if err != nil {
			return err
		}
		_, err = tx.SetBalance(ctx, teacher.ID, -3, a.Version)
		return err
	})
	require.NoError(t, err)

	d, err := f.audit.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, d, 2)
	assert.Equal(t, ReasonMismatch, d[0].Reason)
	assert.Equal(t, ReasonNegativeBalance, d[1].Reason)
}
