package service

import (
	"context"
	"errors"
	"testing"

	"campuscoin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	corp := f.company(t, "acme")

	_, err := f.catalog.Create(ctx, corp.ID, &AdvantageRequest{Name: "Coffee", Price: 0})
	assert.True(t, errors.Is(err, model.ErrInvalidAmount))

	_, err = f.catalog.Create(ctx, corp.ID, &AdvantageRequest{Name: "  ", Price: 5})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = f.catalog.Create(ctx, "nope", &AdvantageRequest{Name: "Coffee", Price: 5})
	assert.True(t, errors.Is(err, model.ErrCompanyNotFound))

	list, err := f.catalog.ListByCompany(ctx, corp.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalog_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	corp := f.company(t, "acme")
	coffee := f.advantage(t, corp.ID, "Coffee", 5)
	f.advantage(t, corp.ID, "Tea", 3)

	updated, err := f.catalog.Update(ctx, coffee.ID, &AdvantageRequest{Name: "Large coffee", Price: 8})
	require.NoError(t, err)
	assert.Equal(t, "Large coffee", updated.Name)
	assert.Equal(t, int64(8), updated.Price)

	_, err = f.catalog.Update(ctx, coffee.ID, &AdvantageRequest{Name: "x", Price: -1})
	assert.True(t, errors.Is(err, model.ErrInvalidAmount))

	require.NoError(t, f.catalog.Delete(ctx, coffee.ID))

	_, err = f.catalog.Get(ctx, coffee.ID)
	assert.True(t, errors.Is(err, model.ErrAdvantageNotFound))
	_, err = f.catalog.Update(ctx, coffee.ID, &AdvantageRequest{Name: "x", Price: 1})
	assert.True(t, errors.Is(err, model.ErrAdvantageNotFound))
	assert.True(t, errors.Is(f.catalog.Delete(ctx, coffee.ID), model.ErrAdvantageNotFound))

	list, err := f.catalog.ListByCompany(ctx, corp.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Tea", list[0].Name)
}

func TestAccount_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, &RegisterAccountRequest{Kind: "ADMIN", Name: "x", Email: "x@y.z"})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = f.accounts.Register(ctx, &RegisterAccountRequest{Kind: model.AccountKindStudent, Name: "x", Email: "not-an-email"})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	a := f.account(t, model.AccountKindStudent, "ana")
	assert.Equal(t, int64(0), a.Balance)

	_, err = f.accounts.Register(ctx, &RegisterAccountRequest{Kind: model.AccountKindTeacher, Name: "dup", Email: "ana@school.edu"})
	assert.Error(t, err)

	_, err = f.accounts.Get(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))

	students, err := f.accounts.ListByKind(ctx, model.AccountKindStudent)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestHistory_ReadsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.account(t, model.AccountKindTeacher, "tom")
	student := f.account(t, model.AccountKindStudent, "ana")
	_, err := f.exchange.GrantCoins(ctx, teacher.ID, 10)
	require.NoError(t, err)
	_, err = f.exchange.TransferCoins(ctx, teacher.ID, student.ID, 4, "quiz")
	require.NoError(t, err)

	first, err := f.history.TeacherEntries(ctx, teacher.ID)
	require.NoError(t, err)
	second, err := f.history.TeacherEntries(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	b1 := f.balance(t, student.ID)
	b2 := f.balance(t, student.ID)
	assert.Equal(t, b1, b2)

	empty, err := f.history.StudentEntries(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
