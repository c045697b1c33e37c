package response

import (
	"errors"
	"fmt"
	"testing"

	"campuscoin/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cases := map[error]int{
		nil:                          CodeSuccess,
		model.ErrInvalidAmount:       CodeInvalidAmount,
		model.ErrInvalidArgument:     CodeParamError,
		model.ErrAccountNotFound:     CodeAccountNotFound,
		model.ErrAdvantageNotFound:   CodeAdvantageNotFound,
		model.ErrCompanyNotFound:     CodeCompanyNotFound,
		model.ErrInsufficientBalance: CodeBalanceNotEnough,
		model.ErrConcurrencyConflict: CodeConcurrencyConflict,
		errors.New("boom"):           CodeServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, CodeOf(err), "%v", err)
	}

	wrapped := fmt.Errorf("%w: balance=3", model.ErrInsufficientBalance)
	assert.Equal(t, CodeBalanceNotEnough, CodeOf(wrapped))
}
