package response

import (
	"errors"
	"net/http"

	"campuscoin/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

// 业务错误码，与 model 中的错误一一对应
const (
	CodeInvalidAmount       = 1001
	CodeAccountNotFound     = 1002
	CodeAdvantageNotFound   = 1003
	CodeCompanyNotFound     = 1004
	CodeBalanceNotEnough    = 1005
	CodeConcurrencyConflict = 1006
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// FromError 把账本错误映射为业务码；未知错误不向调用方暴露细节
func FromError(c *gin.Context, err error) {
	code := CodeOf(err)
	if code == CodeServerError {
		_ = c.Error(err)
		ServerError(c, "服务器内部错误")
		return
	}
	Error(c, code, err.Error())
}

func CodeOf(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, model.ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, model.ErrInvalidArgument):
		return CodeParamError
	case errors.Is(err, model.ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, model.ErrAdvantageNotFound):
		return CodeAdvantageNotFound
	case errors.Is(err, model.ErrCompanyNotFound):
		return CodeCompanyNotFound
	case errors.Is(err, model.ErrInsufficientBalance):
		return CodeBalanceNotEnough
	case errors.Is(err, model.ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	default:
		return CodeServerError
	}
}
