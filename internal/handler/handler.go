package handler

import (
	"campuscoin/internal/service"
	"campuscoin/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService  *service.AccountService
	companyService  *service.CompanyService
	catalogService  *service.CatalogService
	exchangeService *service.ExchangeService
	historyService  *service.HistoryService
}

type Services struct {
	Accounts  *service.AccountService
	Companies *service.CompanyService
	Catalog   *service.CatalogService
	Exchange  *service.ExchangeService
	History   *service.HistoryService
}

// NewHandler 创建处理器实例
func NewHandler(s Services) *Handler {
	return &Handler{
		accountService:  s.Accounts,
		companyService:  s.Companies,
		catalogService:  s.Catalog,
		exchangeService: s.Exchange,
		historyService:  s.History,
	}
}

// ============================================================
// 账户与企业
// ============================================================

// CreateAccount 注册学生或教师
// POST /api/v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req service.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.Register(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, account)
}

// GetAccount 查询账户与余额
// GET /api/v1/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.accountService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, account)
}

// CreateCompany POST /api/v1/companies
func (h *Handler) CreateCompany(c *gin.Context) {
	var req service.RegisterCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	company, err := h.companyService.Register(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, company)
}

// GetCompany GET /api/v1/companies/:id
func (h *Handler) GetCompany(c *gin.Context) {
	company, err := h.companyService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, company)
}

// ============================================================
// 硬币流转
// ============================================================

type GrantRequest struct {
	Amount int64 `json:"amount"`
}

// GrantCoins 管理员给教师发放硬币
// POST /api/v1/admin/teachers/:id/coins
func (h *Handler) GrantCoins(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.exchangeService.GrantCoins(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

type TransferRequest struct {
	StudentID   string `json:"student_id" binding:"required"`
	Quantity    int64  `json:"quantity"`
	Description string `json:"description"`
}

// TransferCoins 教师奖励学生
// POST /api/v1/teachers/:id/transfers
func (h *Handler) TransferCoins(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.exchangeService.TransferCoins(c.Request.Context(), c.Param("id"), req.StudentID, req.Quantity, req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

type RedeemRequest struct {
	AdvantageID string `json:"advantage_id" binding:"required"`
}

// RedeemAdvantage 学生兑换优惠
// POST /api/v1/students/:id/redemptions
//
// 扣款、兑换记录、流水、通知在同一事务中写入；邮件在提交后异步发送，
// 发送失败不影响兑换结果。
func (h *Handler) RedeemAdvantage(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.exchangeService.RedeemAdvantage(c.Request.Context(), c.Param("id"), req.AdvantageID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 历史查询
// ============================================================

// StudentTransactions GET /api/v1/students/:id/transactions
func (h *Handler) StudentTransactions(c *gin.Context) {
	entries, err := h.historyService.StudentEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": entries, "total": len(entries)})
}

// TeacherTransactions GET /api/v1/teachers/:id/transactions
func (h *Handler) TeacherTransactions(c *gin.Context) {
	entries, err := h.historyService.TeacherEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": entries, "total": len(entries)})
}

// CompanyTransactions GET /api/v1/companies/:id/transactions
func (h *Handler) CompanyTransactions(c *gin.Context) {
	entries, err := h.historyService.CompanyEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": entries, "total": len(entries)})
}

// StudentRedemptions GET /api/v1/students/:id/redemptions
func (h *Handler) StudentRedemptions(c *gin.Context) {
	list, err := h.historyService.StudentRedemptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list, "total": len(list)})
}

// AdvantageRedemptions GET /api/v1/advantages/:id/redemptions
func (h *Handler) AdvantageRedemptions(c *gin.Context) {
	list, err := h.historyService.AdvantageRedemptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list, "total": len(list)})
}

// ============================================================
// 优惠目录
// ============================================================

// CreateAdvantage POST /api/v1/companies/:id/advantages
func (h *Handler) CreateAdvantage(c *gin.Context) {
	var req service.AdvantageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	advantage, err := h.catalogService.Create(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, advantage)
}

// ListAdvantages GET /api/v1/companies/:id/advantages
func (h *Handler) ListAdvantages(c *gin.Context) {
	list, err := h.catalogService.ListByCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list, "total": len(list)})
}

// GetAdvantage GET /api/v1/advantages/:id
func (h *Handler) GetAdvantage(c *gin.Context) {
	advantage, err := h.catalogService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, advantage)
}

// UpdateAdvantage PUT /api/v1/advantages/:id
func (h *Handler) UpdateAdvantage(c *gin.Context) {
	var req service.AdvantageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	advantage, err := h.catalogService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, advantage)
}

// DeleteAdvantage DELETE /api/v1/advantages/:id
func (h *Handler) DeleteAdvantage(c *gin.Context) {
	if err := h.catalogService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "优惠已删除"})
}
