package handler

import (
	"campuscoin/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, log zerolog.Logger) *gin.Engine {
	r := gin.New()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		api.POST("/accounts", h.CreateAccount)
		api.GET("/accounts/:id", h.GetAccount)

		companies := api.Group("/companies")
		{
			companies.POST("", h.CreateCompany)
			companies.GET("/:id", h.GetCompany)
			companies.GET("/:id/transactions", h.CompanyTransactions)
			companies.POST("/:id/advantages", h.CreateAdvantage)
			companies.GET("/:id/advantages", h.ListAdvantages)
		}

		advantages := api.Group("/advantages")
		{
			advantages.GET("/:id", h.GetAdvantage)
			advantages.PUT("/:id", h.UpdateAdvantage)
			advantages.DELETE("/:id", h.DeleteAdvantage)
			advantages.GET("/:id/redemptions", h.AdvantageRedemptions)
		}

		// 管理员操作
		api.POST("/admin/teachers/:id/coins", h.GrantCoins)

		teachers := api.Group("/teachers")
		{
			teachers.POST("/:id/transfers", h.TransferCoins)
			teachers.GET("/:id/transactions", h.TeacherTransactions)
		}

		students := api.Group("/students")
		{
			students.POST("/:id/redemptions", h.RedeemAdvantage)
			students.GET("/:id/redemptions", h.StudentRedemptions)
			students.GET("/:id/transactions", h.StudentTransactions)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
