package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campuscoin/internal/app"
	"campuscoin/internal/config"
	"campuscoin/pkg/logger"

	"github.com/spf13/cobra"
)

const appName = "ledgerctl"

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "校园币账本运维工具",
		Long:          "直接连接账本数据库执行迁移、发放、查询和对账。写操作与 HTTP 服务走同一套锁和事务。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newGrantCmd(),
		newBalanceCmd(),
		newHistoryCmd(),
		newAuditCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errDiscrepancies) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// openApp 按全局参数加载配置并组装依赖，调用方负责 Close
func openApp() (*app.App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(logLevel, true)
	return app.New(cfg, log)
}
