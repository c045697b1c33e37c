package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campuscoin/internal/app"
	"campuscoin/internal/config"
	"campuscoin/internal/handler"
	"campuscoin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("服务异常退出")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		return err
	}

	notifier, err := a.NewNotifier()
	if err != nil {
		return err
	}

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	// 任务退出后才能关闭 Kafka 生产者和数据库连接
	var jobs sync.WaitGroup
	outboxSender := a.NewOutboxSender(notifier)
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		outboxSender.Start(ctx)
	}()

	if cfg.Audit.Enabled {
		auditJob := a.NewLedgerAuditJob()
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			auditJob.Start(ctx)
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(a.Handler(), log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("服务启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	}

	log.Info().Msg("正在关闭服务...")

	// 关闭 HTTP 服务（等待最多5秒），未投递的通知留在 outbox 中，下次启动继续
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务关闭异常")
	}
	cancel()
	jobs.Wait()

	log.Info().Msg("服务已关闭")
	return nil
}
