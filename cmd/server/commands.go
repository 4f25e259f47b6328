package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/config"
	"github.com/tally/internal/db"
	"github.com/tally/internal/handler"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/metrics"
	"github.com/tally/internal/router"
	"github.com/tally/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	dbStatsInterval = 15 * time.Second
)

// ServeCmd 启动 HTTP 服务
type ServeCmd struct {
	Addr string `help:"监听地址，覆盖 LISTEN_ADDR/PORT。"`
}

func (cmd *ServeCmd) Run(app *appContext) error {
	cfg := app.cfg
	gin.SetMode(cfg.GinMode)

	if err := db.EnsureUser(cfg.SeedUsername, cfg.SeedPassword); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	api := handler.NewAPI(db.DB, m, cfg.Location())
	r := router.SetupRouter(api, cfg.SessionSecret, m)

	if config.Watch(func(next config.AppConfig) {
		logger.SetLevel(next.LogLevel)
		logger.L().WithField("level", next.LogLevel).Info("日志级别已更新")
	}) {
		logger.L().WithField("path", cfg.ConfigFile).Info("watching config file")
	}

	addr := cfg.ListenAddr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if m != nil {
		go recordDBStats(ctx, m)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func recordDBStats(ctx context.Context, m *metrics.Metrics) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		logger.L().WithError(err).Warn("db stats unavailable")
		return
	}

	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		m.RecordDBStats(sqlDB.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// UserAddCmd 创建用户
type UserAddCmd struct {
	Username string `required:"" help:"用户名。"`
	Password string `required:"" help:"密码，至少 6 位。"`
}

func (cmd *UserAddCmd) Run(_ *appContext) error {
	user, err := service.NewUserService(db.DB).Register(cmd.Username, cmd.Password)
	if err != nil {
		return err
	}
	fmt.Printf("用户 %s 创建成功 (id=%d)\n", user.Username, user.ID)
	return nil
}

// ExportCmd 导出用户数据
type ExportCmd struct {
	Username string `required:"" help:"要导出的用户名。"`
	Format   string `default:"json" enum:"json,yaml" help:"导出格式 (json|yaml)。"`
	Output   string `short:"o" type:"path" help:"输出文件，缺省写到标准输出。"`
}

func (cmd *ExportCmd) Run(_ *appContext) error {
	user, err := service.NewUserService(db.DB).FindByUsername(cmd.Username)
	if err != nil {
		return err
	}

	snapshot, err := service.NewExportService(db.DB).Export(user.ID)
	if err != nil {
		return err
	}

	data, _, err := service.EncodeSnapshot(snapshot, cmd.Format)
	if err != nil {
		return err
	}

	if cmd.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(cmd.Output, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	logger.L().WithField("path", cmd.Output).Info("export written")
	return nil
}
