package main

import (
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/tally/internal/config"
	"github.com/tally/internal/db"
	"github.com/tally/internal/logger"
)

var cli struct {
	Serve  ServeCmd  `cmd:"" default:"1" help:"启动 HTTP 服务。"`
	User   struct {
		Add UserAddCmd `cmd:"" help:"创建用户并预置默认分类。"`
	} `cmd:"" help:"管理用户。"`
	Export ExportCmd `cmd:"" help:"导出某个用户的全部数据。"`
}

// appContext 在各子命令之间共享已加载的配置
type appContext struct {
	cfg config.AppConfig
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tally"),
		kong.Description("个人活动打卡与积分追踪服务"),
		kong.UsageOnError(),
	)

	// export 默认写标准输出，日志改走标准错误
	toStderr := strings.HasPrefix(ctx.Command(), "export")
	if toStderr {
		logger.SetOutput(os.Stderr)
	}

	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, Service: "tally"}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	if toStderr {
		logger.SetOutput(os.Stderr)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.L().WithError(err).Fatal("failed to initialize database")
	}

	if err := ctx.Run(&appContext{cfg: cfg}); err != nil {
		logger.L().WithError(err).Fatal("command failed")
	}
}
