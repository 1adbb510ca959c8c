package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/kamishop/internal/app"
	"github.com/kamishop/internal/config"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.JWT.SecretKey) {
			stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
	} else if isWeakSecret(cfg.JWT.SecretKey) {
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 准备 schema：幂等建表 + 移除旧 (product_id, code) 唯一索引。
	// 业务路径不做任何按错误补救式迁移，schema 演进只经过这里。
	if err := models.EnsureSchema(models.DB); err != nil {
		stdLog.Fatalf("数据库 schema 准备失败: %v", err)
	}

	// 初始化默认管理员账号（引导凭据由配置注入，不读环境变量）
	if cfg.Server.Mode == "release" && isDefaultBootstrapPassword(cfg.Admin.BootstrapPassword) {
		stdLog.Printf("警告: admin.bootstrap_password 仍为默认值，已跳过默认管理员初始化")
	} else if err := models.InitDefaultAdmin(cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "██╗  ██╗ █████╗ ███╗   ███╗██╗███████╗██╗  ██╗ ██████╗ ██████╗ " + ansiReset)
	fmt.Println(ansiCyan + "██║ ██╔╝██╔══██╗████╗ ████║██║██╔════╝██║  ██║██╔═══██╗██╔══██╗" + ansiReset)
	fmt.Println(ansiCyan + "█████╔╝ ███████║██╔████╔██║██║███████╗███████║██║   ██║██████╔╝" + ansiReset)
	fmt.Println(ansiCyan + "██╔═██╗ ██╔══██║██║╚██╔╝██║██║╚════██║██╔══██║██║   ██║██╔═══╝ " + ansiReset)
	fmt.Println(ansiCyan + "██║  ██╗██║  ██║██║ ╚═╝ ██║██║███████║██║  ██║╚██████╔╝██║     " + ansiReset)
	fmt.Println(ansiCyan + "╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚═╝     " + ansiReset)
	fmt.Println(ansiBold + "Kamishop API" + ansiReset + ansiDim + " · 卡密商店后端服务" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}

func isDefaultBootstrapPassword(password string) bool {
	return password == "" || password == "admin123456"
}
