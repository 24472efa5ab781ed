package main

import (
	"flag"
	"log"
	"path/filepath"

	"quiz_engine/internal/app"
	"quiz_engine/internal/config"
	"quiz_engine/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application, err := app.NewApp(cfg, filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		_ = logger.Log.Sync()
		return
	}

	application.Run()
}
