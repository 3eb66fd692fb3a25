// =============================================================================
// OutreachFlow 主入口
// =============================================================================
// 浏览器自动化触达引擎的命令行入口。
//
// 使用方法:
//
//	outreachflow run --targets targets.csv        # 开新会话
//	outreachflow run --config config.yaml --targets targets.csv
//	outreachflow resume <session-id> --targets targets.csv
//	outreachflow sessions                         # 列出历史会话
//	outreachflow version                          # 显示版本信息
//
// 会话暂停（验证码 / 封锁 / 熔断）时，人工处理完页面后在终端
// 按回车继续。Ctrl-C 安全退出，检查点保留可恢复。
// =============================================================================
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow"
	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/engine/orchestrator"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runSession(os.Args[2:], "")
	case "resume":
		if len(os.Args) < 3 || os.Args[2] == "" {
			fmt.Fprintln(os.Stderr, "resume requires a session id")
			printUsage()
			os.Exit(1)
		}
		runSession(os.Args[3:], os.Args[2])
	case "sessions":
		listSessions(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🚀 run / resume 命令
// =============================================================================

func runSession(args []string, resumeID string) {
	name := "run"
	if resumeID != "" {
		name = "resume"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	targetsPath := fs.String("targets", "targets.csv", "Path to target list CSV")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting outreachflow",
		zap.String("version", Version),
		zap.String("platform", cfg.Platform),
		zap.String("mode", cfg.Mode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := outreachflow.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to assemble engine", zap.Error(err))
	}
	defer engine.Close()

	collab, cleanup, err := buildCollaborators(cfg, *targetsPath, logger)
	if err != nil {
		logger.Fatal("failed to build collaborators", zap.Error(err))
	}
	defer cleanup()

	var orch *orchestrator.Orchestrator
	if resumeID == "" {
		orch, err = engine.NewSession(collab)
	} else {
		orch, err = engine.ResumeSession(ctx, resumeID, collab)
	}
	if err != nil {
		logger.Fatal("failed to prepare session", zap.Error(err))
	}

	// Ctrl-C 安全退出：检查点已覆盖最后一个完成的目标
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("interrupt received, shutting down")
		cancel()
	}()

	// 暂停时人工处理完页面，回车恢复
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			orch.Resume()
		}
	}()

	fmt.Printf("session %s started (ENTER resumes a paused session, Ctrl-C exits)\n", orch.SessionID())

	if err := orch.Run(ctx); err != nil {
		logger.Error("session ended with error", zap.Error(err))
		fmt.Printf("session %s stopped: %v\n", orch.SessionID(), err)
		os.Exit(1)
	}
	fmt.Printf("session %s completed\n", orch.SessionID())
}

// =============================================================================
// 📋 sessions 命令
// =============================================================================

func listSessions(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := zap.NewNop()

	ctx := context.Background()
	engine, err := outreachflow.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	summaries, err := engine.Sessions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	if len(summaries) == 0 {
		fmt.Println("no sessions")
		return
	}

	fmt.Printf("%-36s %-10s %-10s %-8s %s\n", "SESSION", "PLATFORM", "STATUS", "CURSOR", "UPDATED")
	for _, s := range summaries {
		fmt.Printf("%-36s %-10s %-10s %4d/%-4d %s\n",
			s.ID, s.Platform, s.Status, s.Cursor, s.Total,
			s.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
}

// =============================================================================
// 🔧 装配辅助
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("OutreachFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`OutreachFlow - resilient browser outreach engine

Usage:
  outreachflow <command> [options]

Commands:
  run                Start a new session
  resume <id>        Resume a checkpointed session
  sessions           List checkpointed sessions
  version            Show version information
  help               Show this help message

Options for 'run' and 'resume':
  --config <path>    Path to configuration file (YAML)
  --targets <path>   Path to target list CSV (default targets.csv)

While a session is paused (CAPTCHA, block, circuit breaker), solve the
page manually and press ENTER in this terminal to resume.`)
}
