// menzhen 门诊住院医师排班
// 命令行入口

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/menzhen/menzhen/internal/config"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `menzhen 门诊排班 %s (%s, %s)

用法:
  menzhen preview  -roster roster.json
  menzhen schedule -roster roster.json [-preview edited.json] [-deadline 30s] [-seed 7] [-metrics-addr :9090]
  menzhen edit     -roster roster.json -preview preview.json -kind move|swap -person ID [-day Wednesday|-unassign|-other ID]
  menzhen suggest  -roster roster.json -preview preview.json [-max 5]
  menzhen rules    [-catalog catalog.yaml]
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitCode(err))
	}
	logger.Init(cfg.LoggerConfig())

	// SIGINT/SIGTERM 取消搜索，已有最优方案照常输出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		logger.WithError(err).Str("code", string(apperrors.GetCode(err))).Msg("执行失败")
		os.Exit(apperrors.ExitCode(err))
	}
}

// run 分发子命令
func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintf(stdout, usage, Version, BuildTime, GitCommit)
		return apperrors.InvalidInput("command", "缺少子命令")
	}

	switch args[0] {
	case "preview":
		return runPreview(ctx, cfg, args[1:], stdout)
	case "schedule":
		return runSchedule(ctx, cfg, args[1:], stdout)
	case "edit":
		return runEdit(ctx, cfg, args[1:], stdout)
	case "suggest":
		return runSuggest(ctx, cfg, args[1:], stdout)
	case "rules":
		return runRules(cfg, args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "menzhen %s (%s, %s)\n", Version, BuildTime, GitCommit)
		return nil
	case "help", "-h", "--help":
		fmt.Fprintf(stdout, usage, Version, BuildTime, GitCommit)
		return nil
	}
	return apperrors.InvalidInput("command", fmt.Sprintf("未知子命令 %q", args[0]))
}
