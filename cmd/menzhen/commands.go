package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/menzhen/menzhen/internal/config"
	"github.com/menzhen/menzhen/internal/constraints"
	"github.com/menzhen/menzhen/internal/metrics"
	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler"
	"github.com/menzhen/menzhen/pkg/scheduler/optimizer"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
	"github.com/menzhen/menzhen/pkg/swap"
)

// common 各子命令共用的参数
type common struct {
	roster  string
	catalog string
	preview string
}

func (c *common) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&c.roster, "roster", "", "名单 JSON 文件")
	fs.StringVar(&c.catalog, "catalog", cfg.Scheduler.CatalogPath, "规则目录 YAML，为空使用内置目录")
	fs.StringVar(&c.preview, "preview", "", "R1 预览 JSON 文件")
}

// newRun 加载目录与名单
func (c *common) newRun() (*scheduler.Run, error) {
	if c.roster == "" {
		return nil, apperrors.InvalidInput("roster", "缺少 -roster")
	}
	cat, err := catalog.LoadFile(c.catalog)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(c.roster)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法打开名单")
	}
	defer f.Close()
	in, err := model.DecodeRoster(f)
	if err != nil {
		return nil, err
	}
	return scheduler.New(cat, in)
}

// loadPreview 读取预览；未指定文件时由 run 生成
func (c *common) loadPreview(ctx context.Context, r *scheduler.Run, required bool) (*solver.Preview, error) {
	if c.preview == "" {
		if required {
			return nil, apperrors.InvalidInput("preview", "缺少 -preview")
		}
		return r.Preview(ctx)
	}
	f, err := os.Open(c.preview)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法打开预览")
	}
	defer f.Close()
	return solver.DecodePreview(f)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "参数错误")
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runPreview(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var c common
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	c.register(fs, cfg)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	r, err := c.newRun()
	if err != nil {
		return err
	}
	pv, err := r.Preview(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, pv)
}

func runSchedule(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var c common
	oc := cfg.OptimizerConfig()
	metricsAddr := ""
	if cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Addr
	}

	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	c.register(fs, cfg)
	fs.DurationVar(&oc.Deadline, "deadline", oc.Deadline, "搜索时间预算")
	fs.Int64Var(&oc.Seed, "seed", oc.Seed, "随机种子，0 表示按时间")
	fs.IntVar(&oc.MaxGenerations, "generations", oc.MaxGenerations, "最大代数")
	fs.IntVar(&oc.Workers, "workers", oc.Workers, "并行评估数")
	fs.StringVar(&metricsAddr, "metrics-addr", metricsAddr, "/metrics 监听地址，为空不启动")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var rec *metrics.Recorder
	if metricsAddr != "" {
		rec = metrics.NewRecorder()
		shutdown := serveMetrics(metricsAddr, rec)
		defer shutdown()
	}

	out, err := schedule(ctx, &c, oc, rec)
	rec.RecordRun(err)
	if err != nil {
		return err
	}
	return writeJSON(stdout, out)
}

func schedule(ctx context.Context, c *common, oc optimizer.Config, rec *metrics.Recorder) (*scheduler.Output, error) {
	r, err := c.newRun()
	if err != nil {
		return nil, err
	}
	pv, err := c.loadPreview(ctx, r, false)
	if err != nil {
		return nil, err
	}
	return r.Optimize(ctx, pv, oc, rec)
}

// serveMetrics 后台启动 /metrics，返回的函数优雅关闭
func serveMetrics(addr string, rec *metrics.Recorder) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("监控端点启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("监控端点启动失败")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("监控端点关闭失败")
		}
	}
}

func runEdit(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var (
		c     common
		edit  swap.Edit
		kind  string
		day   string
		apply bool
	)
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	c.register(fs, cfg)
	fs.StringVar(&kind, "kind", string(swap.KindMove), "move 或 swap")
	fs.StringVar(&edit.PersonID, "person", "", "R1 人员编号")
	fs.StringVar(&day, "day", "", "move 的目标日期")
	fs.BoolVar(&edit.Unassign, "unassign", false, "move 到未分配")
	fs.StringVar(&edit.OtherID, "other", "", "swap 的另一方")
	fs.BoolVar(&apply, "apply", false, "只输出编辑后的预览")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	edit.Kind = swap.Kind(kind)
	if edit.Kind == swap.KindMove && !edit.Unassign {
		d, err := model.ParseDay(day)
		if err != nil {
			return apperrors.InvalidInput("day", err.Error())
		}
		edit.Day = d
	}

	r, err := c.newRun()
	if err != nil {
		return err
	}
	pv, err := c.loadPreview(ctx, r, true)
	if err != nil {
		return err
	}
	ev, err := r.Edits().Check(pv, edit)
	if err != nil {
		return err
	}
	if apply {
		return writeJSON(stdout, ev.Preview)
	}
	return writeJSON(stdout, ev)
}

func runSuggest(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var c common
	opts := swap.DefaultRecommendOptions()
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	c.register(fs, cfg)
	fs.IntVar(&opts.MaxRecommendations, "max", opts.MaxRecommendations, "最大推荐数量")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	r, err := c.newRun()
	if err != nil {
		return err
	}
	pv, err := c.loadPreview(ctx, r, false)
	if err != nil {
		return err
	}
	recs, err := swap.NewRecommender(r.Edits()).Suggest(pv, opts)
	if err != nil {
		return err
	}
	return writeJSON(stdout, recs)
}

func runRules(cfg *config.Config, args []string, stdout io.Writer) error {
	var c common
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	c.register(fs, cfg)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cat, err := catalog.LoadFile(c.catalog)
	if err != nil {
		return err
	}
	return writeJSON(stdout, constraints.GetLibrary(cat))
}
