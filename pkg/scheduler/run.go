// Package scheduler 串联名单校验、R1 预排、遗传算法搜索与结果打包
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/optimizer"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
	"github.com/menzhen/menzhen/pkg/stats"
	"github.com/menzhen/menzhen/pkg/swap"
	"github.com/menzhen/menzhen/pkg/validator"
)

// Violations 违反项字符串，格式为 "[rule_id] message"
type Violations struct {
	Hard []string `json:"hard_violations"`
	Soft []string `json:"soft_violations"`
}

// Output 排班输出
type Output struct {
	RunID        string                      `json:"run_id"`
	Schedule     grid.Schedule               `json:"schedule"`
	HealthChecks map[string][]model.SlotRef  `json:"health_checks"`
	Statistics   *stats.Statistics           `json:"statistics"`
	Violations   Violations                  `json:"violations"`
	Fitness      float64                     `json:"fitness"`
	Generations  int                         `json:"generations"`
	StopReason   optimizer.StopReason        `json:"stop_reason"`
	R4Fixed      map[string]solver.FixedEcho `json:"r4_fixed"`
	Warnings     []string                    `json:"warnings,omitempty"`
	Duration     time.Duration               `json:"duration"`
}

// Run 一次排班请求的状态，不在请求之间共享
type Run struct {
	ID       string
	catalog  *catalog.Catalog
	roster   *model.Roster
	layout   *grid.Layout
	assigner *solver.PreAssigner
	edits    *swap.Evaluator
	warnings []string
	logger   *logger.SchedulerLogger
}

// New 校验名单并创建排班请求
func New(cat *catalog.Catalog, in model.RosterInput) (*Run, error) {
	if cat == nil {
		return nil, apperrors.ConfigError("未加载规则目录")
	}
	roster, warnings, err := validator.NewRosterValidator(cat).Validate(in)
	if err != nil {
		return nil, err
	}

	r := &Run{
		ID:       uuid.New().String(),
		catalog:  cat,
		roster:   roster,
		layout:   grid.NewLayout(cat),
		warnings: warnings,
		logger:   logger.NewSchedulerLogger(),
	}
	r.assigner = solver.NewPreAssigner(cat, roster, r.layout)
	r.edits = swap.NewEvaluator(cat, roster, r.layout)

	for _, w := range warnings {
		logger.Warn().Str("run_id", r.ID).Msg(w)
	}
	return r, nil
}

// Roster 返回已校验的名单
func (r *Run) Roster() *model.Roster { return r.roster }

// Warnings 返回名单警告
func (r *Run) Warnings() []string { return r.warnings }

// Edits 返回预览编辑评估器
func (r *Run) Edits() *swap.Evaluator { return r.edits }

// Context 在 ctx 中附加本次请求编号
func (r *Run) Context(ctx context.Context) context.Context {
	return logger.NewContext(ctx, r.ID)
}

// Preview 生成 R1 预排
func (r *Run) Preview(ctx context.Context) (*solver.Preview, error) {
	pv, err := r.assigner.Assign(r.Context(ctx))
	if err != nil {
		return nil, contextError(err)
	}
	return pv, nil
}

// Optimize 以预览（可能经过编辑）为初始方案执行搜索
//
// 名单无法满足强制指定班、或预览留有未排 R1 人员时返回不可行错误；
// 搜索未找到完美方案不是错误，剩余违反项写入输出。
func (r *Run) Optimize(ctx context.Context, pv *solver.Preview, cfg optimizer.Config, obs optimizer.Observer) (*Output, error) {
	ctx = r.Context(ctx)
	start := time.Now()

	if err := solver.CheckFeasible(r.catalog, r.roster); err != nil {
		r.logger.Infeasible(r.ID, apperrors.Unsatisfiable(err))
		return nil, err
	}
	if pv == nil {
		var err error
		if pv, err = r.Preview(ctx); err != nil {
			return nil, err
		}
	}
	if len(pv.Unplaced) > 0 {
		items := make([]string, 0, len(pv.Unplaced))
		for _, id := range pv.Unplaced {
			items = append(items, fmt.Sprintf("%s is not placed", id))
		}
		r.logger.Infeasible(r.ID, items)
		return nil, apperrors.Infeasible("预览中仍有未排的 R1 人员", items)
	}
	if err := r.edits.ValidateEdits(pv); err != nil {
		return nil, err
	}

	base, err := r.assigner.Base(pv)
	if err != nil {
		return nil, err
	}

	evaluator := fitness.NewEvaluator(r.catalog, r.roster, builtin.NewManager(r.catalog))
	opt := optimizer.NewGeneticOptimizer(cfg, evaluator)
	opt.SetObserver(obs)

	res, err := opt.Optimize(ctx, base)
	if err != nil {
		return nil, contextError(err)
	}

	out := &Output{
		RunID:        r.ID,
		Schedule:     res.Grid.Schedule(),
		HealthChecks: healthChecks(res.Grid),
		Statistics:   stats.Compute(res.Grid, r.roster),
		Violations: Violations{
			Hard: res.Fitness.HardStrings(),
			Soft: res.Fitness.SoftStrings(),
		},
		Fitness:     res.Fitness.Fitness,
		Generations: res.Generations,
		StopReason:  res.StopReason,
		R4Fixed:     r.assigner.FixedEcho(res.Grid),
		Warnings:    r.warnings,
		Duration:    time.Since(start),
	}
	r.logger.RunComplete(r.ID, out.Duration, out.Fitness, len(out.Violations.Hard), len(out.Violations.Soft))
	return out, nil
}

// healthChecks 按人员汇总体检格子，布局顺序即时间顺序
func healthChecks(g *grid.Grid) map[string][]model.SlotRef {
	out := make(map[string][]model.SlotRef)
	for i := 0; i < g.Len(); i++ {
		c := g.Cell(i)
		occ := g.Occupant(i)
		if !c.HealthCheck || occ == "" {
			continue
		}
		out[occ] = append(out[occ], model.SlotRef{Day: c.Slot.Day, Time: c.Slot.Time, Room: c.Slot.Room})
	}
	return out
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeTimeout, "排班超时")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.CodeTimeout, "排班已取消")
	}
	return err
}
