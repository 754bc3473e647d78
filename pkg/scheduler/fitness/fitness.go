// Package fitness 计算排班方案的适应度
package fitness

import (
	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// Coverage 必排格子覆盖情况
type Coverage struct {
	ClinicFilled        int     `json:"clinic_filled"`
	ClinicRequired      int     `json:"clinic_required"`
	HealthCheckFilled   int     `json:"health_check_filled"`
	HealthCheckRequired int     `json:"health_check_required"`
	ClinicRate          float64 `json:"clinic_rate"`
	HealthCheckRate     float64 `json:"health_check_rate"`
}

// Result 评估结果
type Result struct {
	Fitness        float64                `json:"fitness"`
	CoverageTerm   float64                `json:"coverage_term"`
	Coverage       Coverage               `json:"coverage"`
	HardPenalty    float64                `json:"hard_penalty"`
	SoftPenalty    float64                `json:"soft_penalty"`
	HardViolations []constraint.Violation `json:"-"`
	SoftViolations []constraint.Violation `json:"-"`
}

// Feasible 无硬违反
func (r *Result) Feasible() bool { return len(r.HardViolations) == 0 }

// HardStrings 返回硬违反字符串
func (r *Result) HardStrings() []string { return constraint.Strings(r.HardViolations) }

// SoftStrings 返回软违反字符串
func (r *Result) SoftStrings() []string { return constraint.Strings(r.SoftViolations) }

// Better 适应度更高者更优，相同时硬违反少者更优
func (r *Result) Better(other *Result) bool {
	if other == nil {
		return true
	}
	if r.Fitness != other.Fitness {
		return r.Fitness > other.Fitness
	}
	return len(r.HardViolations) < len(other.HardViolations)
}

// Evaluator 适应度评估器，可并发使用
type Evaluator struct {
	catalog *catalog.Catalog
	roster  *model.Roster
	rules   *constraint.Manager
}

// NewEvaluator 创建评估器
func NewEvaluator(cat *catalog.Catalog, roster *model.Roster, rules *constraint.Manager) *Evaluator {
	return &Evaluator{catalog: cat, roster: roster, rules: rules}
}

// Rules 返回规则管理器
func (e *Evaluator) Rules() *constraint.Manager { return e.rules }

// Catalog 返回规则目录
func (e *Evaluator) Catalog() *catalog.Catalog { return e.catalog }

// Roster 返回名单
func (e *Evaluator) Roster() *model.Roster { return e.roster }

// Evaluate 评估方案；不修改 g
func (e *Evaluator) Evaluate(g *grid.Grid) *Result {
	ctx := constraint.NewContext(e.catalog, e.roster, g)
	res := e.rules.Evaluate(ctx)

	cov := Measure(g)
	term := e.catalog.Weights.Coverage * (0.5*cov.ClinicRate + 0.5*cov.HealthCheckRate)

	return &Result{
		Fitness:        term - res.HardPenalty - res.SoftPenalty,
		CoverageTerm:   term,
		Coverage:       cov,
		HardPenalty:    res.HardPenalty,
		SoftPenalty:    res.SoftPenalty,
		HardViolations: res.HardViolations,
		SoftViolations: res.SoftViolations,
	}
}

// Measure 统计必排格子覆盖率；某类没有必排格子时覆盖率为 1
func Measure(g *grid.Grid) Coverage {
	var c Coverage
	for i := 0; i < g.Len(); i++ {
		cell := g.Cell(i)
		if !cell.Required {
			continue
		}
		filled := !g.IsEmpty(i)
		if cell.HealthCheck {
			c.HealthCheckRequired++
			if filled {
				c.HealthCheckFilled++
			}
			continue
		}
		c.ClinicRequired++
		if filled {
			c.ClinicFilled++
		}
	}
	c.ClinicRate = rate(c.ClinicFilled, c.ClinicRequired)
	c.HealthCheckRate = rate(c.HealthCheckFilled, c.HealthCheckRequired)
	return c
}

func rate(filled, required int) float64 {
	if required == 0 {
		return 1
	}
	return float64(filled) / float64(required)
}
