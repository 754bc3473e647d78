package stats

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// Statistics 排班输出中的统计摘要
//
// coverage_rate 与 health_check_coverage 为比例（0 到 1），不是百分数。
type Statistics struct {
	CoverageRate        float64                   `json:"coverage_rate"`
	HealthCheckCoverage float64                   `json:"health_check_coverage"`
	Filled              int                       `json:"filled"`
	Required            int                       `json:"required"`
	Daily               map[model.Day]DayCoverage `json:"daily"`
	Uncovered           []model.Slot              `json:"uncovered"`
	Workload            *FairnessMetrics          `json:"workload"`
}

// Compute 计算方案统计
func Compute(g *grid.Grid, roster *model.Roster) *Statistics {
	cov := NewCoverageAnalyzer().Analyze(g)
	return &Statistics{
		CoverageRate:        cov.CoverageRate,
		HealthCheckCoverage: cov.HealthCheckCoverage,
		Filled:              cov.Filled,
		Required:            cov.Required,
		Daily:               cov.Daily,
		Uncovered:           cov.Uncovered,
		Workload:            NewFairnessAnalyzer().Analyze(g, roster),
	}
}
