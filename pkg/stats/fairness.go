package stats

import (
	"math"
	"sort"

	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// FairnessMetrics 工作量公平性指标
type FairnessMetrics struct {
	// 整体工作量
	WorkloadGini      float64 `json:"workload_gini"`       // 工作量基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadStdDev    float64 `json:"workload_std_dev"`    // 工作量标准差
	AvgSlotsPerPerson float64 `json:"avg_slots_per_person"`

	// 按层级统计；同层级内比较才有意义
	ByTier map[model.Tier]TierWorkload `json:"by_tier"`

	// 人员级别统计
	PersonStats []PersonStat `json:"person_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// TierWorkload 层级工作量
type TierWorkload struct {
	Persons  int     `json:"persons"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Gini     float64 `json:"gini"`
}

// PersonStat 人员统计
type PersonStat struct {
	PersonID     string     `json:"person_id"`
	Name         string     `json:"name"`
	Tier         model.Tier `json:"level"`
	Clinics      int        `json:"clinics"`
	HealthChecks int        `json:"health_checks"`
	Total        int        `json:"total"`
	Deviation    float64    `json:"deviation"` // 与同层级平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班工作量；名单中没有任何格子的人员计为 0
func (f *FairnessAnalyzer) Analyze(g *grid.Grid, roster *model.Roster) *FairnessMetrics {
	if roster == nil || roster.Len() == 0 {
		return &FairnessMetrics{
			ByTier:               make(map[model.Tier]TierWorkload),
			PersonStats:          make([]PersonStat, 0),
			OverallFairnessScore: 100,
		}
	}

	personStats := f.calculatePersonStats(g, roster)

	totals := make([]float64, len(personStats))
	tierTotals := make(map[model.Tier][]float64)
	for i, s := range personStats {
		totals[i] = float64(s.Total)
		tierTotals[s.Tier] = append(tierTotals[s.Tier], float64(s.Total))
	}

	byTier := make(map[model.Tier]TierWorkload, len(tierTotals))
	for tier, values := range tierTotals {
		mean := f.calculateMean(values)
		max, min := f.calculateRange(values)
		byTier[tier] = TierWorkload{
			Persons:  len(values),
			Mean:     mean,
			Variance: f.calculateVariance(values, mean),
			Min:      min,
			Max:      max,
			Gini:     f.calculateGini(values),
		}
	}

	// 更新人员偏差
	for i := range personStats {
		tw := byTier[personStats[i].Tier]
		if tw.Mean > 0 {
			personStats[i].Deviation = (float64(personStats[i].Total) - tw.Mean) / tw.Mean * 100
		}
	}

	avg := f.calculateMean(totals)
	stdDev := math.Sqrt(f.calculateVariance(totals, avg))

	return &FairnessMetrics{
		WorkloadGini:         f.calculateGini(totals),
		WorkloadStdDev:       stdDev,
		AvgSlotsPerPerson:    avg,
		ByTier:               byTier,
		PersonStats:          personStats,
		OverallFairnessScore: f.calculateOverallScore(byTier),
	}
}

// calculatePersonStats 按名单顺序统计每人格子数
func (f *FairnessAnalyzer) calculatePersonStats(g *grid.Grid, roster *model.Roster) []PersonStat {
	byPerson := g.ByPerson()
	out := make([]PersonStat, 0, roster.Len())
	for _, p := range roster.All() {
		s := PersonStat{PersonID: p.ID, Name: p.Name, Tier: p.Tier}
		for _, i := range byPerson[p.ID] {
			if g.Cell(i).HealthCheck {
				s.HealthChecks++
			} else {
				s.Clinics++
			}
		}
		s.Total = s.Clinics + s.HealthChecks
		out = append(out, s)
	}
	return out
}

// calculateMean 计算平均值
func (f *FairnessAnalyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (f *FairnessAnalyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (f *FairnessAnalyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func (f *FairnessAnalyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateOverallScore 各层级 (1-基尼系数) 按人数加权
func (f *FairnessAnalyzer) calculateOverallScore(byTier map[model.Tier]TierWorkload) float64 {
	weighted, persons := 0.0, 0
	for _, tw := range byTier {
		weighted += (1 - tw.Gini) * 100 * float64(tw.Persons)
		persons += tw.Persons
	}
	if persons == 0 {
		return 100
	}
	return math.Max(0, math.Min(100, weighted/float64(persons)))
}
