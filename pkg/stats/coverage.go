// Package stats 提供排班统计分析功能
package stats

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// CoverageMetrics 覆盖率指标；覆盖率均为 [0, 1] 之间的比例
type CoverageMetrics struct {
	// 必排格子覆盖
	CoverageRate        float64 `json:"coverage_rate"`         // 必排门诊格子的覆盖比例
	HealthCheckCoverage float64 `json:"health_check_coverage"` // 必排体检格子的覆盖比例
	Filled              int     `json:"filled"`                // 已填必排格子数
	Required            int     `json:"required"`              // 必排格子数
	OptionalFilled      int     `json:"optional_filled"`       // 已填可选格子数

	// 按日期统计
	Daily map[model.Day]DayCoverage `json:"daily"`

	// 按诊间统计
	RoomCoverage map[string]float64 `json:"room_coverage"`

	// 问题识别
	Uncovered    []model.Slot          `json:"uncovered"`    // 空缺的必排格子
	Understaffed []UnderstaffedHalfDay `json:"understaffed"` // 覆盖率低于阈值的半天
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          model.Day `json:"day"`
	Required     int       `json:"required"`
	Filled       int       `json:"filled"`
	CoverageRate float64   `json:"coverage_rate"`
	StaffCount   int       `json:"staff_count"` // 当天出诊人数
}

// UnderstaffedHalfDay 人手不足的半天
type UnderstaffedHalfDay struct {
	HalfDay  model.HalfDay `json:"half_day"`
	Required int           `json:"required"`
	Filled   int           `json:"filled"`
	Shortage int           `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	threshold float64 // 半天覆盖比例低于该值视为人手不足
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{threshold: 0.5}
}

// SetUnderstaffedThreshold 设置人手不足阈值（比例）
func (c *CoverageAnalyzer) SetUnderstaffedThreshold(threshold float64) {
	c.threshold = threshold
}

// Analyze 分析覆盖率；没有必排格子的类别覆盖率为 1
func (c *CoverageAnalyzer) Analyze(g *grid.Grid) *CoverageMetrics {
	m := &CoverageMetrics{
		Daily:        make(map[model.Day]DayCoverage),
		RoomCoverage: make(map[string]float64),
		Uncovered:    make([]model.Slot, 0),
		Understaffed: make([]UnderstaffedHalfDay, 0),
	}

	var clinicRequired, clinicFilled, hcRequired, hcFilled int
	roomRequired := make(map[string]int)
	roomFilled := make(map[string]int)
	halfRequired := make(map[model.HalfDay]int)
	halfFilled := make(map[model.HalfDay]int)
	dailyStats := make(map[model.Day]*DayCoverage)
	staff := make(map[model.Day]map[string]bool)

	for i := 0; i < g.Len(); i++ {
		cell := g.Cell(i)
		occ := g.Occupant(i)
		day := cell.Slot.Day

		if occ != "" {
			if staff[day] == nil {
				staff[day] = make(map[string]bool)
			}
			staff[day][occ] = true
		}
		if !cell.Required {
			if occ != "" {
				m.OptionalFilled++
			}
			continue
		}

		d, ok := dailyStats[day]
		if !ok {
			d = &DayCoverage{Day: day}
			dailyStats[day] = d
		}
		d.Required++
		roomRequired[cell.Slot.Room]++
		halfRequired[cell.HalfDay()]++
		if cell.HealthCheck {
			hcRequired++
		} else {
			clinicRequired++
		}

		if occ == "" {
			m.Uncovered = append(m.Uncovered, cell.Slot)
			continue
		}
		d.Filled++
		roomFilled[cell.Slot.Room]++
		halfFilled[cell.HalfDay()]++
		if cell.HealthCheck {
			hcFilled++
		} else {
			clinicFilled++
		}
	}

	m.Required = clinicRequired + hcRequired
	m.Filled = clinicFilled + hcFilled
	m.CoverageRate = ratio(clinicFilled, clinicRequired)
	m.HealthCheckCoverage = ratio(hcFilled, hcRequired)

	for day, d := range dailyStats {
		d.CoverageRate = ratio(d.Filled, d.Required)
		d.StaffCount = len(staff[day])
		m.Daily[day] = *d
	}
	for room, total := range roomRequired {
		m.RoomCoverage[room] = ratio(roomFilled[room], total)
	}

	// 按时间顺序识别人手不足半天
	for _, h := range model.HalfDays() {
		required := halfRequired[h]
		if required == 0 {
			continue
		}
		filled := halfFilled[h]
		if ratio(filled, required) < c.threshold {
			m.Understaffed = append(m.Understaffed, UnderstaffedHalfDay{
				HalfDay:  h,
				Required: required,
				Filled:   filled,
				Shortage: required - filled,
			})
		}
	}
	return m
}

func ratio(filled, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(filled) / float64(total)
}
