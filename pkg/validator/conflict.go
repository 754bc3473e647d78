// Package validator 提供名单校验与排班冲突检测
package validator

import (
	"fmt"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap  ConflictType = "overlap"   // 同半天重复排班
	ConflictFullDay  ConflictType = "full_day"  // 同一天上下午都排
	ConflictBanned   ConflictType = "banned"    // 落在单位禁排时段
	ConflictRoomTier ConflictType = "room_tier" // 诊间不允许该层级
	ConflictUnknown  ConflictType = "unknown"   // 人员不在名单中
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"`
	PersonID string       `json:"person_id"`
	Slot     model.Slot   `json:"slot"`
	Message  string       `json:"message"`
	Cells    []int        `json:"cells,omitempty"`
}

// String 返回可读格式
func (c Conflict) String() string {
	return fmt.Sprintf("%s %s: %s", c.Severity, c.Type, c.Message)
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	catalog *catalog.Catalog
	config  *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckFullDay  bool // 是否检查全天排班
	CheckBans     bool // 是否检查单位禁排
	CheckRoomTier bool // 是否检查诊间层级
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckFullDay:  true,
		CheckBans:     true,
		CheckRoomTier: true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(cat *catalog.Catalog, config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{catalog: cat, config: config}
}

// DetectAll 检测方案中全部人员的冲突（名单顺序）
func (d *ConflictDetector) DetectAll(g *grid.Grid, roster *model.Roster) []Conflict {
	var conflicts []Conflict
	byPerson := g.ByPerson()

	for i := 0; i < g.Len(); i++ {
		if occ := g.Occupant(i); occ != "" && roster.Get(occ) == nil {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictUnknown,
				Severity: SeverityError,
				PersonID: occ,
				Slot:     g.Cell(i).Slot,
				Message:  fmt.Sprintf("%s 不在名单中", occ),
				Cells:    []int{i},
			})
		}
	}

	for _, p := range roster.All() {
		cells := byPerson[p.ID]
		if len(cells) == 0 {
			continue
		}
		conflicts = append(conflicts, d.detectOverlaps(g, p, cells)...)
		if d.config.CheckFullDay {
			conflicts = append(conflicts, d.detectFullDays(g, p, cells)...)
		}
		for _, i := range cells {
			conflicts = append(conflicts, d.detectCell(g, p, i)...)
		}
	}
	return conflicts
}

// DetectForAssignment 检测把人员放入格子会产生的冲突
func (d *ConflictDetector) DetectForAssignment(g *grid.Grid, p *model.Person, cell int) []Conflict {
	var conflicts []Conflict
	c := g.Cell(cell)

	for _, i := range g.CellsOf(p.ID) {
		if i == cell {
			continue
		}
		other := g.Cell(i)
		switch {
		case other.HalfDay() == c.HalfDay():
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOverlap,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     c.Slot,
				Message:  fmt.Sprintf("%s 在 %s 已有排班 %s", p.ID, c.HalfDay(), other.Slot.Room),
				Cells:    []int{cell, i},
			})
		case d.config.CheckFullDay && other.Slot.Day == c.Slot.Day && !d.fullDayExempt(p):
			conflicts = append(conflicts, Conflict{
				Type:     ConflictFullDay,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     c.Slot,
				Message:  fmt.Sprintf("%s 在 %s 将排全天", p.ID, c.Slot.Day),
				Cells:    []int{cell, i},
			})
		}
	}
	return append(conflicts, d.detectCell(g, p, cell)...)
}

// detectOverlaps 检测同半天重复排班，每个多出的格子一条
func (d *ConflictDetector) detectOverlaps(g *grid.Grid, p *model.Person, cells []int) []Conflict {
	var conflicts []Conflict
	first := make(map[model.HalfDay]int)
	for _, i := range cells {
		h := g.Cell(i).HalfDay()
		if j, seen := first[h]; seen {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOverlap,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     g.Cell(i).Slot,
				Message:  fmt.Sprintf("%s 在 %s 同时排了 %s 和 %s", p.ID, h, g.Cell(j).Slot.Room, g.Cell(i).Slot.Room),
				Cells:    []int{j, i},
			})
			continue
		}
		first[h] = i
	}
	return conflicts
}

// detectFullDays 检测同一天上下午都排
func (d *ConflictDetector) detectFullDays(g *grid.Grid, p *model.Person, cells []int) []Conflict {
	if d.fullDayExempt(p) {
		return nil
	}
	var conflicts []Conflict
	morning := make(map[model.Day]int)
	afternoon := make(map[model.Day]int)
	for _, i := range cells {
		s := g.Cell(i).Slot
		if s.Time == model.Morning {
			morning[s.Day] = i
		} else {
			afternoon[s.Day] = i
		}
	}
	for _, day := range model.Days {
		m, okM := morning[day]
		a, okA := afternoon[day]
		if okM && okA {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictFullDay,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     g.Cell(a).Slot,
				Message:  fmt.Sprintf("%s 在 %s 上下午都有排班", p.ID, day),
				Cells:    []int{m, a},
			})
		}
	}
	return conflicts
}

// detectCell 检测单个格子的禁排和诊间层级
func (d *ConflictDetector) detectCell(g *grid.Grid, p *model.Person, cell int) []Conflict {
	var conflicts []Conflict
	c := g.Cell(cell)

	if d.config.CheckBans {
		if u := d.catalog.Unit(p.Tier, p.RotationUnit); u != nil && u.IsBanned(c.HalfDay()) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictBanned,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     c.Slot,
				Message:  fmt.Sprintf("%s (%s) 在 %s 禁排", p.ID, p.RotationUnit, c.HalfDay()),
				Cells:    []int{cell},
			})
		}
	}

	if d.config.CheckRoomTier && !c.HealthCheck {
		room := c.Slot.Room
		allowed := true
		switch {
		case room == d.catalog.SharedRoom:
			allowed = d.catalog.IsSharedRoomTier(p.Tier)
		case room == d.catalog.ReservedRoom:
			allowed = p.Tier == d.catalog.ReservedRoomTier
		}
		if tr := d.catalog.Tier(p.Tier); allowed && tr != nil {
			allowed = tr.AllowsClinic(room, c.Slot.Time)
		}
		if !allowed {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictRoomTier,
				Severity: SeverityError,
				PersonID: p.ID,
				Slot:     c.Slot,
				Message:  fmt.Sprintf("%s (%s) 不能使用诊间 %s", p.ID, p.Tier, c.Slot),
				Cells:    []int{cell},
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) fullDayExempt(p *model.Person) bool {
	u := d.catalog.Unit(p.Tier, p.RotationUnit)
	return u != nil && u.FullDayExempt
}

// HasErrors 是否存在错误级冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}
