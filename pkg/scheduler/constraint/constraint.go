// Package constraint 定义排班规则接口和管理器
package constraint

import (
	"fmt"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// Type 规则编号
type Type string

const (
	// 结构性硬规则
	TypeNoDoubleBooking     Type = "no_double_booking"
	TypeRoomDoubleBooked    Type = "room_double_booked"
	TypeUnknownOccupant     Type = "unknown_occupant"
	TypeAllRoomsFilled      Type = "all_rooms_filled"
	TypeHealthCheckCoverage Type = "health_check_coverage"
	TypeNoFullDay           Type = "no_full_day"

	// 诊间归属
	TypeSharedRoomTiers        Type = "shared_room_tiers"
	TypeReservedRoomTier       Type = "reserved_room_tier"
	TypeHealthCheckEligibility Type = "health_check_eligibility"

	// 单位与层级规则
	TypeUnitBannedSlot Type = "unit_banned_slot"
	TypeMaxClinics     Type = "max_clinics"
	TypeR1ClinicRoom   Type = "r1_clinic_room"
	TypeR1HealthQuota  Type = "r1_health_quota"
	TypeSharedRoomOnce Type = "shared_room_once"
	TypeSplitHalves    Type = "split_halves"
	TypeRequireMorning Type = "require_morning"

	// R4
	TypeR4TuesdayTeaching Type = "r4_tuesday_teaching"
	TypeR4FixedSchedule   Type = "r4_fixed_schedule"
	TypeR4FixedExclusive  Type = "r4_fixed_exclusive"

	// 软规则
	TypeHealthCheckParticipation Type = "health_check_participation"
)

// Category 规则类别
type Category string

const (
	CategoryHard Category = "hard" // 硬规则（必须满足）
	CategorySoft Category = "soft" // 软规则（尽量满足）
)

// Rule 排班规则：带标签的谓词
type Rule interface {
	// Type 返回规则编号
	Type() Type

	// Name 返回规则名称
	Name() string

	// Category 返回规则类别
	Category() Category

	// Weight 返回规则权重倍数
	Weight() float64

	// Tiers 返回适用层级，nil 表示全局规则
	Tiers() []model.Tier

	// Evaluate 评估整个方案，返回违反列表（不得修改方案）
	Evaluate(ctx *Context) []Violation

	// Admits 检查把人员放入格子是否违反本规则
	Admits(ctx *Context, p *model.Person, cell int) bool
}

// Violation 规则违反
type Violation struct {
	Rule     Type        `json:"rule"`
	Category Category    `json:"category"`
	PersonID string      `json:"person_id,omitempty"`
	Slot     *model.Slot `json:"slot,omitempty"`
	Message  string      `json:"message"`
	Penalty  float64     `json:"penalty"`
}

// String 返回 "[rule_id] message"，供调用方按子串分类
func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s", v.Rule, v.Message)
}

// Context 规则评估上下文
type Context struct {
	Catalog *catalog.Catalog
	Roster  *model.Roster
	Grid    *grid.Grid

	// 索引缓存
	byPerson map[string][]int
}

// NewContext 创建评估上下文
func NewContext(cat *catalog.Catalog, roster *model.Roster, g *grid.Grid) *Context {
	c := &Context{Catalog: cat, Roster: roster, Grid: g}
	c.Rebuild()
	return c
}

// Rebuild 重建人员索引（直接修改 Grid 后调用）
func (c *Context) Rebuild() {
	c.byPerson = c.Grid.ByPerson()
}

// Set 修改格子并维护索引
func (c *Context) Set(cell int, personID string) bool {
	old := c.Grid.Occupant(cell)
	if !c.Grid.Set(cell, personID) {
		return false
	}
	if old != "" {
		c.byPerson[old] = removeInt(c.byPerson[old], cell)
	}
	if personID != "" {
		c.byPerson[personID] = insertSorted(c.byPerson[personID], cell)
	}
	return true
}

// Person 按编号获取人员
func (c *Context) Person(id string) *model.Person {
	return c.Roster.Get(id)
}

// Cell 返回格子
func (c *Context) Cell(i int) grid.Cell {
	return c.Grid.Cell(i)
}

// CellsOf 返回人员占用的格子（格子顺序）
func (c *Context) CellsOf(personID string) []int {
	return c.byPerson[personID]
}

// ClinicCells 返回人员占用的门诊格子
func (c *Context) ClinicCells(personID string) []int {
	var out []int
	for _, i := range c.byPerson[personID] {
		if !c.Grid.Cell(i).HealthCheck {
			out = append(out, i)
		}
	}
	return out
}

// HealthCheckCells 返回人员占用的体检格子
func (c *Context) HealthCheckCells(personID string) []int {
	var out []int
	for _, i := range c.byPerson[personID] {
		if c.Grid.Cell(i).HealthCheck {
			out = append(out, i)
		}
	}
	return out
}

// WorksAt 人员在该半天是否已有格子（except 格子除外）
func (c *Context) WorksAt(personID string, h model.HalfDay, except int) bool {
	for _, i := range c.byPerson[personID] {
		if i != except && c.Grid.Cell(i).HalfDay() == h {
			return true
		}
	}
	return false
}

// Unit 返回人员的轮转单位规则
func (c *Context) Unit(p *model.Person) *catalog.Unit {
	return c.Catalog.Unit(p.Tier, p.RotationUnit)
}

// TierRules 返回人员的层级规则
func (c *Context) TierRules(p *model.Person) *catalog.TierRules {
	return c.Catalog.Tier(p.Tier)
}

// FixedCell 解析 R4 固定门诊对应的格子
func (c *Context) FixedCell(p *model.Person) (int, bool) {
	return ResolveFixed(c.Catalog, c.Grid.Layout(), p)
}

// ResolveFixed 解析固定门诊格子；未指定诊间时选择默认诊间
func ResolveFixed(cat *catalog.Catalog, layout *grid.Layout, p *model.Person) (int, bool) {
	if p.FixedSchedule == nil {
		return 0, false
	}
	fs := p.FixedSchedule
	room := fs.Room
	if room == "" {
		room = cat.DefaultFixedRoom(fs.Day, fs.Time)
	}
	if room == "" {
		return 0, false
	}
	return layout.Find(model.Slot{Week: cat.Week, Day: fs.Day, Time: fs.Time, Room: room})
}

// Persons 返回适用层级的人员（名单顺序）
func (c *Context) Persons(tiers []model.Tier) []*model.Person {
	if len(tiers) == 0 {
		return c.Roster.All()
	}
	var out []*model.Person
	for _, t := range tiers {
		out = append(out, c.Roster.ByTier(t)...)
	}
	return out
}

func removeInt(list []int, v int) []int {
	for i, x := range list {
		if x == v {
			out := make([]int, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}

func insertSorted(list []int, v int) []int {
	pos := len(list)
	for i, x := range list {
		if x == v {
			return list
		}
		if x > v {
			pos = i
			break
		}
	}
	out := make([]int, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, v)
	return append(out, list[pos:]...)
}

// Result 规则评估结果
type Result struct {
	IsValid        bool        `json:"is_valid"`
	HardPenalty    float64     `json:"hard_penalty"`
	SoftPenalty    float64     `json:"soft_penalty"`
	HardViolations []Violation `json:"hard_violations"`
	SoftViolations []Violation `json:"soft_violations"`
}

// Strings 返回违反字符串列表
func Strings(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

// CountByRule 按规则编号统计违反次数
func (r *Result) CountByRule() map[Type]int {
	out := make(map[Type]int)
	for _, v := range r.HardViolations {
		out[v.Rule]++
	}
	for _, v := range r.SoftViolations {
		out[v.Rule]++
	}
	return out
}
