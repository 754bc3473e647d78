// Package grid 定义一周排班方案的格子表示
package grid

import (
	"strconv"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
)

// Cell 排班格子
type Cell struct {
	Index       int
	Slot        model.Slot
	Required    bool
	HealthCheck bool
}

// HalfDay 返回格子所在半天
func (c Cell) HalfDay() model.HalfDay {
	return c.Slot.HalfDay()
}

// Layout 格子布局，由目录生成，只读并在所有方案间共享
type Layout struct {
	cells     []Cell
	index     map[model.Slot]int
	byHalfDay map[model.HalfDay][]int
}

// NewLayout 根据目录生成布局，格子按日期、时段、诊间字母序排列
func NewLayout(cat *catalog.Catalog) *Layout {
	slots := cat.Slots()
	l := &Layout{
		cells:     make([]Cell, len(slots)),
		index:     make(map[model.Slot]int, len(slots)),
		byHalfDay: make(map[model.HalfDay][]int),
	}
	for i, s := range slots {
		l.cells[i] = Cell{
			Index:       i,
			Slot:        s,
			Required:    cat.IsRequired(s.Day, s.Time, s.Room),
			HealthCheck: cat.IsHealthCheckRoom(s.Room),
		}
		l.index[s] = i
		h := s.HalfDay()
		l.byHalfDay[h] = append(l.byHalfDay[h], i)
	}
	return l
}

// Len 格子数量
func (l *Layout) Len() int { return len(l.cells) }

// Cell 返回格子
func (l *Layout) Cell(i int) Cell { return l.cells[i] }

// Cells 返回全部格子
func (l *Layout) Cells() []Cell {
	out := make([]Cell, len(l.cells))
	copy(out, l.cells)
	return out
}

// Find 查找格子序号
func (l *Layout) Find(s model.Slot) (int, bool) {
	i, ok := l.index[s]
	return i, ok
}

// HalfDayCells 返回半天内的格子序号
func (l *Layout) HalfDayCells(h model.HalfDay) []int {
	return l.byHalfDay[h]
}

// Grid 一个候选排班方案：格子 -> 人员编号（空串表示空缺）
type Grid struct {
	layout    *Layout
	occupants []string
	locked    []bool
}

// New 创建空方案
func New(layout *Layout) *Grid {
	return &Grid{
		layout:    layout,
		occupants: make([]string, layout.Len()),
		locked:    make([]bool, layout.Len()),
	}
}

// Layout 返回布局
func (g *Grid) Layout() *Layout { return g.layout }

// Len 格子数量
func (g *Grid) Len() int { return len(g.occupants) }

// Cell 返回格子
func (g *Grid) Cell(i int) Cell { return g.layout.cells[i] }

// Occupant 返回格子上的人员编号
func (g *Grid) Occupant(i int) string { return g.occupants[i] }

// Set 设置格子人员，锁定格子不会被修改
func (g *Grid) Set(i int, personID string) bool {
	if g.locked[i] {
		return false
	}
	g.occupants[i] = personID
	return true
}

// Vacate 清空格子
func (g *Grid) Vacate(i int) bool {
	return g.Set(i, "")
}

// Pin 设置人员并锁定格子
func (g *Grid) Pin(i int, personID string) {
	g.occupants[i] = personID
	g.locked[i] = true
}

// Unlock 解除锁定
func (g *Grid) Unlock(i int) {
	g.locked[i] = false
}

// IsLocked 格子是否锁定
func (g *Grid) IsLocked(i int) bool { return g.locked[i] }

// IsEmpty 格子是否空缺
func (g *Grid) IsEmpty(i int) bool { return g.occupants[i] == "" }

// Clone 复制方案，布局共享
func (g *Grid) Clone() *Grid {
	c := &Grid{
		layout:    g.layout,
		occupants: make([]string, len(g.occupants)),
		locked:    make([]bool, len(g.locked)),
	}
	copy(c.occupants, g.occupants)
	copy(c.locked, g.locked)
	return c
}

// Equal 比较两个方案的人员分布
func (g *Grid) Equal(other *Grid) bool {
	if len(g.occupants) != len(other.occupants) {
		return false
	}
	for i := range g.occupants {
		if g.occupants[i] != other.occupants[i] {
			return false
		}
	}
	return true
}

// CellsOf 返回人员占用的格子序号（按格子顺序）
func (g *Grid) CellsOf(personID string) []int {
	var out []int
	for i, occ := range g.occupants {
		if occ == personID {
			out = append(out, i)
		}
	}
	return out
}

// ByPerson 返回 人员 -> 格子序号 索引
func (g *Grid) ByPerson() map[string][]int {
	out := make(map[string][]int)
	for i, occ := range g.occupants {
		if occ != "" {
			out[occ] = append(out[occ], i)
		}
	}
	return out
}

// WorksAt 人员在该半天是否已有格子
func (g *Grid) WorksAt(personID string, h model.HalfDay) bool {
	for _, i := range g.layout.byHalfDay[h] {
		if g.occupants[i] == personID {
			return true
		}
	}
	return false
}

// Filled 统计已填格子数（必排格子 / 全部格子）
func (g *Grid) Filled() (required, total int) {
	for i, occ := range g.occupants {
		if occ == "" {
			continue
		}
		total++
		if g.layout.cells[i].Required {
			required++
		}
	}
	return required, total
}

// Schedule 周 -> 日 -> 时段 -> 诊间 -> 人员 的输出结构
type Schedule map[string]map[model.Day]map[model.TimeSlot]map[string]string

// Schedule 导出方案，空缺格子不输出
func (g *Grid) Schedule() Schedule {
	out := make(Schedule)
	for i, occ := range g.occupants {
		if occ == "" {
			continue
		}
		s := g.layout.cells[i].Slot
		week := weekKey(s.Week)
		if out[week] == nil {
			out[week] = make(map[model.Day]map[model.TimeSlot]map[string]string)
		}
		if out[week][s.Day] == nil {
			out[week][s.Day] = make(map[model.TimeSlot]map[string]string)
		}
		if out[week][s.Day][s.Time] == nil {
			out[week][s.Day][s.Time] = make(map[string]string)
		}
		out[week][s.Day][s.Time][s.Room] = occ
	}
	return out
}

func weekKey(week int) string {
	return "W" + strconv.Itoa(week)
}
