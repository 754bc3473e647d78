package grid

import "github.com/menzhen/menzhen/pkg/model"

// Conflict 修复时被清空的重复分配
type Conflict struct {
	PersonID string     `json:"person_id"`
	Vacated  model.Slot `json:"vacated"`
	Kept     model.Slot `json:"kept"`
}

// Repair 消除同一人员在同一半天的重复分配
//
// 锁定格子的人员先登记；其余格子按 日期、时段、诊间字母序 扫描，
// 后发现的冲突分配被清空。返回被清空的分配列表。
func Repair(g *Grid) []Conflict {
	var conflicts []Conflict
	for _, h := range model.HalfDays() {
		cells := g.layout.byHalfDay[h]
		if len(cells) == 0 {
			continue
		}
		kept := make(map[string]int, len(cells))
		for _, i := range cells {
			occ := g.occupants[i]
			if occ == "" || !g.locked[i] {
				continue
			}
			if _, seen := kept[occ]; !seen {
				kept[occ] = i
			}
		}
		for _, i := range cells {
			occ := g.occupants[i]
			if occ == "" || g.locked[i] {
				continue
			}
			if first, seen := kept[occ]; seen {
				conflicts = append(conflicts, Conflict{
					PersonID: occ,
					Vacated:  g.layout.cells[i].Slot,
					Kept:     g.layout.cells[first].Slot,
				})
				g.occupants[i] = ""
				continue
			}
			kept[occ] = i
		}
	}
	return conflicts
}

// DoubleBookings 列出同一人员在同一半天占用多个格子的情况（不修改方案）
func DoubleBookings(g *Grid) map[model.HalfDay][]string {
	out := make(map[model.HalfDay][]string)
	for _, h := range model.HalfDays() {
		count := make(map[string]int)
		for _, i := range g.layout.byHalfDay[h] {
			if occ := g.occupants[i]; occ != "" {
				count[occ]++
			}
		}
		for _, i := range g.layout.byHalfDay[h] {
			occ := g.occupants[i]
			if occ != "" && count[occ] > 1 {
				out[h] = append(out[h], occ)
				count[occ] = 0
			}
		}
	}
	return out
}
