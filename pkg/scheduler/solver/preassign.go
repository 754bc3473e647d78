// Package solver 提供 R1 预排与初始方案构建
package solver

import (
	"context"
	"sort"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// PreAssigner R1 预排器：先于全局搜索确定 R1 的门诊日和体检格子
type PreAssigner struct {
	catalog *catalog.Catalog
	roster  *model.Roster
	layout  *grid.Layout
	logger  *logger.SchedulerLogger
}

// NewPreAssigner 创建预排器
func NewPreAssigner(cat *catalog.Catalog, roster *model.Roster, layout *grid.Layout) *PreAssigner {
	return &PreAssigner{
		catalog: cat,
		roster:  roster,
		layout:  layout,
		logger:  logger.NewSchedulerLogger(),
	}
}

// Assign 生成预览；无法安排的 R1 人员列入未排名单，不返回错误
//
// 强制指定班无人可排属于全局搜索的不可行判定，由 CheckFeasible 负责。
func (a *PreAssigner) Assign(ctx context.Context) (*Preview, error) {
	runID := logger.RunID(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pv := NewPreview(a.catalog.Week)
	g := grid.New(a.layout)

	persons := a.roster.ByTier(model.TierR1)
	placed, err := a.assignClinics(ctx, g, persons)
	if err != nil {
		return nil, err
	}
	for _, p := range persons {
		cell, ok := placed[p.ID]
		if !ok {
			pv.MarkUnplaced(p.ID)
			continue
		}
		s := a.layout.Cell(cell).Slot
		pv.ClinicAssignments[p.ID] = ClinicAssignment{Day: s.Day, Time: s.Time, Room: s.Room, PersonInfo: p.Info()}
	}

	a.assignPinnedHealthChecks(g, persons)
	for _, id := range a.assignHealthQuota(g, persons) {
		pv.MarkUnplaced(id)
	}
	for _, p := range persons {
		for _, i := range g.CellsOf(p.ID) {
			c := a.layout.Cell(i)
			if !c.HealthCheck {
				continue
			}
			pv.HealthCheckAssignments[p.ID] = append(pv.HealthCheckAssignments[p.ID],
				model.SlotRef{Day: c.Slot.Day, Time: c.Slot.Time, Room: c.Slot.Room})
		}
	}

	base, err := a.Base(pv)
	if err != nil {
		return nil, err
	}
	pv.R4Fixed = a.FixedEcho(base)

	a.logger.PreAssigned(runID, len(pv.ClinicAssignments), pv.Unplaced)
	return pv, nil
}

// ClinicCandidates 返回人员可用的门诊格子（格子顺序）
func (a *PreAssigner) ClinicCandidates(p *model.Person) []int {
	tr := a.catalog.Tier(p.Tier)
	u := a.catalog.Unit(p.Tier, p.RotationUnit)
	if tr == nil || u == nil {
		return nil
	}

	var clinicPins []catalog.Pin
	busyDays := make(map[model.Day]bool)
	for _, pin := range u.Pins {
		if !pin.AppliesTo(p) {
			continue
		}
		if pin.HealthCheck {
			// 体检指定班占用当天，非豁免单位不能再排同日门诊
			if !u.FullDayExempt {
				busyDays[pin.Day] = true
			}
			continue
		}
		if pin.Hard {
			clinicPins = append(clinicPins, pin)
		}
	}

	var out []int
	for i, c := range a.layout.Cells() {
		if c.HealthCheck || !tr.AllowsClinic(c.Slot.Room, c.Slot.Time) {
			continue
		}
		if u.IsBanned(c.HalfDay()) || busyDays[c.Slot.Day] {
			continue
		}
		if !matchesAll(clinicPins, c) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func matchesAll(pins []catalog.Pin, c grid.Cell) bool {
	for _, pin := range pins {
		if !pin.Matches(c.Slot, c.HealthCheck) {
			return false
		}
	}
	return true
}

// assignClinics 最少候选优先的贪心分配；有人落空时改用最大流匹配，
// 只有能多排人时才替换贪心结果
func (a *PreAssigner) assignClinics(ctx context.Context, g *grid.Grid, persons []*model.Person) (map[string]int, error) {
	cands := make([][]int, len(persons))
	order := make([]int, len(persons))
	for i, p := range persons {
		cands[i] = a.ClinicCandidates(p)
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return len(cands[order[x]]) < len(cands[order[y]])
	})

	m := newMatcher(len(persons))
	pending := 0
	for _, pi := range order {
		best, bestContest := -1, 0
		for _, c := range cands[pi] {
			if m.taken(c) {
				continue
			}
			contest := 0
			for _, qi := range order {
				if qi != pi && !m.matched(qi) && contains(cands[qi], c) {
					contest++
				}
			}
			if best < 0 || contest < bestContest {
				best, bestContest = c, contest
			}
		}
		if best < 0 {
			pending++
			continue
		}
		m.assign(pi, best)
	}
	if pending > 0 {
		mm, err := maxMatching(ctx, cands)
		if err != nil {
			return nil, err
		}
		if mm.size() > m.size() {
			m = mm
		}
	}

	out := make(map[string]int)
	for pi, p := range persons {
		if c, ok := m.cellOf(pi); ok {
			g.Set(c, p.ID)
			out[p.ID] = c
		}
	}
	return out, nil
}

// assignPinnedHealthChecks 按单位体检指定班安排体检（每个指定班一个格子）
func (a *PreAssigner) assignPinnedHealthChecks(g *grid.Grid, persons []*model.Person) {
	for _, p := range persons {
		u := a.catalog.Unit(p.Tier, p.RotationUnit)
		if u == nil {
			continue
		}
		for _, pin := range u.Pins {
			if !pin.HealthCheck || !pin.AppliesTo(p) {
				continue
			}
			h := pin.HalfDay()
			if g.WorksAt(p.ID, h) || !a.freeOfFullDay(g, p, u, h) {
				continue
			}
			if cell, ok := a.freeHealthCheckCell(g, h); ok {
				g.Set(cell, p.ID)
			}
		}
	}
}

// assignHealthQuota 为配额单位逐个半天分配体检格子，返回未满额的人员
func (a *PreAssigner) assignHealthQuota(g *grid.Grid, persons []*model.Person) []string {
	var short []string
	for _, p := range persons {
		u := a.catalog.Unit(p.Tier, p.RotationUnit)
		if u == nil || u.HealthCheckQuota == 0 {
			continue
		}
		n := len(healthCheckCells(g, p.ID))
		for _, h := range a.quotaOrder(p.Tier, u) {
			if n >= u.HealthCheckQuota {
				break
			}
			if u.IsBanned(h) || g.WorksAt(p.ID, h) || !a.freeOfFullDay(g, p, u, h) {
				continue
			}
			if cell, ok := a.freeHealthCheckCell(g, h); ok {
				g.Set(cell, p.ID)
				n++
			}
		}
		if n < u.HealthCheckQuota {
			short = append(short, p.ID)
		}
	}
	return short
}

// quotaOrder 其他单位体检指定班所在半天排在最后，其余按日期顺序
func (a *PreAssigner) quotaOrder(t model.Tier, self *catalog.Unit) []model.HalfDay {
	pinned := make(map[model.HalfDay]bool)
	if tr := a.catalog.Tier(t); tr != nil {
		for _, u := range tr.Units {
			if u == self {
				continue
			}
			for _, pin := range u.Pins {
				if pin.HealthCheck {
					pinned[pin.HalfDay()] = true
				}
			}
		}
	}
	var first, last []model.HalfDay
	for _, h := range model.HalfDays() {
		if pinned[h] {
			last = append(last, h)
		} else {
			first = append(first, h)
		}
	}
	return append(first, last...)
}

func (a *PreAssigner) freeOfFullDay(g *grid.Grid, p *model.Person, u *catalog.Unit, h model.HalfDay) bool {
	if u.FullDayExempt {
		return true
	}
	return !g.WorksAt(p.ID, model.HalfDay{Day: h.Day, Time: h.Time.Other()})
}

func (a *PreAssigner) freeHealthCheckCell(g *grid.Grid, h model.HalfDay) (int, bool) {
	for _, i := range a.layout.HalfDayCells(h) {
		if a.layout.Cell(i).HealthCheck && g.IsEmpty(i) {
			return i, true
		}
	}
	return 0, false
}

func healthCheckCells(g *grid.Grid, id string) []int {
	var out []int
	for _, i := range g.CellsOf(id) {
		if g.Cell(i).HealthCheck {
			out = append(out, i)
		}
	}
	return out
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
