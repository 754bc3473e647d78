package solver

import (
	"fmt"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// Base 按预览构建初始方案并锁定：R1 门诊与体检、指定诊间的硬性指定班、R4 固定门诊
func (a *PreAssigner) Base(pv *Preview) (*grid.Grid, error) {
	g := grid.New(a.layout)

	for _, id := range pv.ClinicIDs() {
		c := pv.ClinicAssignments[id]
		if err := a.pinPreview(g, id, model.SlotRef{Day: c.Day, Time: c.Time, Room: c.Room}, false); err != nil {
			return nil, err
		}
	}
	for _, id := range pv.HealthCheckIDs() {
		for _, ref := range pv.HealthCheckAssignments[id] {
			if err := a.pinPreview(g, id, ref, true); err != nil {
				return nil, err
			}
		}
	}

	a.placeRoomPins(g)
	a.placeFixed(g)
	return g, nil
}

func (a *PreAssigner) pinPreview(g *grid.Grid, id string, ref model.SlotRef, healthCheck bool) error {
	p := a.roster.Get(id)
	if p == nil || p.Tier != model.TierR1 {
		return apperrors.InvalidEdit(fmt.Sprintf("%s is not an R1 person on the roster", id))
	}
	cell, ok := a.layout.Find(model.Slot{Week: a.catalog.Week, Day: ref.Day, Time: ref.Time, Room: ref.Room})
	if !ok {
		return apperrors.InvalidEdit(fmt.Sprintf("%s: no room %s on %s %s", id, ref.Room, ref.Day, ref.Time))
	}
	if a.layout.Cell(cell).HealthCheck != healthCheck {
		return apperrors.InvalidEdit(fmt.Sprintf("%s: room %s is the wrong kind", id, ref.Room))
	}
	if occ := g.Occupant(cell); occ != "" {
		return apperrors.InvalidEdit(fmt.Sprintf("%s and %s both hold %s", occ, id, a.layout.Cell(cell).Slot))
	}
	g.Pin(cell, id)
	return nil
}

// placeRoomPins 指定了诊间的硬性指定班（R1 以外）由单位中第一个空闲人员占用
func (a *PreAssigner) placeRoomPins(g *grid.Grid) {
	for _, t := range model.Tiers {
		tr := a.catalog.Tier(t)
		if t == model.TierR1 || tr == nil {
			continue
		}
		for _, u := range tr.Units {
			for _, pin := range u.Pins {
				if !pin.Hard || pin.Room == "" {
					continue
				}
				cell, ok := a.layout.Find(model.Slot{Week: a.catalog.Week, Day: pin.Day, Time: pin.Time, Room: pin.Room})
				if !ok || !g.IsEmpty(cell) {
					continue
				}
				for _, p := range a.roster.ByUnit(t, u.Name) {
					if pin.AppliesTo(p) && !g.WorksAt(p.ID, pin.HalfDay()) && !g.IsLocked(cell) {
						g.Pin(cell, p.ID)
						break
					}
				}
			}
		}
	}
}

// placeFixed R4 固定门诊按名单顺序锁定，格子已被占用则不放置
func (a *PreAssigner) placeFixed(g *grid.Grid) {
	for _, p := range a.roster.ByTier(model.TierR4) {
		cell, ok := constraint.ResolveFixed(a.catalog, a.layout, p)
		if !ok || !g.IsEmpty(cell) || g.WorksAt(p.ID, a.layout.Cell(cell).HalfDay()) {
			continue
		}
		g.Pin(cell, p.ID)
	}
}

// FixedEcho 返回全部固定门诊请求的回显
func (a *PreAssigner) FixedEcho(g *grid.Grid) map[string]FixedEcho {
	out := make(map[string]FixedEcho)
	for _, p := range a.roster.All() {
		if !p.HasFixedSchedule() {
			continue
		}
		fs := p.FixedSchedule
		e := FixedEcho{Day: fs.Day, Time: fs.Time, Room: model.Unassigned, PersonInfo: p.Info()}
		if cell, ok := constraint.ResolveFixed(a.catalog, a.layout, p); ok {
			e.Room = a.layout.Cell(cell).Slot.Room
			e.Placed = g.Occupant(cell) == p.ID
		}
		out[p.ID] = e
	}
	return out
}

// CheckFeasible 检查名单能否满足强制指定班
func CheckFeasible(cat *catalog.Catalog, roster *model.Roster) error {
	var items []string
	for _, t := range model.Tiers {
		tr := cat.Tier(t)
		if tr == nil {
			continue
		}
		for _, u := range tr.Units {
			for _, pin := range u.Pins {
				if pin.Mandatory && len(roster.ByUnit(t, u.Name)) == 0 {
					items = append(items, fmt.Sprintf("[%s] no %s %s person for %s", pin.Rule, t, u.Name, pin))
				}
			}
		}
	}
	if len(items) > 0 {
		return apperrors.Infeasible("名单无法满足强制指定班", items)
	}
	return nil
}
