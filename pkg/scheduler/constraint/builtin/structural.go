package builtin

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// NoDoubleBookingRule 同一人员同一半天只能占一个格子
type NoDoubleBookingRule struct {
	*BaseRule
}

// NewNoDoubleBookingRule 创建双重排班规则
func NewNoDoubleBookingRule(weight float64) *NoDoubleBookingRule {
	return &NoDoubleBookingRule{
		BaseRule: NewBaseRule(constraint.TypeNoDoubleBooking, "禁止同半天重复排班", constraint.CategoryHard, weight),
	}
}

// Evaluate 每个多出的格子记一次违反
func (r *NoDoubleBookingRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	g := ctx.Grid
	for _, h := range model.HalfDays() {
		first := make(map[string]string)
		for _, i := range g.Layout().HalfDayCells(h) {
			occ := g.Occupant(i)
			if occ == "" {
				continue
			}
			if room, seen := first[occ]; seen {
				out = append(out, r.CreateViolation(occ, slotOf(ctx, i),
					"%s double-booked on %s (%s and %s)", occ, h, room, g.Cell(i).Slot.Room))
				continue
			}
			first[occ] = g.Cell(i).Slot.Room
		}
	}
	return out
}

// Admits 同半天已有排班则拒绝
func (r *NoDoubleBookingRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return !ctx.WorksAt(p.ID, ctx.Cell(cell).HalfDay(), cell)
}

// UnknownOccupantRule 格子上的人员必须在名单中
type UnknownOccupantRule struct {
	*BaseRule
}

// NewUnknownOccupantRule 创建未知人员规则
func NewUnknownOccupantRule(weight float64) *UnknownOccupantRule {
	return &UnknownOccupantRule{
		BaseRule: NewBaseRule(constraint.TypeUnknownOccupant, "人员必须在名单中", constraint.CategoryHard, weight),
	}
}

// Evaluate 检查每个非空格子
func (r *UnknownOccupantRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for i := 0; i < ctx.Grid.Len(); i++ {
		occ := ctx.Grid.Occupant(i)
		if occ != "" && ctx.Person(occ) == nil {
			out = append(out, r.CreateViolation(occ, slotOf(ctx, i),
				"%s at %s is not on the roster", occ, ctx.Cell(i).Slot))
		}
	}
	return out
}

// Admits 只接受名单内人员
func (r *UnknownOccupantRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return ctx.Person(p.ID) != nil
}

// RoomsFilledRule 必排诊间不得空缺；healthCheck 区分门诊与体检诊间
type RoomsFilledRule struct {
	*BaseRule
	healthCheck bool
}

// NewAllRoomsFilledRule 创建门诊诊间必排规则
func NewAllRoomsFilledRule(weight float64) *RoomsFilledRule {
	return &RoomsFilledRule{
		BaseRule: NewBaseRule(constraint.TypeAllRoomsFilled, "必排门诊诊间需有人", constraint.CategoryHard, weight),
	}
}

// NewHealthCheckCoverageRule 创建体检诊间必排规则
func NewHealthCheckCoverageRule(weight float64) *RoomsFilledRule {
	return &RoomsFilledRule{
		BaseRule:    NewBaseRule(constraint.TypeHealthCheckCoverage, "必排体检诊间需有人", constraint.CategoryHard, weight),
		healthCheck: true,
	}
}

// Evaluate 每个空缺的必排格子记一次违反
func (r *RoomsFilledRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for i := 0; i < ctx.Grid.Len(); i++ {
		c := ctx.Cell(i)
		if !c.Required || c.HealthCheck != r.healthCheck || !ctx.Grid.IsEmpty(i) {
			continue
		}
		kind := "clinic room"
		if r.healthCheck {
			kind = "health-check room"
		}
		out = append(out, r.CreateViolation("", slotOf(ctx, i), "required %s %s is empty", kind, c.Slot))
	}
	return out
}

// NoFullDayRule 同一天上午下午不能都排（豁免单位除外）
type NoFullDayRule struct {
	*BaseRule
}

// NewNoFullDayRule 创建全天排班规则
func NewNoFullDayRule(weight float64) *NoFullDayRule {
	return &NoFullDayRule{
		BaseRule: NewBaseRule(constraint.TypeNoFullDay, "禁止全天排班", constraint.CategoryHard, weight),
	}
}

func exemptFromFullDay(ctx *constraint.Context, p *model.Person) bool {
	u := ctx.Unit(p)
	return u != nil && u.FullDayExempt
}

// Evaluate 每人每天检查一次
func (r *NoFullDayRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Roster.All() {
		if exemptFromFullDay(ctx, p) {
			continue
		}
		for _, d := range model.Days {
			m := model.HalfDay{Day: d, Time: model.Morning}
			a := model.HalfDay{Day: d, Time: model.Afternoon}
			if ctx.WorksAt(p.ID, m, -1) && ctx.WorksAt(p.ID, a, -1) {
				out = append(out, r.CreateViolation(p.ID, nil, "%s works both sessions on %s", p.ID, d))
			}
		}
	}
	return out
}

// Admits 同一天另一时段已有排班则拒绝
func (r *NoFullDayRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	if exemptFromFullDay(ctx, p) {
		return true
	}
	h := ctx.Cell(cell).HalfDay()
	return !ctx.WorksAt(p.ID, model.HalfDay{Day: h.Day, Time: h.Time.Other()}, cell)
}
