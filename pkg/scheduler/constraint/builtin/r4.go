package builtin

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// TuesdayTeachingRule 周二教学人员不得排周二
type TuesdayTeachingRule struct {
	*BaseRule
}

// NewR4TuesdayTeachingRule 创建周二教学规则
func NewR4TuesdayTeachingRule(weight float64) *TuesdayTeachingRule {
	return &TuesdayTeachingRule{
		BaseRule: NewBaseRule(constraint.TypeR4TuesdayTeaching, "周二教学不排班", constraint.CategoryHard, weight, model.TierR4),
	}
}

// Evaluate 每个周二格子记一次违反
func (r *TuesdayTeachingRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		if !p.TuesdayTeaching {
			continue
		}
		for _, i := range ctx.CellsOf(p.ID) {
			if ctx.Cell(i).Slot.Day == model.Tuesday {
				out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
					"%s has Tuesday teaching but is assigned to %s", p.ID, ctx.Cell(i).Slot))
			}
		}
	}
	return out
}

// Admits 周二教学人员拒绝周二格子
func (r *TuesdayTeachingRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return !p.TuesdayTeaching || ctx.Cell(cell).Slot.Day != model.Tuesday
}

// FixedScheduleRule 固定门诊必须按日期、时段、诊间完全一致
type FixedScheduleRule struct {
	*BaseRule
}

// NewR4FixedScheduleRule 创建固定门诊规则
func NewR4FixedScheduleRule(weight float64) *FixedScheduleRule {
	return &FixedScheduleRule{
		BaseRule: NewBaseRule(constraint.TypeR4FixedSchedule, "固定门诊", constraint.CategoryHard, weight, model.TierR4),
	}
}

// Evaluate 固定格子不是本人时记一次违反
func (r *FixedScheduleRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		if !p.HasFixedSchedule() {
			continue
		}
		fs := p.FixedSchedule
		cell, ok := ctx.FixedCell(p)
		if !ok {
			out = append(out, r.CreateViolation(p.ID, nil,
				"%s fixed schedule %s %s has no usable room", p.ID, fs.HalfDay(), fs.Room))
			continue
		}
		if occ := ctx.Grid.Occupant(cell); occ != p.ID {
			holder := occ
			if holder == "" {
				holder = "nobody"
			}
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, cell),
				"%s fixed schedule %s not honored (held by %s)", p.ID, ctx.Cell(cell).Slot, holder))
		}
	}
	return out
}

// FixedExclusiveRule 固定门诊人员不得再排其他门诊
type FixedExclusiveRule struct {
	*BaseRule
}

// NewR4FixedExclusiveRule 创建固定门诊独占规则
func NewR4FixedExclusiveRule(weight float64) *FixedExclusiveRule {
	return &FixedExclusiveRule{
		BaseRule: NewBaseRule(constraint.TypeR4FixedExclusive, "固定门诊人员不排其他门诊", constraint.CategoryHard, weight, model.TierR4),
	}
}

// Evaluate 每个固定格子以外的门诊记一次违反
func (r *FixedExclusiveRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		if !p.HasFixedSchedule() {
			continue
		}
		fixed, ok := ctx.FixedCell(p)
		for _, i := range ctx.ClinicCells(p.ID) {
			if ok && i == fixed {
				continue
			}
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
				"%s has a fixed schedule and cannot take %s", p.ID, ctx.Cell(i).Slot))
		}
	}
	return out
}

// Admits 固定门诊人员只接受自己的固定格子
func (r *FixedExclusiveRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	if !p.HasFixedSchedule() || ctx.Cell(cell).HealthCheck {
		return true
	}
	fixed, ok := ctx.FixedCell(p)
	return ok && fixed == cell
}

// RoomDoubleBookedRule 多人固定在同一格子时，名单中靠后的人员记违反
type RoomDoubleBookedRule struct {
	*BaseRule
}

// NewRoomDoubleBookedRule 创建诊间重复预约规则
func NewRoomDoubleBookedRule(weight float64) *RoomDoubleBookedRule {
	return &RoomDoubleBookedRule{
		BaseRule: NewBaseRule(constraint.TypeRoomDoubleBooked, "诊间重复预约", constraint.CategoryHard, weight, model.TierR4),
	}
}

// Evaluate 按名单顺序，第一个申请者保留格子，其余各记一次违反
func (r *RoomDoubleBookedRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	first := make(map[int]string)
	for _, p := range ctx.Persons(r.Tiers()) {
		cell, ok := ctx.FixedCell(p)
		if !ok {
			continue
		}
		if holder, taken := first[cell]; taken {
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, cell),
				"%s already booked by %s, %s cannot also take it", ctx.Cell(cell).Slot, holder, p.ID))
			continue
		}
		first[cell] = p.ID
	}
	return out
}
