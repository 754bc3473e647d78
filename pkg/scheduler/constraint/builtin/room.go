package builtin

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// SharedRoomTiersRule 共享诊间只允许指定层级使用
type SharedRoomTiersRule struct {
	*BaseRule
}

// NewSharedRoomTiersRule 创建共享诊间层级规则
func NewSharedRoomTiersRule(weight float64) *SharedRoomTiersRule {
	return &SharedRoomTiersRule{
		BaseRule: NewBaseRule(constraint.TypeSharedRoomTiers, "共享诊间层级限制", constraint.CategoryHard, weight),
	}
}

// Evaluate 检查共享诊间的每个格子
func (r *SharedRoomTiersRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	cat := ctx.Catalog
	for i := 0; i < ctx.Grid.Len(); i++ {
		c := ctx.Cell(i)
		if c.Slot.Room != cat.SharedRoom {
			continue
		}
		p := ctx.Person(ctx.Grid.Occupant(i))
		if p != nil && !cat.IsSharedRoomTier(p.Tier) {
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
				"%s (%s) cannot use shared room %s at %s", p.ID, p.Tier, cat.SharedRoom, c.HalfDay()))
		}
	}
	return out
}

// Admits 非共享层级不得放入共享诊间
func (r *SharedRoomTiersRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return ctx.Cell(cell).Slot.Room != ctx.Catalog.SharedRoom || ctx.Catalog.IsSharedRoomTier(p.Tier)
}

// ReservedRoomTierRule 保留诊间只允许保留层级使用
type ReservedRoomTierRule struct {
	*BaseRule
}

// NewReservedRoomTierRule 创建保留诊间规则
func NewReservedRoomTierRule(weight float64) *ReservedRoomTierRule {
	return &ReservedRoomTierRule{
		BaseRule: NewBaseRule(constraint.TypeReservedRoomTier, "保留诊间层级限制", constraint.CategoryHard, weight),
	}
}

// Evaluate 检查保留诊间的每个格子
func (r *ReservedRoomTierRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	cat := ctx.Catalog
	for i := 0; i < ctx.Grid.Len(); i++ {
		c := ctx.Cell(i)
		if c.Slot.Room != cat.ReservedRoom {
			continue
		}
		p := ctx.Person(ctx.Grid.Occupant(i))
		if p != nil && p.Tier != cat.ReservedRoomTier {
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
				"%s (%s) cannot use %s-reserved room %s at %s", p.ID, p.Tier, cat.ReservedRoomTier, cat.ReservedRoom, c.HalfDay()))
		}
	}
	return out
}

// Admits 非保留层级不得放入保留诊间
func (r *ReservedRoomTierRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return ctx.Cell(cell).Slot.Room != ctx.Catalog.ReservedRoom || p.Tier == ctx.Catalog.ReservedRoomTier
}

// HealthCheckEligibilityRule 体检诊间只允许体检人员，配额单位不得超额
type HealthCheckEligibilityRule struct {
	*BaseRule
}

// NewHealthCheckEligibilityRule 创建体检资格规则
func NewHealthCheckEligibilityRule(weight float64) *HealthCheckEligibilityRule {
	return &HealthCheckEligibilityRule{
		BaseRule: NewBaseRule(constraint.TypeHealthCheckEligibility, "体检诊间资格", constraint.CategoryHard, weight),
	}
}

func healthCheckQuota(ctx *constraint.Context, p *model.Person) int {
	if u := ctx.Unit(p); u != nil {
		return u.HealthCheckQuota
	}
	return 0
}

func eligibleForHealthCheck(ctx *constraint.Context, p *model.Person) bool {
	return p.HealthCheck || healthCheckQuota(ctx, p) > 0
}

// Evaluate 检查每个体检格子
func (r *HealthCheckEligibilityRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for i := 0; i < ctx.Grid.Len(); i++ {
		c := ctx.Cell(i)
		if !c.HealthCheck {
			continue
		}
		p := ctx.Person(ctx.Grid.Occupant(i))
		if p != nil && !eligibleForHealthCheck(ctx, p) {
			out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
				"%s is not on health-check duty but assigned to %s", p.ID, c.Slot))
		}
	}
	return out
}

// Admits 无资格或配额已满时拒绝
func (r *HealthCheckEligibilityRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	if !ctx.Cell(cell).HealthCheck {
		return true
	}
	if !eligibleForHealthCheck(ctx, p) {
		return false
	}
	quota := healthCheckQuota(ctx, p)
	if quota == 0 {
		return true
	}
	n := 0
	for _, i := range ctx.HealthCheckCells(p.ID) {
		if i != cell {
			n++
		}
	}
	return n < quota
}

// TierClinicRoomRule 层级门诊诊间/时段限制，且每人至少一个门诊
type TierClinicRoomRule struct {
	*BaseRule
}

// NewR1ClinicRoomRule 创建 R1 门诊诊间规则
func NewR1ClinicRoomRule(weight float64) *TierClinicRoomRule {
	return &TierClinicRoomRule{
		BaseRule: NewBaseRule(constraint.TypeR1ClinicRoom, "R1 门诊只能在保留诊间下午", constraint.CategoryHard, weight, model.TierR1),
	}
}

// Evaluate 检查每人的门诊格子
func (r *TierClinicRoomRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		tr := ctx.TierRules(p)
		if tr == nil {
			continue
		}
		clinics := ctx.ClinicCells(p.ID)
		if len(clinics) == 0 {
			out = append(out, r.CreateViolation(p.ID, nil, "%s has no clinic assignment", p))
			continue
		}
		for _, i := range clinics {
			s := ctx.Cell(i).Slot
			if !tr.AllowsClinic(s.Room, s.Time) {
				out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
					"%s clinic must be in %v %v, assigned to %s", p.ID, tr.ClinicRooms, tr.ClinicTimes, s))
			}
		}
	}
	return out
}

// Admits 门诊格子必须满足层级诊间和时段
func (r *TierClinicRoomRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	c := ctx.Cell(cell)
	if c.HealthCheck {
		return true
	}
	tr := ctx.TierRules(p)
	return tr == nil || tr.AllowsClinic(c.Slot.Room, c.Slot.Time)
}
