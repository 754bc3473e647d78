package builtin

import (
	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// UnitBannedSlotRule 轮转单位禁排时段
type UnitBannedSlotRule struct {
	*BaseRule
}

// NewUnitBannedSlotRule 创建禁排规则
func NewUnitBannedSlotRule(weight float64) *UnitBannedSlotRule {
	return &UnitBannedSlotRule{
		BaseRule: NewBaseRule(constraint.TypeUnitBannedSlot, "轮转单位禁排时段", constraint.CategoryHard, weight),
	}
}

// Evaluate 每个落在禁排窗口的格子记一次违反
func (r *UnitBannedSlotRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Roster.All() {
		u := ctx.Unit(p)
		if u == nil || len(u.Banned) == 0 {
			continue
		}
		for _, i := range ctx.CellsOf(p.ID) {
			h := ctx.Cell(i).HalfDay()
			if u.IsBanned(h) {
				out = append(out, r.CreateViolation(p.ID, slotOf(ctx, i),
					"%s cannot work %s", p, h))
			}
		}
	}
	return out
}

// Admits 禁排半天拒绝
func (r *UnitBannedSlotRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	u := ctx.Unit(p)
	return u == nil || !u.IsBanned(ctx.Cell(cell).HalfDay())
}

// PinRule 轮转单位指定班；同一规则编号的指定班归为一条规则
type PinRule struct {
	*BaseRule
	pins []unitPin
}

type unitPin struct {
	unit *catalog.Unit
	pin  catalog.Pin
}

// NewPinRule 创建指定班规则，收集目录中规则编号为 id 的所有指定班
func NewPinRule(cat *catalog.Catalog, id string, hard bool) *PinRule {
	category := constraint.CategorySoft
	name := "轮转单位建议出诊时段"
	if hard {
		category = constraint.CategoryHard
		name = "轮转单位指定出诊时段"
	}

	var pins []unitPin
	var tiers []model.Tier
	seenTier := make(map[model.Tier]bool)
	for _, t := range model.Tiers {
		tr := cat.Tier(t)
		if tr == nil {
			continue
		}
		for _, u := range tr.Units {
			for _, p := range u.Pins {
				if p.Rule != id || p.Hard != hard {
					continue
				}
				pins = append(pins, unitPin{unit: u, pin: p})
				if !seenTier[t] {
					seenTier[t] = true
					tiers = append(tiers, t)
				}
			}
		}
	}

	return &PinRule{
		BaseRule: NewBaseRule(constraint.Type(id), name, category, cat.RuleWeight(id), tiers...),
		pins:     pins,
	}
}

// Pins 返回规则包含的指定班数量
func (r *PinRule) Pins() int { return len(r.pins) }

// Evaluate 每个未满足的指定班记一次违反；强制指定班缺人也记违反
func (r *PinRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	verb := "should"
	if r.Category() == constraint.CategoryHard {
		verb = "must"
	}

	var out []constraint.Violation
	for _, up := range r.pins {
		persons := ctx.Roster.ByUnit(up.unit.Tier, up.unit.Name)
		if up.pin.Mandatory && len(persons) == 0 {
			out = append(out, r.CreateViolation("", nil,
				"no %s %s person for mandatory pin %s", up.unit.Tier, up.unit.Name, up.pin))
			continue
		}
		for _, p := range persons {
			if !up.pin.AppliesTo(p) || pinSatisfied(ctx, p, up.pin) {
				continue
			}
			out = append(out, r.CreateViolation(p.ID, nil, "%s %s work %s", p, verb, up.pin))
		}
	}
	return out
}

func pinSatisfied(ctx *constraint.Context, p *model.Person, pin catalog.Pin) bool {
	for _, i := range ctx.CellsOf(p.ID) {
		c := ctx.Cell(i)
		if pin.Matches(c.Slot, c.HealthCheck) {
			return true
		}
	}
	return false
}

// MaxClinicsRule 每周门诊上限（单位上限优先于层级上限）
type MaxClinicsRule struct {
	*BaseRule
}

// NewMaxClinicsRule 创建门诊上限规则
func NewMaxClinicsRule(weight float64) *MaxClinicsRule {
	return &MaxClinicsRule{
		BaseRule: NewBaseRule(constraint.TypeMaxClinics, "每周门诊上限", constraint.CategoryHard, weight),
	}
}

// Evaluate 超出上限时记一次违反
func (r *MaxClinicsRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Roster.All() {
		limit := ctx.Catalog.MaxClinics(p)
		if n := len(ctx.ClinicCells(p.ID)); limit > 0 && n > limit {
			out = append(out, r.CreateViolation(p.ID, nil, "%s has %d clinics, max is %d", p, n, limit))
		}
	}
	return out
}

// Admits 门诊数已达上限则拒绝
func (r *MaxClinicsRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	if ctx.Cell(cell).HealthCheck {
		return true
	}
	limit := ctx.Catalog.MaxClinics(p)
	if limit <= 0 {
		return true
	}
	n := 0
	for _, i := range ctx.ClinicCells(p.ID) {
		if i != cell {
			n++
		}
	}
	return n < limit
}
