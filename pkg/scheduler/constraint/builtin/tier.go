package builtin

import (
	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// tiersWhere 返回满足条件的层级
func tiersWhere(cat *catalog.Catalog, pred func(*catalog.TierRules) bool) []model.Tier {
	var out []model.Tier
	for _, t := range model.Tiers {
		if tr := cat.Tier(t); tr != nil && pred(tr) {
			out = append(out, t)
		}
	}
	return out
}

// HealthQuotaRule 配额单位必须恰好排满体检配额
type HealthQuotaRule struct {
	*BaseRule
}

// NewR1HealthQuotaRule 创建体检配额规则
func NewR1HealthQuotaRule(cat *catalog.Catalog) *HealthQuotaRule {
	tiers := tiersWhere(cat, func(tr *catalog.TierRules) bool {
		for _, u := range tr.Units {
			if u.HealthCheckQuota > 0 {
				return true
			}
		}
		return false
	})
	return &HealthQuotaRule{
		BaseRule: NewBaseRule(constraint.TypeR1HealthQuota, "体检配额", constraint.CategoryHard,
			cat.RuleWeight(string(constraint.TypeR1HealthQuota)), tiers...),
	}
}

// Evaluate 体检格子数必须等于配额
func (r *HealthQuotaRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		quota := healthCheckQuota(ctx, p)
		if quota == 0 {
			continue
		}
		if n := len(ctx.HealthCheckCells(p.ID)); n != quota {
			out = append(out, r.CreateViolation(p.ID, nil,
				"%s must have exactly %d health-check slots, has %d", p, quota, n))
		}
	}
	return out
}

// SharedRoomOnceRule 共享诊间每人每周恰好 N 次
type SharedRoomOnceRule struct {
	*BaseRule
}

// NewSharedRoomOnceRule 创建共享诊间次数规则
func NewSharedRoomOnceRule(cat *catalog.Catalog) *SharedRoomOnceRule {
	tiers := tiersWhere(cat, func(tr *catalog.TierRules) bool { return tr.SharedRoomExactly > 0 })
	return &SharedRoomOnceRule{
		BaseRule: NewBaseRule(constraint.TypeSharedRoomOnce, "共享诊间次数", constraint.CategoryHard,
			cat.RuleWeight(string(constraint.TypeSharedRoomOnce)), tiers...),
	}
}

func sharedRoomCount(ctx *constraint.Context, p *model.Person, except int) int {
	n := 0
	for _, i := range ctx.CellsOf(p.ID) {
		if i != except && ctx.Cell(i).Slot.Room == ctx.Catalog.SharedRoom {
			n++
		}
	}
	return n
}

// Evaluate 次数不等于要求时记一次违反
func (r *SharedRoomOnceRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		want := ctx.TierRules(p).SharedRoomExactly
		if n := sharedRoomCount(ctx, p, -1); n != want {
			out = append(out, r.CreateViolation(p.ID, nil,
				"%s must have exactly %d clinic in %s, has %d", p, want, ctx.Catalog.SharedRoom, n))
		}
	}
	return out
}

// Admits 共享诊间次数已满则拒绝
func (r *SharedRoomOnceRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	if ctx.Cell(cell).Slot.Room != ctx.Catalog.SharedRoom {
		return true
	}
	return sharedRoomCount(ctx, p, cell) < ctx.TierRules(p).SharedRoomExactly
}

// SplitHalvesRule 两个以上门诊不得全在同一时段
type SplitHalvesRule struct {
	*BaseRule
}

// NewSplitHalvesRule 创建上下午分开规则
func NewSplitHalvesRule(cat *catalog.Catalog) *SplitHalvesRule {
	tiers := tiersWhere(cat, func(tr *catalog.TierRules) bool { return tr.SplitHalves })
	return &SplitHalvesRule{
		BaseRule: NewBaseRule(constraint.TypeSplitHalves, "门诊上下午分开", constraint.CategoryHard,
			cat.RuleWeight(string(constraint.TypeSplitHalves)), tiers...),
	}
}

// Evaluate 门诊全在上午或全在下午时记一次违反
func (r *SplitHalvesRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		clinics := ctx.ClinicCells(p.ID)
		if len(clinics) < 2 {
			continue
		}
		first := ctx.Cell(clinics[0]).Slot.Time
		split := false
		for _, i := range clinics[1:] {
			if ctx.Cell(i).Slot.Time != first {
				split = true
				break
			}
		}
		if !split {
			out = append(out, r.CreateViolation(p.ID, nil,
				"%s has %d clinics all in the %s", p, len(clinics), first))
		}
	}
	return out
}

// RequireMorningRule 至少一个上午门诊（固定门诊人员除外）
type RequireMorningRule struct {
	*BaseRule
}

// NewRequireMorningRule 创建上午门诊规则
func NewRequireMorningRule(cat *catalog.Catalog) *RequireMorningRule {
	tiers := tiersWhere(cat, func(tr *catalog.TierRules) bool { return tr.RequireMorning })
	return &RequireMorningRule{
		BaseRule: NewBaseRule(constraint.TypeRequireMorning, "至少一个上午门诊", constraint.CategoryHard,
			cat.RuleWeight(string(constraint.TypeRequireMorning)), tiers...),
	}
}

// Evaluate 没有上午门诊时记一次违反
func (r *RequireMorningRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Persons(r.Tiers()) {
		if p.HasFixedSchedule() {
			continue
		}
		morning := false
		for _, i := range ctx.ClinicCells(p.ID) {
			if ctx.Cell(i).Slot.Time == model.Morning {
				morning = true
				break
			}
		}
		if !morning {
			out = append(out, r.CreateViolation(p.ID, nil, "%s needs at least one morning clinic", p))
		}
	}
	return out
}

// HealthCheckParticipationRule 体检人员应至少排一次体检
type HealthCheckParticipationRule struct {
	*BaseRule
}

// NewHealthCheckParticipationRule 创建体检参与规则
func NewHealthCheckParticipationRule(weight float64) *HealthCheckParticipationRule {
	return &HealthCheckParticipationRule{
		BaseRule: NewBaseRule(constraint.TypeHealthCheckParticipation, "体检人员参与体检", constraint.CategorySoft, weight),
	}
}

// Evaluate 标记为体检但没有体检格子时记一次违反
func (r *HealthCheckParticipationRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	var out []constraint.Violation
	for _, p := range ctx.Roster.All() {
		if p.HealthCheck && len(ctx.HealthCheckCells(p.ID)) == 0 {
			out = append(out, r.CreateViolation(p.ID, nil, "%s needs a health-check assignment", p))
		}
	}
	return out
}
