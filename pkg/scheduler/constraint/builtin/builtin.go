package builtin

import (
	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// NewManager 按目录创建权重并注册全部内置规则
func NewManager(cat *catalog.Catalog) *constraint.Manager {
	m := constraint.NewManager(cat.Weights.Hard, cat.Weights.Soft)
	RegisterCatalogRules(m, cat)
	return m
}

// RegisterCatalogRules 注册目录驱动的全部规则
func RegisterCatalogRules(m *constraint.Manager, cat *catalog.Catalog) {
	w := func(t constraint.Type) float64 { return cat.RuleWeight(string(t)) }

	// 结构性
	m.Register(NewNoDoubleBookingRule(w(constraint.TypeNoDoubleBooking)))
	m.Register(NewUnknownOccupantRule(w(constraint.TypeUnknownOccupant)))
	m.Register(NewAllRoomsFilledRule(w(constraint.TypeAllRoomsFilled)))
	m.Register(NewHealthCheckCoverageRule(w(constraint.TypeHealthCheckCoverage)))
	m.Register(NewNoFullDayRule(w(constraint.TypeNoFullDay)))

	// 诊间归属
	m.Register(NewSharedRoomTiersRule(w(constraint.TypeSharedRoomTiers)))
	m.Register(NewReservedRoomTierRule(w(constraint.TypeReservedRoomTier)))
	m.Register(NewHealthCheckEligibilityRule(w(constraint.TypeHealthCheckEligibility)))

	// 单位
	m.Register(NewUnitBannedSlotRule(w(constraint.TypeUnitBannedSlot)))
	m.Register(NewMaxClinicsRule(w(constraint.TypeMaxClinics)))
	for _, id := range cat.PinRules(true) {
		m.Register(NewPinRule(cat, id, true))
	}
	for _, id := range cat.PinRules(false) {
		m.Register(NewPinRule(cat, id, false))
	}

	// 层级
	if cat.Tier(model.TierR1) != nil {
		m.Register(NewR1ClinicRoomRule(w(constraint.TypeR1ClinicRoom)))
	}
	for _, r := range []constraint.Rule{
		NewR1HealthQuotaRule(cat),
		NewSharedRoomOnceRule(cat),
		NewSplitHalvesRule(cat),
		NewRequireMorningRule(cat),
	} {
		if len(r.Tiers()) > 0 {
			m.Register(r)
		}
	}

	// R4
	m.Register(NewR4TuesdayTeachingRule(w(constraint.TypeR4TuesdayTeaching)))
	m.Register(NewR4FixedScheduleRule(w(constraint.TypeR4FixedSchedule)))
	m.Register(NewR4FixedExclusiveRule(w(constraint.TypeR4FixedExclusive)))
	m.Register(NewRoomDoubleBookedRule(w(constraint.TypeRoomDoubleBooked)))

	// 软规则
	m.Register(NewHealthCheckParticipationRule(w(constraint.TypeHealthCheckParticipation)))
}
