package solver

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

func person(id string, tier model.Tier, unit string) *model.Person {
	return &model.Person{ID: id, Tier: tier, Name: id, RotationUnit: unit}
}

// douliu 满足强制指定班
func douliu() *model.Person { return person("R3_Z", model.TierR3, "douliu-1") }

func newAssigner(persons ...*model.Person) *PreAssigner {
	cat := catalog.MustDefault()
	return NewPreAssigner(cat, model.NewRoster(persons), grid.NewLayout(cat))
}

func r1Roster() []*model.Person {
	health := person("R1_A", model.TierR1, "health")
	health.HealthCheck = true
	ped := person("R1_D", model.TierR1, "pediatric-ward")
	ped.HealthCheck = true
	return []*model.Person{
		health,
		person("R1_B", model.TierR1, "community-1"),
		person("R1_C", model.TierR1, "internal-ward"),
		ped,
		person("R1_E", model.TierR1, "mental-1"),
		douliu(),
	}
}

func TestAssign_CommunityTuesday(t *testing.T) {
	// 名单只有一名 community-1 R1，其余层级为空
	a := newAssigner(person("R1_A", model.TierR1, "community-1"))
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)

	require.Contains(t, pv.ClinicAssignments, "R1_A")
	c := pv.ClinicAssignments["R1_A"]
	assert.Equal(t, model.Tuesday, c.Day)
	assert.Equal(t, model.Afternoon, c.Time)
	assert.Equal(t, "4204", c.Room)
	assert.Equal(t, "community-1", c.PersonInfo.RotationUnit)
	assert.Empty(t, pv.Unplaced)

	g, err := a.Base(pv)
	require.NoError(t, err)
	sc := constraint.NewContext(a.catalog, a.roster, g)
	pin := builtin.NewPinRule(a.catalog, "r1_community_tuesday", true)
	assert.Empty(t, pin.Evaluate(sc))

	counts := builtin.NewManager(a.catalog).Evaluate(sc).CountByRule()
	assert.Zero(t, counts[constraint.Type("r1_community_tuesday")])
}

func TestAssign_FullR1Tier(t *testing.T) {
	a := newAssigner(r1Roster()...)
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pv.Unplaced)

	days := map[string]model.Day{}
	for id, c := range pv.ClinicAssignments {
		assert.Equal(t, "4204", c.Room)
		assert.Equal(t, model.Afternoon, c.Time)
		days[id] = c.Day
	}
	assert.Equal(t, map[string]model.Day{
		"R1_A": model.Monday,
		"R1_B": model.Tuesday,
		"R1_C": model.Wednesday,
		"R1_D": model.Thursday,
		"R1_E": model.Friday,
	}, days)

	// 体检单位：8 个半天，跳过本人门诊半天和其他单位的体检指定班
	var got []model.HalfDay
	for _, ref := range pv.HealthCheckAssignments["R1_A"] {
		got = append(got, model.HalfDay{Day: ref.Day, Time: ref.Time})
		assert.Equal(t, "HC1", ref.Room)
	}
	assert.Equal(t, []model.HalfDay{
		{Day: model.Monday, Time: model.Morning},
		{Day: model.Tuesday, Time: model.Morning},
		{Day: model.Tuesday, Time: model.Afternoon},
		{Day: model.Wednesday, Time: model.Afternoon},
		{Day: model.Thursday, Time: model.Morning},
		{Day: model.Thursday, Time: model.Afternoon},
		{Day: model.Friday, Time: model.Morning},
		{Day: model.Friday, Time: model.Afternoon},
	}, got)

	assert.Equal(t, []model.SlotRef{{Day: model.Wednesday, Time: model.Morning, Room: "HC1"}},
		pv.HealthCheckAssignments["R1_D"])

	g, err := a.Base(pv)
	require.NoError(t, err)
	assert.Empty(t, grid.DoubleBookings(g))
	sc := constraint.NewContext(a.catalog, a.roster, g)
	m := builtin.NewManager(a.catalog)
	for _, v := range m.Evaluate(sc).HardViolations {
		if v.PersonID != "" && v.PersonID[:2] == "R1" {
			t.Errorf("R1 hard violation: %s", v)
		}
	}
}

func TestAssign_Unplaced(t *testing.T) {
	var persons []*model.Person
	for _, id := range []string{"R1_A", "R1_B", "R1_C", "R1_D", "R1_E", "R1_F"} {
		persons = append(persons, person(id, model.TierR1, "emergency"))
	}
	a := newAssigner(persons...)
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)

	assert.Len(t, pv.ClinicAssignments, 5)
	assert.Equal(t, []string{"R1_F"}, pv.Unplaced)
}

func TestAssign_WardBanned(t *testing.T) {
	a := newAssigner(person("R1_A", model.TierR1, "obgyn-ward"))
	cands := a.ClinicCandidates(a.roster.Get("R1_A"))
	var days []model.Day
	for _, c := range cands {
		days = append(days, a.layout.Cell(c).Slot.Day)
	}
	assert.Equal(t, []model.Day{model.Tuesday, model.Wednesday, model.Thursday}, days)

	volunteer := person("R1_B", model.TierR1, "obgyn-ward")
	volunteer.HealthCheck = true
	days = nil
	for _, c := range a.ClinicCandidates(volunteer) {
		days = append(days, a.layout.Cell(c).Slot.Day)
	}
	assert.Equal(t, []model.Day{model.Tuesday, model.Thursday}, days, "体检志愿者周三上午体检，当天不排门诊")
}

func TestCheckFeasible(t *testing.T) {
	a := newAssigner(person("R1_A", model.TierR1, "emergency"))
	pv, err := a.Assign(context.Background())
	require.NoError(t, err, "预排不判定强制指定班")
	assert.Contains(t, pv.ClinicAssignments, "R1_A")

	assert.NoError(t, CheckFeasible(a.catalog, model.NewRoster([]*model.Person{douliu()})))

	err = CheckFeasible(a.catalog, a.roster)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNoFeasibleSolution))

	items := apperrors.Unsatisfiable(err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], "douliu-1")
	assert.Equal(t, 4, apperrors.ExitCode(err))
}

func TestAssign_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAssigner(person("R1_A", model.TierR1, "emergency")).Assign(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxMatching(t *testing.T) {
	// 按顺序贪心时 0 先占 1，1 无格可排；最大流把 0 改派到 2
	m, err := maxMatching(context.Background(), [][]int{{1, 2}, {1}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.size())
	c0, _ := m.cellOf(0)
	c1, _ := m.cellOf(1)
	assert.Equal(t, 2, c0)
	assert.Equal(t, 1, c1)

	m, err = maxMatching(context.Background(), [][]int{{1}, {1}, {}})
	require.NoError(t, err)
	assert.Equal(t, 1, m.size())
	assert.False(t, m.matched(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = maxMatching(ctx, [][]int{{1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignClinics_DistinctCells(t *testing.T) {
	// 两名急诊 R1 候选相同，贪心没有落空，结果保持贪心顺序
	a := newAssigner(
		person("R1_A", model.TierR1, "emergency"),
		person("R1_B", model.TierR1, "emergency"),
	)
	g := grid.New(a.layout)
	placed, err := a.assignClinics(context.Background(), g, a.roster.ByTier(model.TierR1))
	require.NoError(t, err)
	require.Len(t, placed, 2)
	assert.NotEqual(t, placed["R1_A"], placed["R1_B"])
}

func TestFixedEcho_Contested(t *testing.T) {
	first := person("R4_A", model.TierR4, "other")
	first.FixedSchedule = &model.FixedSlot{Day: model.Wednesday, Time: model.Afternoon, Room: "4209"}
	second := person("R4_B", model.TierR4, "sleep")
	second.FixedSchedule = &model.FixedSlot{Day: model.Wednesday, Time: model.Afternoon, Room: "4209"}
	open := person("R4_C", model.TierR4, "travel")
	open.FixedSchedule = &model.FixedSlot{Day: model.Monday, Time: model.Morning}
	a := newAssigner(first, second, open)

	pv, err := a.Assign(context.Background())
	require.NoError(t, err)
	require.Len(t, pv.R4Fixed, 3)
	assert.True(t, pv.R4Fixed["R4_A"].Placed)
	assert.False(t, pv.R4Fixed["R4_B"].Placed)
	assert.Equal(t, "4209", pv.R4Fixed["R4_B"].Room)
	assert.Equal(t, "4203", pv.R4Fixed["R4_C"].Room)

	g, err := a.Base(pv)
	require.NoError(t, err)
	cell, _ := a.layout.Find(model.Slot{Week: 1, Day: model.Wednesday, Time: model.Afternoon, Room: "4209"})
	assert.True(t, g.IsLocked(cell))
	assert.Equal(t, "R4_A", g.Occupant(cell))

	sc := constraint.NewContext(a.catalog, a.roster, g)
	res := builtin.NewManager(a.catalog).Evaluate(sc)
	counts := res.CountByRule()
	assert.Equal(t, 1, counts[constraint.TypeRoomDoubleBooked])
	assert.Equal(t, 1, counts[constraint.TypeR4FixedSchedule])
}

func TestBase_RoomPin(t *testing.T) {
	a := newAssigner(douliu())
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)
	g, err := a.Base(pv)
	require.NoError(t, err)

	cell, _ := a.layout.Find(model.Slot{Week: 1, Day: model.Tuesday, Time: model.Morning, Room: "4201"})
	assert.Equal(t, "R3_Z", g.Occupant(cell))
	assert.True(t, g.IsLocked(cell))
}

func TestBase_InvalidPreview(t *testing.T) {
	a := newAssigner(r1Roster()...)
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)

	dup := pv.Clone()
	c := dup.ClinicAssignments["R1_C"]
	c.Day = model.Monday
	dup.ClinicAssignments["R1_C"] = c
	_, err = a.Base(dup)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))

	ghost := pv.Clone()
	ghost.ClinicAssignments["R2_X"] = ClinicAssignment{Day: model.Friday, Time: model.Afternoon, Room: "4204"}
	_, err = a.Base(ghost)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))

	noRoom := pv.Clone()
	c = noRoom.ClinicAssignments["R1_E"]
	c.Time = model.Morning
	noRoom.ClinicAssignments["R1_E"] = c
	_, err = a.Base(noRoom)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))

	// 原预览不受影响
	_, err = a.Base(pv)
	assert.NoError(t, err)
}

func TestFiller(t *testing.T) {
	cat := catalog.MustDefault()
	persons := append(r1Roster(),
		person("R2_A", model.TierR2, "ent"),
		person("R2_B", model.TierR2, "dermatology"),
		person("R3_A", model.TierR3, "urology"),
		person("R4_A", model.TierR4, "travel"),
	)
	roster := model.NewRoster(persons)
	a := NewPreAssigner(cat, roster, grid.NewLayout(cat))
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)
	m := builtin.NewManager(cat)

	for _, f := range []*Filler{NewGreedyFiller(m), NewRandomFiller(m, rand.New(rand.NewSource(7)))} {
		g, err := a.Base(pv)
		require.NoError(t, err)
		sc := constraint.NewContext(cat, roster, g)

		n, err := f.Fill(context.Background(), sc)
		require.NoError(t, err)
		assert.Positive(t, n)
		assert.Empty(t, grid.DoubleBookings(g))

		counts := m.Evaluate(sc).CountByRule()
		for _, typ := range []constraint.Type{
			constraint.TypeNoDoubleBooking, constraint.TypeUnitBannedSlot, constraint.TypeNoFullDay,
			constraint.TypeReservedRoomTier, constraint.TypeSharedRoomTiers, constraint.TypeMaxClinics,
			constraint.TypeHealthCheckEligibility,
		} {
			assert.Zero(t, counts[typ], typ)
		}
	}
}

func TestFiller_Cancelled(t *testing.T) {
	cat := catalog.MustDefault()
	roster := model.NewRoster([]*model.Person{person("R2_A", model.TierR2, "ent")})
	sc := constraint.NewContext(cat, roster, grid.New(grid.NewLayout(cat)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGreedyFiller(builtin.NewManager(cat)).Fill(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}
