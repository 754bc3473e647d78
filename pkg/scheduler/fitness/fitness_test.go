package fitness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

const tinyCatalog = `
shared_room: S
reserved_room: R
shared_room_tiers: [R2, R3]
reserved_room_tier: R1
rooms: [{id: S, kind: clinic}, {id: R, kind: clinic}, {id: C, kind: clinic}, {id: H, kind: health_check}]
schedule:
  - {day: Tuesday, time: Afternoon, required: [R], optional: [C, H]}
tiers:
  - {tier: R1, max_clinics: 1, clinic_rooms: [R], clinic_times: [Afternoon], units: [{name: a}]}
  - {tier: R2, max_clinics: 2, units: [{name: b}]}
  - {tier: R3, max_clinics: 3, units: [{name: c}]}
  - {tier: R4, max_clinics: 3, units: [{name: d}]}
`

func setup(t *testing.T, yaml string, persons ...*model.Person) (*Evaluator, *grid.Grid) {
	t.Helper()
	cat, err := catalog.Parse([]byte(yaml))
	require.NoError(t, err)
	return setupCatalog(cat, persons...)
}

func setupCatalog(cat *catalog.Catalog, persons ...*model.Person) (*Evaluator, *grid.Grid) {
	ev := NewEvaluator(cat, model.NewRoster(persons), builtin.NewManager(cat))
	return ev, grid.New(grid.NewLayout(cat))
}

func find(t *testing.T, g *grid.Grid, day model.Day, ts model.TimeSlot, room string) int {
	t.Helper()
	i, ok := g.Layout().Find(model.Slot{Week: 1, Day: day, Time: ts, Room: room})
	require.True(t, ok)
	return i
}

func TestEvaluate_ZeroViolations(t *testing.T) {
	r1 := &model.Person{ID: "R1_A", Tier: model.TierR1, RotationUnit: "a"}
	ev, g := setup(t, tinyCatalog, r1)
	g.Set(find(t, g, model.Tuesday, model.Afternoon, "R"), r1.ID)

	res := ev.Evaluate(g)
	assert.True(t, res.Feasible(), "%v", res.HardStrings())
	assert.Empty(t, res.SoftViolations)
	assert.InDelta(t, 100.0, res.Fitness, 1e-9)
	assert.Equal(t, 1.0, res.Coverage.HealthCheckRate, "没有必排体检格子时覆盖率为 1")
}

func TestEvaluate_EmptyGrid(t *testing.T) {
	r1 := &model.Person{ID: "R1_A", Tier: model.TierR1, RotationUnit: "a"}
	ev, g := setup(t, tinyCatalog, r1)

	res := ev.Evaluate(g)
	assert.False(t, res.Feasible())
	assert.Len(t, res.HardViolations, 2)
	assert.InDelta(t, 50.0, res.CoverageTerm, 1e-9)
	assert.InDelta(t, 50.0-2000.0, res.Fitness, 1e-9)

	hard := res.HardStrings()
	assert.Contains(t, hard, "[all_rooms_filled] required clinic room W1 Tuesday Afternoon R is empty")
}

func TestEvaluate_OptionalEmptyNotPenalized(t *testing.T) {
	r1 := &model.Person{ID: "R1_A", Tier: model.TierR1, RotationUnit: "a"}
	ev, g := setup(t, tinyCatalog, r1)
	g.Set(find(t, g, model.Tuesday, model.Afternoon, "R"), r1.ID)

	res := ev.Evaluate(g)
	require.True(t, g.IsEmpty(find(t, g, model.Tuesday, model.Afternoon, "C")))
	assert.True(t, res.Feasible())
}

func TestEvaluate_Pure(t *testing.T) {
	ev, g := setupCatalog(catalog.MustDefault(),
		&model.Person{ID: "R2_A", Tier: model.TierR2, RotationUnit: "ent"})
	g.Set(0, "R2_A")
	g.Set(1, "R2_A")
	before := g.Clone()

	a := ev.Evaluate(g)
	b := ev.Evaluate(g)
	assert.True(t, g.Equal(before))
	assert.Equal(t, a.Fitness, b.Fitness)
	assert.Equal(t, a.HardStrings(), b.HardStrings())
}

func TestEvaluate_HardDominatesCoverage(t *testing.T) {
	a := &model.Person{ID: "R1_A", Tier: model.TierR1, RotationUnit: "a"}
	ev, g := setup(t, tinyCatalog, a)

	full := g.Clone()
	full.Set(find(t, full, model.Tuesday, model.Afternoon, "R"), a.ID)
	// 同半天重复排班：覆盖不变但产生硬违反
	bad := full.Clone()
	bad.Set(find(t, bad, model.Tuesday, model.Afternoon, "C"), "R1_A")

	good := ev.Evaluate(full)
	worse := ev.Evaluate(bad)
	assert.True(t, good.Better(worse))
	assert.False(t, worse.Better(good))
	assert.Less(t, worse.Fitness, good.Fitness-500)
}

func TestMeasure(t *testing.T) {
	cat := catalog.MustDefault()
	g := grid.New(grid.NewLayout(cat))

	c := Measure(g)
	assert.Equal(t, 46, c.ClinicRequired)
	assert.Equal(t, 15, c.HealthCheckRequired)
	assert.Zero(t, c.ClinicRate)

	g.Set(find(t, g, model.Monday, model.Morning, "HC1"), "x")
	c = Measure(g)
	assert.Equal(t, 1, c.HealthCheckFilled)
	assert.InDelta(t, 1.0/15, c.HealthCheckRate, 1e-9)
}
