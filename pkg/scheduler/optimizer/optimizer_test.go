package optimizer

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

func person(id string, tier model.Tier, unit string) *model.Person {
	return &model.Person{ID: id, Tier: tier, Name: id, RotationUnit: unit}
}

func defaultRoster() *model.Roster {
	health := person("R1_A", model.TierR1, "health")
	health.HealthCheck = true
	ped := person("R1_D", model.TierR1, "pediatric-ward")
	ped.HealthCheck = true
	sleep := person("R4_A", model.TierR4, "sleep")
	sleep.TuesdayTeaching = true
	sleep.FixedSchedule = &model.FixedSlot{Day: model.Wednesday, Time: model.Morning, Room: "4208"}
	return model.NewRoster([]*model.Person{
		health,
		person("R1_B", model.TierR1, "community-1"),
		person("R1_C", model.TierR1, "internal-ward"),
		ped,
		person("R1_E", model.TierR1, "mental-1"),
		person("R2_A", model.TierR2, "ent"),
		person("R2_B", model.TierR2, "neurology"),
		person("R2_C", model.TierR2, "community-2"),
		person("R2_D", model.TierR2, "rehab"),
		person("R3_A", model.TierR3, "cr"),
		person("R3_B", model.TierR3, "urology"),
		person("R3_C", model.TierR3, "geriatrics"),
		person("R3_Z", model.TierR3, "douliu-1"),
		sleep,
		person("R4_B", model.TierR4, "travel"),
		person("R4_C", model.TierR4, "other"),
	})
}

// setupDefault 默认目录：R1 预排并锁定后的初始方案
func setupDefault(t *testing.T) (*fitness.Evaluator, *grid.Grid) {
	t.Helper()
	cat := catalog.MustDefault()
	roster := defaultRoster()
	layout := grid.NewLayout(cat)
	a := solver.NewPreAssigner(cat, roster, layout)
	pv, err := a.Assign(context.Background())
	require.NoError(t, err)
	base, err := a.Base(pv)
	require.NoError(t, err)
	return fitness.NewEvaluator(cat, roster, builtin.NewManager(cat)), base
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 12
	cfg.MinPopulation = 12
	cfg.MaxPopulation = 12
	cfg.MaxGenerations = 5
	cfg.StagnationLimit = 0
	cfg.Deadline = time.Minute
	cfg.Workers = 2
	cfg.Seed = 7
	return cfg
}

type recorder struct {
	mu       sync.Mutex
	elites   []*fitness.Result
	best     []float64
	finished int
}

func (r *recorder) Generation(gen int, elite, best *fitness.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elites = append(r.elites, elite)
	r.best = append(r.best, best.Fitness)
}

func (r *recorder) Finished(*Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func assertLocksKept(t *testing.T, base, g *grid.Grid) {
	t.Helper()
	for i := 0; i < base.Len(); i++ {
		if base.IsLocked(i) {
			assert.True(t, g.IsLocked(i))
			assert.Equal(t, base.Occupant(i), g.Occupant(i), "locked %s changed", base.Cell(i).Slot)
		}
	}
}

func TestAdaptivePopulation(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 300, cfg.AdaptivePopulation(21, 12, 10))
	assert.Equal(t, 20, cfg.AdaptivePopulation(1, 4, 10))
	assert.Equal(t, 500, cfg.AdaptivePopulation(60, 12, 10))

	small := cfg.AdaptivePopulation(16, 12, 10)
	assert.Greater(t, small, 20)
	assert.Less(t, small, 300)
}

func TestOptimize_MaxGenerations(t *testing.T) {
	ev, base := setupDefault(t)
	obs := &recorder{}
	o := NewGeneticOptimizer(testConfig(), ev)
	o.SetObserver(obs)

	res, err := o.Optimize(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, StopMaxGenerations, res.StopReason)
	assert.Equal(t, 5, res.Generations)
	assert.Equal(t, 12, res.PopulationSize)
	assert.Equal(t, 1, obs.finished)

	// 精英保留：每代最优个体不劣于上一代
	require.Len(t, obs.elites, 5)
	for i := 1; i < len(obs.elites); i++ {
		prev, cur := obs.elites[i-1], obs.elites[i]
		assert.False(t, prev.Better(cur), "generation %d elite %.4f worse than %.4f", i+1, cur.Fitness, prev.Fitness)
		assert.GreaterOrEqual(t, cur.Fitness, prev.Fitness)
	}
	assert.InDelta(t, obs.elites[4].Fitness, obs.best[4], 1e-9)
	assert.InDelta(t, res.Fitness.Fitness, obs.best[4], 1e-9)

	assertLocksKept(t, base, res.Grid)
	assert.Empty(t, grid.DoubleBookings(res.Grid))
	assert.InDelta(t, ev.Evaluate(res.Grid).Fitness, res.Fitness.Fitness, 1e-9)
}

func TestBreed_ElitePreserved(t *testing.T) {
	ev, base := setupDefault(t)
	cfg := testConfig()
	cfg.MutationRate = 1
	cfg.CrossoverRate = 1
	o := NewGeneticOptimizer(cfg, ev)

	population, err := o.initialize(context.Background(), context.Background(), base, 12)
	require.NoError(t, err)
	require.Len(t, population, 12)
	elite := fittest(population)
	before := elite.Grid.Clone()

	next := o.breed(population, elite, 12)
	require.Len(t, next, 12)

	// 第一个子代是精英的副本，未经交叉变异
	assert.True(t, next[0].Equal(elite.Grid))
	assert.NotSame(t, elite.Grid, next[0])
	assert.InDelta(t, elite.Result.Fitness, ev.Evaluate(next[0]).Fitness, 1e-9)
	assert.True(t, elite.Grid.Equal(before), "elite changed by breeding")
}

func TestOptimize_Cancelled(t *testing.T) {
	ev, base := setupDefault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewGeneticOptimizer(testConfig(), ev).Optimize(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.StopReason)
	assert.Equal(t, 0, res.Generations)
	require.NotNil(t, res.Grid)
	assertLocksKept(t, base, res.Grid)
}

func TestOptimize_Deadline(t *testing.T) {
	ev, base := setupDefault(t)
	cfg := testConfig()
	cfg.Deadline = time.Nanosecond
	cfg.MaxGenerations = 1000

	res, err := NewGeneticOptimizer(cfg, ev).Optimize(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, StopDeadline, res.StopReason)
	require.NotNil(t, res.Fitness)
	assertLocksKept(t, base, res.Grid)
}

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

func TestOptimize_Stagnation(t *testing.T) {
	cat, err := catalog.Parse([]byte(tinyCatalog))
	require.NoError(t, err)
	roster := model.NewRoster([]*model.Person{person("R1_A", model.TierR1, "a")})
	ev := fitness.NewEvaluator(cat, roster, builtin.NewManager(cat))

	cfg := testConfig()
	cfg.MinPopulation = 4
	cfg.MaxGenerations = 50
	cfg.StagnationLimit = 3

	res, err := NewGeneticOptimizer(cfg, ev).Optimize(context.Background(), grid.New(grid.NewLayout(cat)))
	require.NoError(t, err)
	assert.Equal(t, StopStagnation, res.StopReason)
	assert.Equal(t, 3, res.Generations)
	assert.True(t, res.Fitness.Feasible(), "%v", res.Fitness.HardStrings())
	assert.InDelta(t, 100.0, res.Fitness.Fitness, 1e-9)
}

func TestDayCrossover(t *testing.T) {
	ev, base := setupDefault(t)
	a, b := base.Clone(), base.Clone()
	rules := ev.Rules()
	_, err := solver.NewRandomFiller(rules, rand.New(rand.NewSource(1))).Fill(context.Background(), newContext(ev, a))
	require.NoError(t, err)
	_, err = solver.NewRandomFiller(rules, rand.New(rand.NewSource(2))).Fill(context.Background(), newContext(ev, b))
	require.NoError(t, err)

	c1, c2 := DayCrossover(a, b, model.Wednesday)
	for i := 0; i < base.Len(); i++ {
		if base.Cell(i).Slot.Day == model.Wednesday && !base.IsLocked(i) {
			assert.Equal(t, b.Occupant(i), c1.Occupant(i))
			assert.Equal(t, a.Occupant(i), c2.Occupant(i))
			continue
		}
		assert.Equal(t, a.Occupant(i), c1.Occupant(i))
		assert.Equal(t, b.Occupant(i), c2.Occupant(i))
	}
	assertLocksKept(t, base, c1)
	assertLocksKept(t, base, c2)
}

func TestTierCrossover(t *testing.T) {
	ev, base := setupDefault(t)
	roster := ev.Roster()
	a, b := base.Clone(), base.Clone()
	_, err := solver.NewRandomFiller(ev.Rules(), rand.New(rand.NewSource(3))).Fill(context.Background(), newContext(ev, a))
	require.NoError(t, err)
	_, err = solver.NewRandomFiller(ev.Rules(), rand.New(rand.NewSource(4))).Fill(context.Background(), newContext(ev, b))
	require.NoError(t, err)

	c1, _ := TierCrossover(roster, a, b, model.TierR2)
	for i := 0; i < base.Len(); i++ {
		if base.IsLocked(i) {
			continue
		}
		occ := c1.Occupant(i)
		if p := roster.Get(occ); p != nil && p.Tier == model.TierR2 {
			assert.Equal(t, b.Occupant(i), occ, "R2 cells come from the other parent")
		}
		if p := roster.Get(a.Occupant(i)); p != nil && p.Tier != model.TierR2 {
			assert.Equal(t, a.Occupant(i), occ, "other tiers stay")
		}
	}
	assertLocksKept(t, base, c1)
}

func TestMutator_KeepsLocks(t *testing.T) {
	ev, base := setupDefault(t)
	g := base.Clone()
	_, err := solver.NewGreedyFiller(ev.Rules()).Fill(context.Background(), newContext(ev, g))
	require.NoError(t, err)

	m := NewMutator(ev, rand.New(rand.NewSource(11)))
	changed := 0
	for i := 0; i < 200; i++ {
		if m.Mutate(g) {
			changed++
		}
	}
	assert.Positive(t, changed)
	assertLocksKept(t, base, g)
	assert.Empty(t, grid.DoubleBookings(g))
}

func TestParallelEvaluator(t *testing.T) {
	ev, base := setupDefault(t)
	grids := make([]*grid.Grid, 6)
	for i := range grids {
		grids[i] = base.Clone()
		_, err := solver.NewRandomFiller(ev.Rules(), rand.New(rand.NewSource(int64(i+1)))).
			Fill(context.Background(), newContext(ev, grids[i]))
		require.NoError(t, err)
	}

	p := NewParallelEvaluator(3, ev)
	results, err := p.EvaluateBatch(context.Background(), grids)
	require.NoError(t, err)
	require.Len(t, results, len(grids))
	for i, g := range grids {
		assert.InDelta(t, ev.Evaluate(g).Fitness, results[i].Fitness, 1e-9)
	}

	best := FindBest(results)
	require.GreaterOrEqual(t, best, 0)
	for _, r := range results {
		assert.False(t, r.Better(results[best]))
	}
	assert.Equal(t, -1, FindBest(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.EvaluateBatch(ctx, grids)
	assert.ErrorIs(t, err, context.Canceled)
}
