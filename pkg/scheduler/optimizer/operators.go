package optimizer

import (
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// tournament 随机抽取 k 个个体，返回其中最优者
func (o *GeneticOptimizer) tournament(population []*Individual) *Individual {
	best := population[o.rng.Intn(len(population))]
	for i := 1; i < o.config.TournamentSize; i++ {
		c := population[o.rng.Intn(len(population))]
		if c.Result.Better(best.Result) {
			best = c
		}
	}
	return best
}

// crossover 随机选择按天或按层级交换整块分配，产生两个子代
func (o *GeneticOptimizer) crossover(roster *model.Roster, a, b *grid.Grid) (*grid.Grid, *grid.Grid) {
	if o.rng.Intn(2) == 0 {
		return DayCrossover(a, b, model.Days[o.rng.Intn(len(model.Days))])
	}
	tiers := []model.Tier{model.TierR2, model.TierR3, model.TierR4}
	return TierCrossover(roster, a, b, tiers[o.rng.Intn(len(tiers))])
}

// DayCrossover 交换两个父代某一天的全部未锁定格子
func DayCrossover(a, b *grid.Grid, day model.Day) (*grid.Grid, *grid.Grid) {
	c1, c2 := a.Clone(), b.Clone()
	for i := 0; i < c1.Len(); i++ {
		if c1.Cell(i).Slot.Day != day || c1.IsLocked(i) || c2.IsLocked(i) {
			continue
		}
		c1.Set(i, b.Occupant(i))
		c2.Set(i, a.Occupant(i))
	}
	return c1, c2
}

// TierCrossover 交换两个父代某一层级的分配
//
// 子代先清空本层级人员的未锁定格子，再填入另一父代中该层级的分配；
// 目标格子已被其他层级占用时保留原占用者。
func TierCrossover(roster *model.Roster, a, b *grid.Grid, tier model.Tier) (*grid.Grid, *grid.Grid) {
	return takeTier(roster, a, b, tier), takeTier(roster, b, a, tier)
}

func takeTier(roster *model.Roster, into, from *grid.Grid, tier model.Tier) *grid.Grid {
	child := into.Clone()
	inTier := func(id string) bool {
		p := roster.Get(id)
		return p != nil && p.Tier == tier
	}
	for i := 0; i < child.Len(); i++ {
		if !child.IsLocked(i) && inTier(child.Occupant(i)) {
			child.Vacate(i)
		}
	}
	for i := 0; i < child.Len(); i++ {
		if occ := from.Occupant(i); inTier(occ) && child.IsEmpty(i) {
			child.Set(i, occ)
		}
	}
	return child
}
