package optimizer

import (
	"context"
	"math/rand"

	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

// initialize 生成初始种群
//
// 第一个个体是贪心填充的初始方案，即使时间预算已耗尽也会生成；
// 其余个体在初始方案基础上随机填充，锁定格子保持不变。
func (o *GeneticOptimizer) initialize(ctx, runCtx context.Context, base *grid.Grid, size int) ([]*Individual, error) {
	rules := o.evaluator.Rules()

	seed := base.Clone()
	if _, err := solver.NewGreedyFiller(rules).Fill(context.WithoutCancel(ctx), newContext(o.evaluator, seed)); err != nil {
		return nil, err
	}
	population := []*Individual{{Grid: seed, Result: o.evaluator.Evaluate(seed)}}

	grids := make([]*grid.Grid, 0, size-1)
	for len(grids) < size-1 {
		g := base.Clone()
		filler := solver.NewRandomFiller(rules, rand.New(rand.NewSource(o.rng.Int63())))
		if _, err := filler.Fill(runCtx, newContext(o.evaluator, g)); err != nil {
			return population, nil
		}
		grids = append(grids, g)
	}

	scores, err := o.parallel.EvaluateBatch(runCtx, grids)
	if err != nil {
		return population, nil
	}
	for i, g := range grids {
		population = append(population, &Individual{Grid: g, Result: scores[i]})
	}
	return population, nil
}
