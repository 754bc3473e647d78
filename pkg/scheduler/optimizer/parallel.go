package optimizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
)

// ParallelEvaluator 并行评估器
type ParallelEvaluator struct {
	workers   int
	evaluator *fitness.Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator *fitness.Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluateBatch 并行评估一批方案，结果与输入顺序一致
//
// 每个协程只写自己下标的结果；评估中途 ctx 取消时返回 ctx.Err()。
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, grids []*grid.Grid) ([]*fitness.Result, error) {
	results := make([]*fitness.Result, len(grids))
	if len(grids) == 0 {
		return results, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, g := range grids {
		i, g := i, g
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = p.evaluator.Evaluate(g)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FindBest 返回最优结果的下标，空输入返回 -1
func FindBest(results []*fitness.Result) int {
	best := -1
	for i, r := range results {
		if r == nil {
			continue
		}
		if best < 0 || r.Better(results[best]) {
			best = i
		}
	}
	return best
}
