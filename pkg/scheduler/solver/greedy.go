package solver

import (
	"context"
	"math/rand"
	"sort"

	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// Filler 空缺格子填充器
//
// 不带随机源时为贪心：按格子顺序，候选按已排格子数升序（公平），再按名单顺序；
// 带随机源时格子和候选都随机打乱，用于生成初始种群。
type Filler struct {
	rules *constraint.Manager
	rng   *rand.Rand
}

// NewGreedyFiller 创建贪心填充器
func NewGreedyFiller(rules *constraint.Manager) *Filler {
	return &Filler{rules: rules}
}

// NewRandomFiller 创建随机填充器
func NewRandomFiller(rules *constraint.Manager, rng *rand.Rand) *Filler {
	return &Filler{rules: rules, rng: rng}
}

// Fill 为未锁定的空缺必排格子选择满足全部硬规则的人员，返回填充数
func (f *Filler) Fill(ctx context.Context, sc *constraint.Context) (int, error) {
	cells := make([]int, 0, sc.Grid.Len())
	for i := 0; i < sc.Grid.Len(); i++ {
		if sc.Cell(i).Required && sc.Grid.IsEmpty(i) && !sc.Grid.IsLocked(i) {
			cells = append(cells, i)
		}
	}
	if f.rng != nil {
		f.rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	}

	filled := 0
	for _, cell := range cells {
		if err := ctx.Err(); err != nil {
			return filled, err
		}
		cands := f.Candidates(sc, cell)
		if len(cands) == 0 {
			continue
		}
		if sc.Set(cell, cands[0].ID) {
			filled++
		}
	}
	return filled, nil
}

// Candidates 返回可放入格子的人员；贪心模式按工作量排序，随机模式打乱
func (f *Filler) Candidates(sc *constraint.Context, cell int) []*model.Person {
	var out []*model.Person
	for _, p := range sc.Roster.All() {
		if ok, _ := f.rules.CanAssign(sc, p, cell); ok {
			out = append(out, p)
		}
	}
	if f.rng != nil {
		f.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	// 工作量少的优先
	sort.SliceStable(out, func(i, j int) bool {
		return len(sc.CellsOf(out[i].ID)) < len(sc.CellsOf(out[j].ID))
	})
	return out
}
