package optimizer

import (
	"context"
	"math/rand"

	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/fitness"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

// MoveType 变异操作类型
type MoveType int

const (
	MoveReassign     MoveType = iota // 格子改派给另一名合格人员
	MoveVacateRefill                 // 清空某人的一个格子后重新填充
	MoveSwap                         // 交换两名合格占用者
)

// Mutator 变异器；只修改未锁定格子
type Mutator struct {
	evaluator   *fitness.Evaluator
	rng         *rand.Rand
	moveWeights map[MoveType]float64
}

// NewMutator 创建变异器
func NewMutator(evaluator *fitness.Evaluator, rng *rand.Rand) *Mutator {
	return &Mutator{
		evaluator: evaluator,
		rng:       rng,
		moveWeights: map[MoveType]float64{
			MoveReassign:     0.4, // 40% 改派
			MoveVacateRefill: 0.3, // 30% 清空重填
			MoveSwap:         0.3, // 30% 交换
		},
	}
}

// Mutate 随机执行一次变异，返回是否修改了方案
func (m *Mutator) Mutate(g *grid.Grid) bool {
	sc := newContext(m.evaluator, g)
	switch m.selectMoveType() {
	case MoveVacateRefill:
		return m.vacateRefill(sc)
	case MoveSwap:
		return m.swap(sc)
	default:
		return m.reassign(sc)
	}
}

// selectMoveType 按权重选择变异类型
func (m *Mutator) selectMoveType() MoveType {
	r := m.rng.Float64()
	cumulative := 0.0
	for _, t := range []MoveType{MoveReassign, MoveVacateRefill, MoveSwap} {
		cumulative += m.moveWeights[t]
		if r < cumulative {
			return t
		}
	}
	return MoveReassign
}

func (m *Mutator) filler() *solver.Filler {
	return solver.NewRandomFiller(m.evaluator.Rules(), m.rng)
}

// unlocked 返回满足条件的未锁定格子
func unlocked(g *grid.Grid, keep func(i int) bool) []int {
	var out []int
	for i := 0; i < g.Len(); i++ {
		if !g.IsLocked(i) && keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// reassign 随机选一个必排格子，改派给另一名合格人员
func (m *Mutator) reassign(sc *constraint.Context) bool {
	cells := unlocked(sc.Grid, func(i int) bool { return sc.Cell(i).Required })
	if len(cells) == 0 {
		return false
	}
	cell := cells[m.rng.Intn(len(cells))]
	old := sc.Grid.Occupant(cell)
	sc.Set(cell, "")
	for _, p := range m.filler().Candidates(sc, cell) {
		if p.ID != old {
			return sc.Set(cell, p.ID)
		}
	}
	sc.Set(cell, old)
	return false
}

// vacateRefill 清空一个已占用格子，再随机填充全部空缺必排格子
func (m *Mutator) vacateRefill(sc *constraint.Context) bool {
	cells := unlocked(sc.Grid, func(i int) bool { return !sc.Grid.IsEmpty(i) })
	if len(cells) == 0 {
		return false
	}
	sc.Set(cells[m.rng.Intn(len(cells))], "")
	_, _ = m.filler().Fill(context.Background(), sc)
	return true
}

// swap 交换两个不同人员的格子，两人都能合规接手对方格子时才执行
func (m *Mutator) swap(sc *constraint.Context) bool {
	cells := unlocked(sc.Grid, func(i int) bool { return !sc.Grid.IsEmpty(i) })
	if len(cells) < 2 {
		return false
	}
	i := cells[m.rng.Intn(len(cells))]
	j := cells[m.rng.Intn(len(cells))]
	a, b := sc.Grid.Occupant(i), sc.Grid.Occupant(j)
	if a == b {
		return false
	}
	pa, pb := sc.Person(a), sc.Person(b)
	if pa == nil || pb == nil {
		return false
	}

	rules := m.evaluator.Rules()
	sc.Set(i, "")
	sc.Set(j, "")
	okB, _ := rules.CanAssign(sc, pb, i)
	if okB {
		sc.Set(i, b)
		if okA, _ := rules.CanAssign(sc, pa, j); okA {
			sc.Set(j, a)
			return true
		}
	}
	sc.Set(i, a)
	sc.Set(j, b)
	return false
}
