package solver

import (
	"context"
	"strconv"
	"strings"

	"github.com/lvlath/go/core"
	"github.com/lvlath/go/flow"
)

const (
	flowSource = "source"
	flowSink   = "sink"
)

// matcher 人员到格子的分配表，贪心阶段逐个登记
type matcher struct {
	owner   map[int]int
	cellFor []int
}

func newMatcher(n int) *matcher {
	m := &matcher{
		owner:   make(map[int]int),
		cellFor: make([]int, n),
	}
	for i := range m.cellFor {
		m.cellFor[i] = -1
	}
	return m
}

func (m *matcher) taken(cell int) bool {
	_, ok := m.owner[cell]
	return ok
}

func (m *matcher) matched(p int) bool { return m.cellFor[p] >= 0 }

func (m *matcher) cellOf(p int) (int, bool) {
	c := m.cellFor[p]
	return c, c >= 0
}

func (m *matcher) assign(p, cell int) {
	m.owner[cell] = p
	m.cellFor[p] = cell
}

func (m *matcher) size() int { return len(m.owner) }

func personVertex(p int) string { return "p:" + strconv.Itoa(p) }
func cellVertex(c int) string   { return "c:" + strconv.Itoa(c) }

// maxMatching 单位容量网络 source→人员→格子→sink 上求最大流，返回最大匹配
func maxMatching(ctx context.Context, cands [][]int) (*matcher, error) {
	g, err := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	if err != nil {
		return nil, err
	}
	for _, v := range []string{flowSource, flowSink} {
		if err := g.AddVertex(v); err != nil {
			return nil, err
		}
	}

	cells := make(map[int]bool)
	for p, cs := range cands {
		if _, err := g.AddEdge(flowSource, personVertex(p), 1); err != nil {
			return nil, err
		}
		for _, c := range cs {
			if _, err := g.AddEdge(personVertex(p), cellVertex(c), 1); err != nil {
				return nil, err
			}
			if !cells[c] {
				cells[c] = true
				if _, err := g.AddEdge(cellVertex(c), flowSink, 1); err != nil {
					return nil, err
				}
			}
		}
	}

	res, err := flow.MaxFlow(g, flowSource, flowSink,
		flow.WithAlgorithm(flow.AlgorithmDinic),
		flow.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}

	// 有流量的 人员→格子 弧在残量图中表现为 格子→人员 的反向弧
	m := newMatcher(len(cands))
	for _, e := range res.Residual.Edges() {
		if e.Weight <= 0 || !strings.HasPrefix(e.From, "c:") || !strings.HasPrefix(e.To, "p:") {
			continue
		}
		c, err := strconv.Atoi(strings.TrimPrefix(e.From, "c:"))
		if err != nil {
			return nil, err
		}
		p, err := strconv.Atoi(strings.TrimPrefix(e.To, "p:"))
		if err != nil {
			return nil, err
		}
		m.assign(p, c)
	}
	return m, nil
}
