package constraint

import (
	"sort"
	"sync"

	"github.com/menzhen/menzhen/pkg/logger"
	"github.com/menzhen/menzhen/pkg/model"
)

// Manager 规则管理器：扁平有序的规则集合
type Manager struct {
	rules      []Rule
	hardWeight float64
	softWeight float64
	mu         sync.RWMutex
	logger     *logger.SchedulerLogger
}

// NewManager 创建规则管理器，hard/soft 为基础惩罚权重
func NewManager(hard, soft float64) *Manager {
	return &Manager{
		rules:      make([]Rule, 0),
		hardWeight: hard,
		softWeight: soft,
		logger:     logger.NewSchedulerLogger(),
	}
}

// Register 注册规则，同编号规则被替换
func (m *Manager) Register(r Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.rules {
		if existing.Type() == r.Type() {
			m.logger.RuleReplaced(string(r.Type()))
			m.rules[i] = r
			return
		}
	}

	m.rules = append(m.rules, r)

	// 硬规则在前，权重高的在前，其余保持注册顺序
	sort.SliceStable(m.rules, func(i, j int) bool {
		ri, rj := m.rules[i], m.rules[j]
		if ri.Category() != rj.Category() {
			return ri.Category() == CategoryHard
		}
		return ri.Weight() > rj.Weight()
	})
}

// Unregister 注销规则
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.Type() == t {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return
		}
	}
}

// Get 获取规则
func (m *Manager) Get(t Type) Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.Type() == t {
			return r
		}
	}
	return nil
}

// GetAll 获取所有规则
func (m *Manager) GetAll() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Rule, len(m.rules))
	copy(result, m.rules)
	return result
}

// GetByCategory 按类别获取规则
func (m *Manager) GetByCategory(cat Category) []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Rule
	for _, r := range m.rules {
		if r.Category() == cat {
			result = append(result, r)
		}
	}
	return result
}

// RulesFor 返回适用于层级的有序规则（含全局规则）
func (m *Manager) RulesFor(tier model.Tier) []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Rule
	for _, r := range m.rules {
		if appliesTo(r, tier) {
			result = append(result, r)
		}
	}
	return result
}

// Filter 返回只含满足条件规则的新管理器
func (m *Manager) Filter(keep func(Rule) bool) *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub := &Manager{
		hardWeight: m.hardWeight,
		softWeight: m.softWeight,
		logger:     m.logger,
	}
	for _, r := range m.rules {
		if keep(r) {
			sub.rules = append(sub.rules, r)
		}
	}
	return sub
}

// Evaluate 评估所有规则；纯函数，不修改方案也不记录日志
func (m *Manager) Evaluate(ctx *Context) *Result {
	rules := m.GetAll()

	result := &Result{
		IsValid:        true,
		HardViolations: make([]Violation, 0),
		SoftViolations: make([]Violation, 0),
	}

	for _, r := range rules {
		for _, v := range r.Evaluate(ctx) {
			v.Rule = r.Type()
			v.Category = r.Category()
			if r.Category() == CategoryHard {
				v.Penalty = m.hardWeight * r.Weight()
				result.IsValid = false
				result.HardPenalty += v.Penalty
				result.HardViolations = append(result.HardViolations, v)
			} else {
				v.Penalty = m.softWeight * r.Weight()
				result.SoftPenalty += v.Penalty
				result.SoftViolations = append(result.SoftViolations, v)
			}
		}
	}

	return result
}

// CanAssign 检查人员能否放入格子（只检查适用的硬规则）
func (m *Manager) CanAssign(ctx *Context, p *model.Person, cell int) (bool, Type) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.Category() != CategoryHard || !appliesTo(r, p.Tier) {
			continue
		}
		if !r.Admits(ctx, p, cell) {
			return false, r.Type()
		}
	}
	return true, ""
}

// Count 返回规则数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Summary 返回规则摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	perTier := make(map[model.Tier]int)
	for _, r := range m.rules {
		if r.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
		for _, t := range model.Tiers {
			if appliesTo(r, t) {
				perTier[t]++
			}
		}
	}

	return map[string]interface{}{
		"total":    len(m.rules),
		"hard":     hard,
		"soft":     soft,
		"per_tier": perTier,
	}
}

func appliesTo(r Rule, tier model.Tier) bool {
	tiers := r.Tiers()
	if len(tiers) == 0 {
		return true
	}
	for _, t := range tiers {
		if t == tier {
			return true
		}
	}
	return false
}
