// Package builtin 提供内置排班规则实现
package builtin

import (
	"fmt"

	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
)

// BaseRule 规则基类
type BaseRule struct {
	typ      constraint.Type
	name     string
	category constraint.Category
	weight   float64
	tiers    []model.Tier
}

// NewBaseRule 创建基础规则
func NewBaseRule(typ constraint.Type, name string, cat constraint.Category, weight float64, tiers ...model.Tier) *BaseRule {
	if weight <= 0 {
		weight = 1
	}
	return &BaseRule{
		typ:      typ,
		name:     name,
		category: cat,
		weight:   weight,
		tiers:    tiers,
	}
}

// Type 返回规则编号
func (r *BaseRule) Type() constraint.Type { return r.typ }

// Name 返回规则名称
func (r *BaseRule) Name() string { return r.name }

// Category 返回规则类别
func (r *BaseRule) Category() constraint.Category { return r.category }

// Weight 返回规则权重倍数
func (r *BaseRule) Weight() float64 { return r.weight }

// Tiers 返回适用层级
func (r *BaseRule) Tiers() []model.Tier { return r.tiers }

// CreateViolation 创建违反详情
func (r *BaseRule) CreateViolation(personID string, slot *model.Slot, format string, args ...interface{}) constraint.Violation {
	return constraint.Violation{
		Rule:     r.typ,
		Category: r.category,
		PersonID: personID,
		Slot:     slot,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Evaluate 默认评估实现（子类需覆盖）
func (r *BaseRule) Evaluate(ctx *constraint.Context) []constraint.Violation {
	return nil
}

// Admits 默认不限制放置
func (r *BaseRule) Admits(ctx *constraint.Context, p *model.Person, cell int) bool {
	return true
}

func slotOf(ctx *constraint.Context, cell int) *model.Slot {
	s := ctx.Cell(cell).Slot
	return &s
}
