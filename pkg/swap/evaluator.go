package swap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
	"github.com/menzhen/menzhen/pkg/validator"
)

// Evaluator 编辑评估器：用 R1 适用的硬规则检查编辑后的预览
type Evaluator struct {
	catalog  *catalog.Catalog
	roster   *model.Roster
	editor   *Editor
	assigner *solver.PreAssigner
	rules    *constraint.Manager
	detector *validator.ConflictDetector
}

// NewEvaluator 创建编辑评估器
func NewEvaluator(cat *catalog.Catalog, roster *model.Roster, layout *grid.Layout) *Evaluator {
	all := builtin.NewManager(cat)
	r1 := make(map[constraint.Type]bool)
	for _, r := range all.RulesFor(model.TierR1) {
		r1[r.Type()] = true
	}
	rules := all.Filter(func(r constraint.Rule) bool {
		switch r.Type() {
		case constraint.TypeAllRoomsFilled, constraint.TypeHealthCheckCoverage:
			// 预览只含 R1，覆盖率在全局搜索后才有意义
			return false
		}
		return r.Category() == constraint.CategoryHard && r1[r.Type()]
	})

	return &Evaluator{
		catalog:  cat,
		roster:   roster,
		editor:   NewEditor(cat, roster, layout),
		assigner: solver.NewPreAssigner(cat, roster, layout),
		rules:    rules,
		detector: validator.NewConflictDetector(cat, validator.DefaultDetectorConfig()),
	}
}

// Evaluation 编辑评估结果
type Evaluation struct {
	Feasible       bool                 `json:"feasible"`
	Violations     []string             `json:"violations"` // 编辑后全部 R1 硬冲突
	Introduced     []string             `json:"introduced"` // 编辑新增
	Resolved       []string             `json:"resolved"`   // 编辑消除
	Conflicts      []validator.Conflict `json:"conflicts,omitempty"`
	Recommendation string               `json:"recommendation"`
	Preview        *solver.Preview      `json:"preview"`

	violations []constraint.Violation
}

// Editor 返回评估器使用的编辑器
func (e *Evaluator) Editor() *Editor { return e.editor }

// Violations 返回预览中 R1 人员的硬冲突
func (e *Evaluator) Violations(pv *solver.Preview) ([]constraint.Violation, error) {
	g, err := e.assigner.Base(pv)
	if err != nil {
		return nil, err
	}
	res := e.rules.Evaluate(constraint.NewContext(e.catalog, e.roster, g))
	out := make([]constraint.Violation, 0)
	for _, v := range res.HardViolations {
		if e.isR1(v.PersonID) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Conflicts 返回预览中 R1 人员的排班冲突
func (e *Evaluator) Conflicts(pv *solver.Preview) ([]validator.Conflict, error) {
	g, err := e.assigner.Base(pv)
	if err != nil {
		return nil, err
	}
	var out []validator.Conflict
	for _, c := range e.detector.DetectAll(g, e.roster) {
		if e.isR1(c.PersonID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Check 评估一次编辑：应用到副本并对比编辑前后的硬冲突
func (e *Evaluator) Check(pv *solver.Preview, edit Edit) (*Evaluation, error) {
	before, err := e.Violations(pv)
	if err != nil {
		return nil, err
	}
	edited, err := e.editor.Apply(pv, edit)
	if err != nil {
		return nil, err
	}
	after, err := e.Violations(edited)
	if err != nil {
		return nil, err
	}
	conflicts, err := e.Conflicts(edited)
	if err != nil {
		return nil, err
	}

	oldSet := toSet(before)
	newSet := toSet(after)
	result := &Evaluation{
		Violations: constraint.Strings(after),
		Introduced: diff(newSet, oldSet),
		Resolved:   diff(oldSet, newSet),
		Conflicts:  conflicts,
		Preview:    edited,
		violations: after,
	}
	result.Feasible = len(result.Introduced) == 0 && !validator.HasErrors(conflicts)
	result.Recommendation = recommendation(result)
	return result, nil
}

// ValidateEdits 检查重新提交的预览是否满足编辑约定：无同半天重复、无禁排、无全天
func (e *Evaluator) ValidateEdits(pv *solver.Preview) error {
	conflicts, err := e.Conflicts(pv)
	if err != nil {
		return err
	}
	var msgs []string
	for _, c := range conflicts {
		if c.Severity == validator.SeverityError {
			msgs = append(msgs, c.Message)
		}
	}
	if len(msgs) > 0 {
		return apperrors.InvalidEdit(fmt.Sprintf("预览存在 %d 处冲突", len(msgs))).
			WithDetails(strings.Join(msgs, "; "))
	}
	return nil
}

func (e *Evaluator) isR1(id string) bool {
	p := e.roster.Get(id)
	return p != nil && p.Tier == model.TierR1
}

func toSet(vs []constraint.Violation) map[string]bool {
	out := make(map[string]bool, len(vs))
	for _, v := range vs {
		out[v.String()] = true
	}
	return out
}

// diff 返回 a 中有而 b 中没有的项（字母序）
func diff(a, b map[string]bool) []string {
	out := make([]string, 0)
	for s := range a {
		if !b[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// recommendation 生成编辑建议
func recommendation(r *Evaluation) string {
	switch {
	case !r.Feasible:
		return "不建议进行此编辑，存在硬约束冲突"
	case len(r.Resolved) > 0:
		return "推荐，编辑消除了已有冲突"
	case len(r.Violations) > 0:
		return "可以进行，但预览仍有未解决的冲突"
	default:
		return "可以进行，编辑后无硬约束冲突"
	}
}
