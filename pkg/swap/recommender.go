package swap

import (
	"fmt"
	"sort"

	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

// Recommender 调班推荐器：为未排的 R1 人员寻找无冲突的门诊日
type Recommender struct {
	evaluator *Evaluator
	roster    *model.Roster
}

// NewRecommender 创建调班推荐器
func NewRecommender(evaluator *Evaluator) *Recommender {
	return &Recommender{evaluator: evaluator, roster: evaluator.roster}
}

// Recommendation 调班推荐
type Recommendation struct {
	Edit      Edit   `json:"edit"`
	Room      string `json:"room"`
	Remaining int    `json:"remaining"` // 编辑后预览剩余硬冲突数
	Reason    string `json:"reason"`
	Rank      int    `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int         // 最大推荐数量
	ExcludePersons     []string    // 排除的人员
	ExcludeDays        []model.Day // 排除的日期
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
	}
}

// Suggest 列出让未排人员获得门诊且不引入新冲突的调班
func (r *Recommender) Suggest(pv *solver.Preview, options *RecommendOptions) ([]Recommendation, error) {
	if options == nil {
		options = DefaultRecommendOptions()
	}

	excludePerson := make(map[string]bool)
	for _, id := range options.ExcludePersons {
		excludePerson[id] = true
	}
	excludeDay := make(map[model.Day]bool)
	for _, d := range options.ExcludeDays {
		excludeDay[d] = true
	}

	candidates := make([]Recommendation, 0)
	for _, p := range r.roster.ByTier(model.TierR1) {
		if excludePerson[p.ID] || !pv.IsUnplaced(p.ID) {
			continue
		}
		// 已有门诊的未排人员是体检不足，调班无法补足
		if _, ok := pv.ClinicAssignments[p.ID]; ok {
			continue
		}
		for _, day := range model.Days {
			if excludeDay[day] {
				continue
			}
			edit := Edit{Kind: KindMove, PersonID: p.ID, Day: day}
			if _, err := r.evaluator.editor.Apply(pv, edit); err != nil {
				continue
			}
			ev, err := r.evaluator.Check(pv, edit)
			if err != nil {
				return nil, err
			}
			if !ev.Feasible || hasPerson(ev, p.ID) {
				continue
			}
			c := ev.Preview.ClinicAssignments[p.ID]
			candidates = append(candidates, Recommendation{
				Edit:      edit,
				Room:      c.Room,
				Remaining: len(ev.Violations),
				Reason:    reason(p, c),
			})
		}
	}

	// 剩余冲突少的优先，其余保持名单与日期顺序
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Remaining < candidates[j].Remaining
	})

	if options.MaxRecommendations > 0 && len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// hasPerson 编辑后该人员是否仍有硬冲突
func hasPerson(ev *Evaluation, id string) bool {
	for _, c := range ev.Conflicts {
		if c.PersonID == id {
			return true
		}
	}
	for _, v := range ev.violations {
		if v.PersonID == id {
			return true
		}
	}
	return false
}

func reason(p *model.Person, c solver.ClinicAssignment) string {
	return fmt.Sprintf("%s (%s) 可排 %s %s，无新增硬约束冲突", p.ID, p.RotationUnit, c.HalfDay(), c.Room)
}
