package swap

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

func person(id string, tier model.Tier, unit string) *model.Person {
	return &model.Person{ID: id, Tier: tier, Name: id, RotationUnit: unit}
}

// setup 预排结果：A 周一、B 周二、C 周三、D 周四、E 周五，均为 4204 下午
func setup(t *testing.T) (*Evaluator, *solver.Preview) {
	t.Helper()
	health := person("R1_A", model.TierR1, "health")
	health.HealthCheck = true
	ped := person("R1_D", model.TierR1, "pediatric-ward")
	ped.HealthCheck = true
	roster := model.NewRoster([]*model.Person{
		health,
		person("R1_B", model.TierR1, "community-1"),
		person("R1_C", model.TierR1, "internal-ward"),
		ped,
		person("R1_E", model.TierR1, "mental-1"),
		person("R3_Z", model.TierR3, "douliu-1"),
	})

	cat := catalog.MustDefault()
	layout := grid.NewLayout(cat)
	pv, err := solver.NewPreAssigner(cat, roster, layout).Assign(context.Background())
	require.NoError(t, err)
	require.Empty(t, pv.Unplaced)
	return NewEvaluator(cat, roster, layout), pv
}

func hasRule(list []string, rule string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, "["+rule+"]") {
			return true
		}
	}
	return false
}

func TestApply_Move(t *testing.T) {
	ev, pv := setup(t)
	ed := ev.Editor()

	out, err := ed.Apply(pv, Edit{Kind: KindMove, PersonID: "R1_C", Unassign: true})
	require.NoError(t, err)
	assert.NotContains(t, out.ClinicAssignments, "R1_C")
	assert.Equal(t, []string{"R1_C"}, out.Unplaced)

	// 原预览不变
	assert.Equal(t, model.Wednesday, pv.ClinicAssignments["R1_C"].Day)
	assert.Empty(t, pv.Unplaced)

	back, err := ed.Apply(out, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Wednesday})
	require.NoError(t, err)
	assert.Equal(t, pv.ClinicAssignments["R1_C"], back.ClinicAssignments["R1_C"])
	assert.Empty(t, back.Unplaced)
	assert.Equal(t, []string{"R1_C"}, out.Unplaced)
}

func TestApply_Swap(t *testing.T) {
	ev, pv := setup(t)

	out, err := ev.Editor().Apply(pv, Edit{Kind: KindSwap, PersonID: "R1_C", OtherID: "R1_D"})
	require.NoError(t, err)
	assert.Equal(t, model.Thursday, out.ClinicAssignments["R1_C"].Day)
	assert.Equal(t, "R1_C", out.ClinicAssignments["R1_C"].PersonInfo.ID)
	assert.Equal(t, model.Wednesday, out.ClinicAssignments["R1_D"].Day)
	assert.Equal(t, "R1_D", out.ClinicAssignments["R1_D"].PersonInfo.ID)
	assert.Equal(t, model.Wednesday, pv.ClinicAssignments["R1_C"].Day)
}

func TestApply_Invalid(t *testing.T) {
	ev, pv := setup(t)
	unassigned, err := ev.Editor().Apply(pv, Edit{Kind: KindMove, PersonID: "R1_E", Unassign: true})
	require.NoError(t, err)

	tests := []struct {
		name string
		pv   *solver.Preview
		edit Edit
	}{
		{"未知人员", pv, Edit{Kind: KindMove, PersonID: "R1_X", Day: model.Monday}},
		{"非 R1 人员", pv, Edit{Kind: KindMove, PersonID: "R3_Z", Day: model.Monday}},
		{"当天无空闲诊间", pv, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Thursday}},
		{"无效日期", pv, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Day(7)}},
		{"与自己互换", pv, Edit{Kind: KindSwap, PersonID: "R1_C", OtherID: "R1_C"}},
		{"与未排人员互换", unassigned, Edit{Kind: KindSwap, PersonID: "R1_C", OtherID: "R1_E"}},
		{"未知编辑类型", pv, Edit{Kind: "drag", PersonID: "R1_C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Editor().Apply(tt.pv, tt.edit)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))
		})
	}
}

func TestEvaluator_NoViolations(t *testing.T) {
	ev, pv := setup(t)

	vs, err := ev.Violations(pv)
	require.NoError(t, err)
	assert.Empty(t, vs)
	assert.NoError(t, ev.ValidateEdits(pv))

	res, err := ev.Check(pv, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Wednesday})
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Introduced)
	assert.Empty(t, res.Violations)
	assert.Equal(t, "可以进行，编辑后无硬约束冲突", res.Recommendation)
}

func TestEvaluator_SwapIntoBan(t *testing.T) {
	ev, pv := setup(t)

	res, err := ev.Check(pv, Edit{Kind: KindSwap, PersonID: "R1_C", OtherID: "R1_E"})
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.True(t, hasRule(res.Introduced, "unit_banned_slot"), res.Introduced)
	assert.Empty(t, res.Resolved)
	assert.Equal(t, "不建议进行此编辑，存在硬约束冲突", res.Recommendation)

	err = ev.ValidateEdits(res.Preview)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdit))
	assert.Equal(t, 2, apperrors.ExitCode(err))
}

func TestEvaluator_SwapIntoFullDay(t *testing.T) {
	ev, pv := setup(t)

	// D 周三上午有体检，换到周三下午门诊即全天
	res, err := ev.Check(pv, Edit{Kind: KindSwap, PersonID: "R1_C", OtherID: "R1_D"})
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.True(t, hasRule(res.Introduced, "no_full_day"), res.Introduced)

	found := false
	for _, c := range res.Conflicts {
		if c.PersonID == "R1_D" && c.Type == "full_day" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Error(t, ev.ValidateEdits(res.Preview))
}

func TestEvaluator_HealthPinMoved(t *testing.T) {
	ev, pv := setup(t)

	res, err := ev.Check(pv, Edit{Kind: KindSwap, PersonID: "R1_A", OtherID: "R1_B"})
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.True(t, hasRule(res.Introduced, "r1_health_monday"), res.Introduced)
	assert.True(t, hasRule(res.Introduced, "r1_community_tuesday"), res.Introduced)
}

func TestEvaluator_UnassignAndResolve(t *testing.T) {
	ev, pv := setup(t)

	res, err := ev.Check(pv, Edit{Kind: KindMove, PersonID: "R1_C", Unassign: true})
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.True(t, hasRule(res.Introduced, "r1_clinic_room"), res.Introduced)

	back, err := ev.Check(res.Preview, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Wednesday})
	require.NoError(t, err)
	assert.True(t, back.Feasible)
	assert.True(t, hasRule(back.Resolved, "r1_clinic_room"), back.Resolved)
	assert.Equal(t, "推荐，编辑消除了已有冲突", back.Recommendation)
}

func TestRecommender_Suggest(t *testing.T) {
	ev, pv := setup(t)
	edited, err := ev.Editor().Apply(pv, Edit{Kind: KindMove, PersonID: "R1_C", Unassign: true})
	require.NoError(t, err)

	recs, err := NewRecommender(ev).Suggest(edited, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Edit{Kind: KindMove, PersonID: "R1_C", Day: model.Wednesday}, recs[0].Edit)
	assert.Equal(t, "4204", recs[0].Room)
	assert.Equal(t, 0, recs[0].Remaining)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Contains(t, recs[0].Reason, "R1_C")

	recs, err = NewRecommender(ev).Suggest(edited, &RecommendOptions{ExcludeDays: []model.Day{model.Wednesday}})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// 没有未排人员时无推荐
	recs, err = NewRecommender(ev).Suggest(pv, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
