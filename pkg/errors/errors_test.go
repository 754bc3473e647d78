package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndIs(t *testing.T) {
	base := fmt.Errorf("yaml: line 3")
	err := Wrap(base, CodeConfig, "规则目录格式错误")

	assert.True(t, Is(err, CodeConfig))
	assert.False(t, Is(err, CodeInternal))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "CONFIG_ERROR")

	wrapped := fmt.Errorf("load: %w", err)
	assert.Equal(t, CodeConfig, GetCode(wrapped))
	assert.Equal(t, CodeUnknown, GetCode(base))
}

func TestInfeasible(t *testing.T) {
	items := []string{"unit_hard_pin: R3/douliu-1 Tuesday Morning 4201"}
	err := Infeasible("名单无法满足强制指定班", items)

	require.True(t, Is(err, CodeNoFeasibleSolution))
	assert.Equal(t, items, Unsatisfiable(err))
	assert.Contains(t, err.Details, "douliu-1")

	items[0] = "changed"
	assert.NotEqual(t, "changed", Unsatisfiable(err)[0], "错误持有副本")
	assert.Nil(t, Unsatisfiable(fmt.Errorf("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "无错误", err: nil, want: 0},
		{name: "输入无效", err: InvalidInput("roster", "empty"), want: 2},
		{name: "配置错误", err: ConfigError("missing tier R4"), want: 3},
		{name: "无可行解", err: Infeasible("x", nil), want: 4},
		{name: "未知错误", err: fmt.Errorf("boom"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	assert.False(t, ve.HasErrors())
	ve.Add("R1.R1_A.rotation_unit", "unknown unit")
	ve.Add("R4.R4_B.fixed_schedule.room", "room 4201 not available")
	require.True(t, ve.HasErrors())

	app := ve.ToAppError()
	assert.Equal(t, CodeValidationFail, app.Code)
	assert.Len(t, app.Fields, 2)
	assert.Contains(t, ve.Error(), "R1.R1_A.rotation_unit")
}
