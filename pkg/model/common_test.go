package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Day
		wantErr bool
	}{
		{name: "全称", input: "Monday", want: Monday},
		{name: "缩写", input: "thu", want: Thursday},
		{name: "大小写混合", input: " FRIDAY ", want: Friday},
		{name: "周末非法", input: "Saturday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeSlot(t *testing.T) {
	m, err := ParseTimeSlot("Morning")
	require.NoError(t, err)
	assert.Equal(t, Morning, m)

	a, err := ParseTimeSlot("pm")
	require.NoError(t, err)
	assert.Equal(t, Afternoon, a)
	assert.Equal(t, Morning, a.Other())

	_, err = ParseTimeSlot("evening")
	assert.Error(t, err)
}

func TestHalfDay_Order(t *testing.T) {
	all := HalfDays()
	require.Len(t, all, 10)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Before(all[i]), "%s 应早于 %s", all[i-1], all[i])
	}
	assert.Equal(t, 3, HalfDay{Day: Tuesday, Time: Afternoon}.Index())
}

func TestSlot_Less(t *testing.T) {
	a := Slot{Week: 1, Day: Monday, Time: Afternoon, Room: "4201"}
	b := Slot{Week: 1, Day: Tuesday, Time: Morning, Room: "4201"}
	c := Slot{Week: 1, Day: Tuesday, Time: Morning, Room: "4203"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestDay_JSONMapKey(t *testing.T) {
	in := map[Day]map[TimeSlot]string{Wednesday: {Afternoon: "4204"}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Wednesday":{"Afternoon":"4204"}}`, string(data))

	var out map[Day]map[TimeSlot]string
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
