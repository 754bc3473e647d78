// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// Tier 住院医师年资层级
type Tier string

const (
	TierR1 Tier = "R1" // 约束最多
	TierR2 Tier = "R2"
	TierR3 Tier = "R3"
	TierR4 Tier = "R4" // 约束最少
)

// Tiers 全部层级（按年资排序）
var Tiers = []Tier{TierR1, TierR2, TierR3, TierR4}

// Valid 检查层级是否合法
func (t Tier) Valid() bool {
	switch t {
	case TierR1, TierR2, TierR3, TierR4:
		return true
	}
	return false
}

// Day 工作日
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Days 一周工作日
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// String 返回完整英文名
func (d Day) String() string {
	if d < Monday || d > Friday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// Valid 检查是否为工作日
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

// ParseDay 解析工作日，支持全称和三字母缩写
func ParseDay(s string) (Day, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		lower := strings.ToLower(name)
		if v == lower || v == lower[:3] {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Day) UnmarshalText(b []byte) error {
	v, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// TimeSlot 时段
type TimeSlot int

const (
	Morning TimeSlot = iota
	Afternoon
)

// TimeSlots 全部时段
var TimeSlots = []TimeSlot{Morning, Afternoon}

// String 返回时段名
func (t TimeSlot) String() string {
	switch t {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	}
	return fmt.Sprintf("TimeSlot(%d)", int(t))
}

// Valid 检查时段是否合法
func (t TimeSlot) Valid() bool {
	return t == Morning || t == Afternoon
}

// Other 返回同一天的另一个时段
func (t TimeSlot) Other() TimeSlot {
	if t == Morning {
		return Afternoon
	}
	return Morning
}

// ParseTimeSlot 解析时段
func ParseTimeSlot(s string) (TimeSlot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning", "am", "m":
		return Morning, nil
	case "afternoon", "pm", "a":
		return Afternoon, nil
	}
	return 0, fmt.Errorf("unknown time slot %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (t TimeSlot) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid time slot %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *TimeSlot) UnmarshalText(b []byte) error {
	v, err := ParseTimeSlot(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// HalfDay 半天（日期 + 时段），双重排班按半天判定
type HalfDay struct {
	Day  Day      `json:"day" yaml:"day"`
	Time TimeSlot `json:"time" yaml:"time"`
}

// String 返回 "Monday Morning" 形式
func (h HalfDay) String() string {
	return h.Day.String() + " " + h.Time.String()
}

// Index 半天在一周中的序号 (0-9)
func (h HalfDay) Index() int {
	return int(h.Day)*len(TimeSlots) + int(h.Time)
}

// Before 日期优先、时段其次的先后比较
func (h HalfDay) Before(other HalfDay) bool {
	return h.Index() < other.Index()
}

// HalfDays 按时间顺序返回一周所有半天
func HalfDays() []HalfDay {
	out := make([]HalfDay, 0, len(Days)*len(TimeSlots))
	for _, d := range Days {
		for _, t := range TimeSlots {
			out = append(out, HalfDay{Day: d, Time: t})
		}
	}
	return out
}

// Slot 排班格子 (周, 日, 时段, 诊间)
type Slot struct {
	Week int      `json:"week"`
	Day  Day      `json:"day"`
	Time TimeSlot `json:"time"`
	Room string   `json:"room"`
}

// HalfDay 返回格子所在半天
func (s Slot) HalfDay() HalfDay {
	return HalfDay{Day: s.Day, Time: s.Time}
}

// String 返回可读格式
func (s Slot) String() string {
	return fmt.Sprintf("W%d %s %s %s", s.Week, s.Day, s.Time, s.Room)
}

// Less 先日期，再时段，最后诊间字母序
func (s Slot) Less(other Slot) bool {
	if s.Week != other.Week {
		return s.Week < other.Week
	}
	if s.Day != other.Day {
		return s.Day < other.Day
	}
	if s.Time != other.Time {
		return s.Time < other.Time
	}
	return s.Room < other.Room
}

// SlotRef 不带周次的格子引用，用于输入输出
type SlotRef struct {
	Day  Day      `json:"day"`
	Time TimeSlot `json:"time"`
	Room string   `json:"room,omitempty"`
}

// Unassigned 未分配诊间时的输出占位
const Unassigned = "unassigned"
