package model

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// FixedSlot R4 固定门诊
type FixedSlot struct {
	Day  Day      `json:"day" validate:"day"`
	Time TimeSlot `json:"time_slot" validate:"timeslot"`
	Room string   `json:"room,omitempty"`
}

// HalfDay 返回固定门诊所在半天
func (f FixedSlot) HalfDay() HalfDay {
	return HalfDay{Day: f.Day, Time: f.Time}
}

// Person 住院医师（名单提交后不可变）
type Person struct {
	ID              string     `json:"id"`
	Tier            Tier       `json:"level"`
	Name            string     `json:"name"`
	RotationUnit    string     `json:"rotation_unit"`
	HealthCheck     bool       `json:"health_check"`
	TuesdayTeaching bool       `json:"tuesday_teaching,omitempty"`
	FixedSchedule   *FixedSlot `json:"fixed_schedule,omitempty"`
}

// Info 输出用的人员摘要
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Level        Tier   `json:"level"`
	RotationUnit string `json:"rotation_unit"`
	HealthCheck  bool   `json:"health_check"`
}

// Info 返回人员摘要
func (p *Person) Info() Info {
	return Info{
		ID:           p.ID,
		Name:         p.Name,
		Level:        p.Tier,
		RotationUnit: p.RotationUnit,
		HealthCheck:  p.HealthCheck,
	}
}

// HasFixedSchedule 是否有固定门诊
func (p *Person) HasFixedSchedule() bool {
	return p.FixedSchedule != nil
}

// String 返回 "R1_A (health)" 形式
func (p *Person) String() string {
	return fmt.Sprintf("%s (%s)", p.ID, p.RotationUnit)
}

// PersonInput 名单输入中的单个人员
type PersonInput struct {
	Name            string     `json:"name"`
	RotationUnit    string     `json:"rotation_unit" validate:"required"`
	HealthCheck     bool       `json:"health_check"`
	TuesdayTeaching bool       `json:"tuesday_teaching,omitempty"`
	FixedSchedule   *FixedSlot `json:"fixed_schedule,omitempty" validate:"omitempty"`
}

// RosterInput 按层级分组的名单输入：tier -> person_id -> 人员
type RosterInput map[Tier]map[string]PersonInput

// Roster 已提交的名单，顺序为层级优先、编号其次
type Roster struct {
	persons []*Person
	index   map[string]*Person
}

// NewRoster 从人员列表创建名单
func NewRoster(persons []*Person) *Roster {
	r := &Roster{
		persons: make([]*Person, len(persons)),
		index:   make(map[string]*Person, len(persons)),
	}
	copy(r.persons, persons)
	sort.SliceStable(r.persons, func(i, j int) bool {
		a, b := r.persons[i], r.persons[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.ID < b.ID
	})
	for _, p := range r.persons {
		r.index[p.ID] = p
	}
	return r
}

// DecodeRoster 解析名单 JSON，兼容 {"personnel": {...}} 包装
func DecodeRoster(r io.Reader) (RosterInput, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if wrapped, ok := raw["personnel"]; ok {
		raw = nil
		if err := json.Unmarshal(wrapped, &raw); err != nil {
			return nil, fmt.Errorf("decode personnel: %w", err)
		}
	}
	in := make(RosterInput, len(raw))
	for key, body := range raw {
		group := make(map[string]PersonInput)
		if err := json.Unmarshal(body, &group); err != nil {
			return nil, fmt.Errorf("decode tier %s: %w", key, err)
		}
		in[Tier(key)] = group
	}
	return in, nil
}

// Build 将输入转换为名单
func (in RosterInput) Build() *Roster {
	persons := make([]*Person, 0)
	for tier, group := range in {
		for id, pi := range group {
			p := &Person{
				ID:              id,
				Tier:            tier,
				Name:            pi.Name,
				RotationUnit:    pi.RotationUnit,
				HealthCheck:     pi.HealthCheck,
				TuesdayTeaching: pi.TuesdayTeaching,
			}
			if pi.FixedSchedule != nil {
				fs := *pi.FixedSchedule
				p.FixedSchedule = &fs
			}
			persons = append(persons, p)
		}
	}
	return NewRoster(persons)
}

// All 返回全部人员（名单顺序）
func (r *Roster) All() []*Person {
	out := make([]*Person, len(r.persons))
	copy(out, r.persons)
	return out
}

// ByTier 返回某层级人员（名单顺序）
func (r *Roster) ByTier(t Tier) []*Person {
	var out []*Person
	for _, p := range r.persons {
		if p.Tier == t {
			out = append(out, p)
		}
	}
	return out
}

// ByUnit 返回某轮转单位的人员
func (r *Roster) ByUnit(t Tier, unit string) []*Person {
	var out []*Person
	for _, p := range r.persons {
		if p.Tier == t && p.RotationUnit == unit {
			out = append(out, p)
		}
	}
	return out
}

// Get 按编号获取人员
func (r *Roster) Get(id string) *Person {
	return r.index[id]
}

// Len 人员数量
func (r *Roster) Len() int {
	return len(r.persons)
}

// Position 返回人员在名单中的序号，不存在返回 -1
func (r *Roster) Position(id string) int {
	for i, p := range r.persons {
		if p.ID == id {
			return i
		}
	}
	return -1
}
