// Package catalog 提供门诊排班的静态规则目录
//
// 目录在进程启动时加载一次，加载后只读，可在并发运行间共享。
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
)

//go:embed default.yaml
var defaultYAML []byte

// RoomKind 诊间类别
type RoomKind string

const (
	RoomClinic      RoomKind = "clinic"       // 门诊诊间
	RoomHealthCheck RoomKind = "health_check" // 体检诊间
)

// Room 诊间
type Room struct {
	ID   string   `json:"id"`
	Kind RoomKind `json:"kind"`
}

// IsHealthCheck 是否为体检诊间
func (r Room) IsHealthCheck() bool { return r.Kind == RoomHealthCheck }

// Window 禁排窗口；WholeDay 为真时覆盖整天
type Window struct {
	Day      model.Day
	Time     model.TimeSlot
	WholeDay bool
}

// Covers 检查半天是否落在窗口内
func (w Window) Covers(h model.HalfDay) bool {
	if w.Day != h.Day {
		return false
	}
	return w.WholeDay || w.Time == h.Time
}

// String 返回可读格式
func (w Window) String() string {
	if w.WholeDay {
		return w.Day.String()
	}
	return model.HalfDay{Day: w.Day, Time: w.Time}.String()
}

// Pin 单位指定班：某半天（可选指定诊间或体检）必须/应当出诊
type Pin struct {
	Day            model.Day
	Time           model.TimeSlot
	Rule           string // 违反时使用的规则编号
	Room           string // 为空表示该半天任意合法门诊诊间
	HealthCheck    bool   // 指定体检诊间
	Hard           bool
	Mandatory      bool // 名单中必须有该单位人员
	VolunteersOnly bool // 只约束 health_check 为真的人员
}

// HalfDay 返回指定班所在半天
func (p Pin) HalfDay() model.HalfDay {
	return model.HalfDay{Day: p.Day, Time: p.Time}
}

// Matches 检查格子是否满足指定班
func (p Pin) Matches(s model.Slot, healthCheck bool) bool {
	if s.Day != p.Day || s.Time != p.Time {
		return false
	}
	if p.Room != "" {
		return s.Room == p.Room
	}
	return healthCheck == p.HealthCheck
}

// AppliesTo 检查指定班是否约束该人员
func (p Pin) AppliesTo(person *model.Person) bool {
	return !p.VolunteersOnly || person.HealthCheck
}

// String 返回可读格式
func (p Pin) String() string {
	target := "any room"
	switch {
	case p.Room != "":
		target = p.Room
	case p.HealthCheck:
		target = "health check"
	}
	return fmt.Sprintf("%s %s", p.HalfDay(), target)
}

// Unit 轮转单位规则
type Unit struct {
	Tier             model.Tier
	Name             string
	Banned           []Window
	Pins             []Pin
	MaxClinics       int // 0 表示沿用层级上限
	HealthCheckQuota int // 体检配额，0 表示无固定配额
	FullDayExempt    bool
}

// IsBanned 检查半天是否被禁排
func (u *Unit) IsBanned(h model.HalfDay) bool {
	for _, w := range u.Banned {
		if w.Covers(h) {
			return true
		}
	}
	return false
}

// TierRules 层级规则
type TierRules struct {
	Tier              model.Tier
	MaxClinics        int
	ClinicRooms       []string // 为空表示不限
	ClinicTimes       []model.TimeSlot
	SharedRoomExactly int
	SplitHalves       bool
	RequireMorning    bool
	Units             []*Unit
}

// AllowsClinic 检查层级是否允许在该诊间/时段出门诊
func (t *TierRules) AllowsClinic(room string, ts model.TimeSlot) bool {
	if len(t.ClinicRooms) > 0 && !containsString(t.ClinicRooms, room) {
		return false
	}
	if len(t.ClinicTimes) > 0 {
		for _, allowed := range t.ClinicTimes {
			if allowed == ts {
				return true
			}
		}
		return false
	}
	return true
}

// Weights 适应度权重
type Weights struct {
	Hard     float64 `json:"hard" yaml:"hard"`
	Soft     float64 `json:"soft" yaml:"soft"`
	Coverage float64 `json:"coverage" yaml:"coverage"`
}

// HalfDayRooms 半天的诊间设置
type HalfDayRooms struct {
	Required []string
	Optional []string
}

// Catalog 规则目录（只读）
type Catalog struct {
	Week             int
	SharedRoom       string
	ReservedRoom     string
	SharedRoomTiers  []model.Tier
	ReservedRoomTier model.Tier
	Weights          Weights

	rooms       map[string]Room
	roomOrder   []string
	halfDays    map[model.HalfDay]HalfDayRooms
	tiers       map[model.Tier]*TierRules
	ruleWeights map[string]float64
}

// Default 加载内置目录
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// MustDefault 加载内置目录，失败时 panic
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile 从文件加载目录，path 为空时使用内置目录
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "无法打开规则目录")
	}
	defer f.Close()
	return Load(f)
}

// Load 从 reader 加载目录
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "无法读取规则目录")
	}
	return Parse(data)
}

// Parse 解析 YAML 目录并校验
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "规则目录格式错误")
	}
	return raw.compile()
}

// Room 查找诊间
func (c *Catalog) Room(id string) (Room, bool) {
	r, ok := c.rooms[id]
	return r, ok
}

// Rooms 按声明顺序返回全部诊间
func (c *Catalog) Rooms() []string {
	out := make([]string, len(c.roomOrder))
	copy(out, c.roomOrder)
	return out
}

// IsHealthCheckRoom 是否为体检诊间
func (c *Catalog) IsHealthCheckRoom(id string) bool {
	r, ok := c.rooms[id]
	return ok && r.IsHealthCheck()
}

// LegalRooms 返回半天的合法诊间（必排 + 可选，字母序）
func (c *Catalog) LegalRooms(day model.Day, ts model.TimeSlot) []string {
	hr := c.halfDays[model.HalfDay{Day: day, Time: ts}]
	out := make([]string, 0, len(hr.Required)+len(hr.Optional))
	out = append(out, hr.Required...)
	out = append(out, hr.Optional...)
	sort.Strings(out)
	return out
}

// RequiredRooms 返回半天的必排诊间（字母序）
func (c *Catalog) RequiredRooms(day model.Day, ts model.TimeSlot) []string {
	hr := c.halfDays[model.HalfDay{Day: day, Time: ts}]
	out := make([]string, len(hr.Required))
	copy(out, hr.Required)
	sort.Strings(out)
	return out
}

// IsLegal 检查诊间在该半天是否存在
func (c *Catalog) IsLegal(day model.Day, ts model.TimeSlot, room string) bool {
	hr := c.halfDays[model.HalfDay{Day: day, Time: ts}]
	return containsString(hr.Required, room) || containsString(hr.Optional, room)
}

// IsRequired 检查诊间在该半天是否必排
func (c *Catalog) IsRequired(day model.Day, ts model.TimeSlot, room string) bool {
	return containsString(c.halfDays[model.HalfDay{Day: day, Time: ts}].Required, room)
}

// Slots 返回一周全部合法格子（日期、时段、诊间顺序）
func (c *Catalog) Slots() []model.Slot {
	var out []model.Slot
	for _, h := range model.HalfDays() {
		for _, room := range c.LegalRooms(h.Day, h.Time) {
			out = append(out, model.Slot{Week: c.Week, Day: h.Day, Time: h.Time, Room: room})
		}
	}
	return out
}

// Tier 返回层级规则
func (c *Catalog) Tier(t model.Tier) *TierRules {
	return c.tiers[t]
}

// Unit 返回轮转单位规则，不存在返回 nil
func (c *Catalog) Unit(t model.Tier, name string) *Unit {
	tr := c.tiers[t]
	if tr == nil {
		return nil
	}
	for _, u := range tr.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// UnitNames 返回层级的轮转单位名（声明顺序）
func (c *Catalog) UnitNames(t model.Tier) []string {
	tr := c.tiers[t]
	if tr == nil {
		return nil
	}
	out := make([]string, 0, len(tr.Units))
	for _, u := range tr.Units {
		out = append(out, u.Name)
	}
	return out
}

// MaxClinics 返回人员的门诊上限（单位上限优先）
func (c *Catalog) MaxClinics(p *model.Person) int {
	if u := c.Unit(p.Tier, p.RotationUnit); u != nil && u.MaxClinics > 0 {
		return u.MaxClinics
	}
	if tr := c.tiers[p.Tier]; tr != nil {
		return tr.MaxClinics
	}
	return 0
}

// IsSharedRoomTier 检查层级是否可使用共享诊间
func (c *Catalog) IsSharedRoomTier(t model.Tier) bool {
	for _, st := range c.SharedRoomTiers {
		if st == t {
			return true
		}
	}
	return false
}

// RuleWeight 返回规则权重倍数，未配置时为 1
func (c *Catalog) RuleWeight(ruleID string) float64 {
	if w, ok := c.ruleWeights[ruleID]; ok {
		return w
	}
	return 1
}

// DefaultFixedRoom 为未指定诊间的固定门诊选择诊间：
// 第一个非共享、非保留、非体检的合法诊间
func (c *Catalog) DefaultFixedRoom(day model.Day, ts model.TimeSlot) string {
	for _, room := range c.LegalRooms(day, ts) {
		if room == c.SharedRoom || room == c.ReservedRoom || c.IsHealthCheckRoom(room) {
			continue
		}
		return room
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// PinRules 返回目录中出现的指定班规则编号（按出现顺序去重）
func (c *Catalog) PinRules(hard bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range model.Tiers {
		tr := c.tiers[t]
		if tr == nil {
			continue
		}
		for _, u := range tr.Units {
			for _, p := range u.Pins {
				if p.Hard != hard || seen[p.Rule] {
					continue
				}
				seen[p.Rule] = true
				out = append(out, p.Rule)
			}
		}
	}
	return out
}
