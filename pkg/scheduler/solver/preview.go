package solver

import (
	"encoding/json"
	"io"
	"sort"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
)

// ClinicAssignment R1 门诊预排
type ClinicAssignment struct {
	Day        model.Day      `json:"day"`
	Time       model.TimeSlot `json:"time"`
	Room       string         `json:"room"`
	PersonInfo model.Info     `json:"person_info"`
}

// HalfDay 返回门诊所在半天
func (c ClinicAssignment) HalfDay() model.HalfDay {
	return model.HalfDay{Day: c.Day, Time: c.Time}
}

// FixedEcho R4 固定门诊回显；Room 为 unassigned 表示无可用诊间
type FixedEcho struct {
	Day        model.Day      `json:"day"`
	Time       model.TimeSlot `json:"time"`
	Room       string         `json:"room"`
	Placed     bool           `json:"placed"`
	PersonInfo model.Info     `json:"person_info"`
}

// Preview 可编辑的 R1 预排结果
type Preview struct {
	Week                   int                         `json:"week"`
	ClinicAssignments      map[string]ClinicAssignment `json:"clinic_assignments"`
	HealthCheckAssignments map[string][]model.SlotRef  `json:"health_check_assignments"`
	Unplaced               []string                    `json:"unplaced"`
	R4Fixed                map[string]FixedEcho        `json:"r4_fixed"`
}

// NewPreview 创建空预览
func NewPreview(week int) *Preview {
	return &Preview{
		Week:                   week,
		ClinicAssignments:      make(map[string]ClinicAssignment),
		HealthCheckAssignments: make(map[string][]model.SlotRef),
		Unplaced:               make([]string, 0),
		R4Fixed:                make(map[string]FixedEcho),
	}
}

// DecodePreview 解析预览 JSON
func DecodePreview(r io.Reader) (*Preview, error) {
	pv := NewPreview(0)
	if err := json.NewDecoder(r).Decode(pv); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "预览格式错误")
	}
	if pv.Week <= 0 {
		pv.Week = 1
	}
	if pv.ClinicAssignments == nil {
		pv.ClinicAssignments = make(map[string]ClinicAssignment)
	}
	if pv.HealthCheckAssignments == nil {
		pv.HealthCheckAssignments = make(map[string][]model.SlotRef)
	}
	if pv.R4Fixed == nil {
		pv.R4Fixed = make(map[string]FixedEcho)
	}
	if pv.Unplaced == nil {
		pv.Unplaced = make([]string, 0)
	}
	return pv, nil
}

// Clone 深拷贝
func (p *Preview) Clone() *Preview {
	out := NewPreview(p.Week)
	for id, c := range p.ClinicAssignments {
		out.ClinicAssignments[id] = c
	}
	for id, refs := range p.HealthCheckAssignments {
		cp := make([]model.SlotRef, len(refs))
		copy(cp, refs)
		out.HealthCheckAssignments[id] = cp
	}
	out.Unplaced = append(out.Unplaced, p.Unplaced...)
	for id, e := range p.R4Fixed {
		out.R4Fixed[id] = e
	}
	return out
}

// IsUnplaced 人员是否在未排列表中
func (p *Preview) IsUnplaced(id string) bool {
	for _, u := range p.Unplaced {
		if u == id {
			return true
		}
	}
	return false
}

// MarkUnplaced 加入未排列表（去重）
func (p *Preview) MarkUnplaced(id string) {
	if !p.IsUnplaced(id) {
		p.Unplaced = append(p.Unplaced, id)
	}
}

// ClearUnplaced 移出未排列表
func (p *Preview) ClearUnplaced(id string) {
	out := p.Unplaced[:0]
	for _, u := range p.Unplaced {
		if u != id {
			out = append(out, u)
		}
	}
	p.Unplaced = out
}

// ClinicIDs 返回已排门诊人员编号（字母序）
func (p *Preview) ClinicIDs() []string {
	ids := make([]string, 0, len(p.ClinicAssignments))
	for id := range p.ClinicAssignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HealthCheckIDs 返回有体检安排的人员编号（字母序）
func (p *Preview) HealthCheckIDs() []string {
	ids := make([]string, 0, len(p.HealthCheckAssignments))
	for id := range p.HealthCheckAssignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Holder 返回占用某半天某诊间的预排人员
func (p *Preview) Holder(h model.HalfDay, room string) (string, bool) {
	for _, id := range p.ClinicIDs() {
		c := p.ClinicAssignments[id]
		if c.HalfDay() == h && c.Room == room {
			return id, true
		}
	}
	return "", false
}
