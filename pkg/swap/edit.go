// Package swap 提供 R1 预览的调班/换班编辑
package swap

import (
	"fmt"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/grid"
	"github.com/menzhen/menzhen/pkg/scheduler/solver"
)

// Kind 编辑类型
type Kind string

const (
	KindMove Kind = "move" // 调到另一天或取消门诊
	KindSwap Kind = "swap" // 两人互换门诊
)

// Edit 对预览的一次编辑
type Edit struct {
	Kind     Kind      `json:"kind"`
	PersonID string    `json:"person_id"`
	Day      model.Day `json:"day"`
	Unassign bool      `json:"unassign,omitempty"` // move 到未分配
	OtherID  string    `json:"other_id,omitempty"` // swap 的另一方
}

// String 返回可读格式
func (e Edit) String() string {
	switch {
	case e.Kind == KindSwap:
		return fmt.Sprintf("swap %s <-> %s", e.PersonID, e.OtherID)
	case e.Unassign:
		return fmt.Sprintf("move %s -> %s", e.PersonID, model.Unassigned)
	default:
		return fmt.Sprintf("move %s -> %s", e.PersonID, e.Day)
	}
}

// Editor 预览编辑器；只做结构检查，规则检查由 Evaluator 负责
type Editor struct {
	catalog *catalog.Catalog
	roster  *model.Roster
	layout  *grid.Layout
}

// NewEditor 创建编辑器
func NewEditor(cat *catalog.Catalog, roster *model.Roster, layout *grid.Layout) *Editor {
	return &Editor{catalog: cat, roster: roster, layout: layout}
}

// Apply 返回应用编辑后的新预览，输入预览不变
func (ed *Editor) Apply(pv *solver.Preview, e Edit) (*solver.Preview, error) {
	p, err := ed.r1(e.PersonID)
	if err != nil {
		return nil, err
	}
	out := pv.Clone()

	switch e.Kind {
	case KindMove:
		if e.Unassign {
			delete(out.ClinicAssignments, p.ID)
			out.MarkUnplaced(p.ID)
			return out, nil
		}
		if !e.Day.Valid() {
			return nil, apperrors.InvalidEdit(fmt.Sprintf("invalid day %d", int(e.Day)))
		}
		delete(out.ClinicAssignments, p.ID)
		cell, ok := ed.freeClinicCell(out, e.Day)
		if !ok {
			return nil, apperrors.InvalidEdit(fmt.Sprintf("no free R1 clinic room on %s", e.Day))
		}
		s := ed.layout.Cell(cell).Slot
		out.ClinicAssignments[p.ID] = solver.ClinicAssignment{Day: s.Day, Time: s.Time, Room: s.Room, PersonInfo: p.Info()}
		out.ClearUnplaced(p.ID)
		return out, nil

	case KindSwap:
		other, err := ed.r1(e.OtherID)
		if err != nil {
			return nil, err
		}
		if other.ID == p.ID {
			return nil, apperrors.InvalidEdit(fmt.Sprintf("cannot swap %s with itself", p.ID))
		}
		a, okA := out.ClinicAssignments[p.ID]
		b, okB := out.ClinicAssignments[other.ID]
		if !okA || !okB {
			return nil, apperrors.InvalidEdit(fmt.Sprintf("%s and %s must both hold a clinic to swap", p.ID, other.ID))
		}
		a.PersonInfo, b.PersonInfo = b.PersonInfo, a.PersonInfo
		out.ClinicAssignments[p.ID] = b
		out.ClinicAssignments[other.ID] = a
		return out, nil
	}
	return nil, apperrors.InvalidEdit(fmt.Sprintf("unknown edit kind %q", e.Kind))
}

func (ed *Editor) r1(id string) (*model.Person, error) {
	p := ed.roster.Get(id)
	if p == nil {
		return nil, apperrors.InvalidEdit(fmt.Sprintf("unknown person %q", id))
	}
	if p.Tier != model.TierR1 {
		return nil, apperrors.InvalidEdit(fmt.Sprintf("%s is %s, only R1 clinics are editable", id, p.Tier))
	}
	return p, nil
}

// freeClinicCell 当天第一个 R1 可用且预览中无人占用的门诊格子
func (ed *Editor) freeClinicCell(pv *solver.Preview, day model.Day) (int, bool) {
	tr := ed.catalog.Tier(model.TierR1)
	if tr == nil {
		return 0, false
	}
	for i, c := range ed.layout.Cells() {
		if c.HealthCheck || c.Slot.Day != day || !tr.AllowsClinic(c.Slot.Room, c.Slot.Time) {
			continue
		}
		if c.Slot.Room == ed.catalog.SharedRoom {
			continue
		}
		if _, held := pv.Holder(c.HalfDay(), c.Slot.Room); !held {
			return i, true
		}
	}
	return 0, false
}
