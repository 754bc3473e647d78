// Package constraints 规则库说明
package constraints

import (
	"github.com/menzhen/menzhen/pkg/catalog"
	"github.com/menzhen/menzhen/pkg/model"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint"
	"github.com/menzhen/menzhen/pkg/scheduler/constraint/builtin"
)

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Type        string       `json:"type"`     // hard 硬规则, soft 软规则
	Category    string       `json:"category"` // 分类
	Description string       `json:"description"`
	Tiers       []model.Tier `json:"tiers,omitempty"` // 为空表示全局规则
	Weight      float64      `json:"weight"`
}

// LibraryResponse 规则库输出
type LibraryResponse struct {
	Total   int              `json:"total"`
	Hard    int              `json:"hard"`
	Soft    int              `json:"soft"`
	Library []RuleDefinition `json:"library"`
}

// describe 返回内置规则的分类与说明；指定班规则按目录生成，没有内置说明
func describe(t constraint.Type) (category, description string, ok bool) {
	switch t {
	case constraint.TypeNoDoubleBooking:
		return "结构性", "同一人员在同一半天只能出现在一个格子。", true
	case constraint.TypeRoomDoubleBooked:
		return "结构性", "同一格子只能有一人，固定门诊冲突时后到者未被放置也记为违反。", true
	case constraint.TypeUnknownOccupant:
		return "结构性", "格子中的人员必须在名单中。", true
	case constraint.TypeAllRoomsFilled:
		return "结构性", "每个必排门诊诊间都需要有人出诊。", true
	case constraint.TypeHealthCheckCoverage:
		return "结构性", "每个必排体检格子都需要有人。", true
	case constraint.TypeNoFullDay:
		return "结构性", "同一人员同一天不能上下午都排班，豁免单位除外。", true
	case constraint.TypeSharedRoomTiers:
		return "诊间归属", "共用诊间只能由允许的层级使用。", true
	case constraint.TypeReservedRoomTier:
		return "诊间归属", "R1 专用诊间只能由 R1 使用。", true
	case constraint.TypeHealthCheckEligibility:
		return "诊间归属", "只有参加体检的人员可以排入体检格子。", true
	case constraint.TypeUnitBannedSlot:
		return "单位", "轮转单位的禁排半天不得排班。", true
	case constraint.TypeMaxClinics:
		return "单位", "门诊次数不超过层级或单位上限。", true
	case constraint.TypeR1ClinicRoom:
		return "层级", "每名 R1 恰有一次门诊，且在专用诊间的允许时段。", true
	case constraint.TypeR1HealthQuota:
		return "层级", "体检单位 R1 需排满体检次数。", true
	case constraint.TypeSharedRoomOnce:
		return "层级", "R2、R3 每周在共用诊间恰好一次。", true
	case constraint.TypeSplitHalves:
		return "层级", "门诊需同时分布在上午和下午。", true
	case constraint.TypeRequireMorning:
		return "层级", "至少一次上午门诊，有固定门诊者豁免。", true
	case constraint.TypeR4TuesdayTeaching:
		return "R4", "周二教学的 R4 周二不排班。", true
	case constraint.TypeR4FixedSchedule:
		return "R4", "固定门诊必须出现在指定格子。", true
	case constraint.TypeR4FixedExclusive:
		return "R4", "有固定门诊的 R4 不再排其他门诊。", true
	case constraint.TypeHealthCheckParticipation:
		return "软规则", "参加体检的人员尽量排入体检格子。", true
	}
	return "", "", false
}

// GetLibrary 返回目录生效的全部规则（硬规则在前）
func GetLibrary(cat *catalog.Catalog) *LibraryResponse {
	m := builtin.NewManager(cat)
	resp := &LibraryResponse{Library: make([]RuleDefinition, 0, m.Count())}
	for _, r := range m.GetAll() {
		def := RuleDefinition{
			Name:        string(r.Type()),
			DisplayName: r.Name(),
			Type:        string(r.Category()),
			Category:    "指定班",
			Description: r.Name(),
			Tiers:       r.Tiers(),
			Weight:      r.Weight(),
		}
		if category, description, ok := describe(r.Type()); ok {
			def.Category = category
			def.Description = description
		}
		if r.Category() == constraint.CategoryHard {
			resp.Hard++
		} else {
			resp.Soft++
		}
		resp.Library = append(resp.Library, def)
	}
	resp.Total = len(resp.Library)
	return resp
}
