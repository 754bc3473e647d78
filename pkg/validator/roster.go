package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/menzhen/menzhen/pkg/catalog"
	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
)

// 每个层级建议人数
const (
	MinPerTier = 1
	MaxPerTier = 10
)

// RosterValidator 名单校验器
type RosterValidator struct {
	catalog  *catalog.Catalog
	validate *validator.Validate
}

// NewRosterValidator 创建名单校验器
func NewRosterValidator(cat *catalog.Catalog) *RosterValidator {
	validate := validator.New()
	// 错误字段使用 JSON 名称
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerEnums(validate)
	return &RosterValidator{
		catalog:  cat,
		validate: validate,
	}
}

// Validate 校验名单输入并构建名单；警告不阻止排班
func (v *RosterValidator) Validate(in model.RosterInput) (*model.Roster, []string, error) {
	ve := &apperrors.ValidationErrors{}
	var warnings []string
	seen := make(map[string]model.Tier)

	tiers := make([]string, 0, len(in))
	for t := range in {
		tiers = append(tiers, string(t))
	}
	sort.Strings(tiers)

	for _, key := range tiers {
		tier := model.Tier(key)
		group := in[tier]
		if err := v.validate.Var(tier, "tier"); err != nil {
			ve.Add(key, fmt.Sprintf("unknown tier %q", key))
			continue
		}
		if n := len(group); n < MinPerTier || n > MaxPerTier {
			warnings = append(warnings, fmt.Sprintf("%s has %d persons, expected %d-%d", tier, n, MinPerTier, MaxPerTier))
		}

		ids := make([]string, 0, len(group))
		for id := range group {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			field := fmt.Sprintf("%s.%s", tier, id)
			if id == "" {
				ve.Add(string(tier), "empty person id")
				continue
			}
			if other, dup := seen[id]; dup {
				ve.Add(field, fmt.Sprintf("duplicate id, also in %s", other))
				continue
			}
			seen[id] = tier
			v.validatePerson(ve, field, tier, group[id])
		}
	}

	if ve.HasErrors() {
		return nil, warnings, ve.ToAppError()
	}
	return in.Build(), warnings, nil
}

func (v *RosterValidator) validatePerson(ve *apperrors.ValidationErrors, field string, tier model.Tier, pi model.PersonInput) {
	if err := v.validate.Struct(pi); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				ve.Add(field+"."+trimStruct(fe.Namespace()), fmt.Sprintf("failed %q check", fe.Tag()))
			}
			return
		}
		ve.Add(field, err.Error())
		return
	}

	if v.catalog.Unit(tier, pi.RotationUnit) == nil {
		ve.Add(field+".rotation_unit", fmt.Sprintf("unknown rotation unit %q for %s", pi.RotationUnit, tier))
	}
	if pi.TuesdayTeaching && tier != model.TierR4 {
		ve.Add(field+".tuesday_teaching", "only R4 persons have tuesday teaching")
	}
	if pi.FixedSchedule == nil {
		return
	}
	if tier != model.TierR4 {
		ve.Add(field+".fixed_schedule", "only R4 persons may have a fixed schedule")
		return
	}
	fs := pi.FixedSchedule
	if fs.Room == "" {
		if v.catalog.DefaultFixedRoom(fs.Day, fs.Time) == "" {
			ve.Add(field+".fixed_schedule", fmt.Sprintf("no room available on %s", fs.HalfDay()))
		}
		return
	}
	if _, ok := v.catalog.Room(fs.Room); !ok {
		ve.Add(field+".fixed_schedule.room", fmt.Sprintf("unknown room %q", fs.Room))
		return
	}
	if v.catalog.IsHealthCheckRoom(fs.Room) {
		ve.Add(field+".fixed_schedule.room", fmt.Sprintf("%s is a health-check room", fs.Room))
		return
	}
	if !v.catalog.IsLegal(fs.Day, fs.Time, fs.Room) {
		ve.Add(field+".fixed_schedule.room", fmt.Sprintf("room %s is not open on %s", fs.Room, fs.HalfDay()))
	}
}

// registerEnums 注册层级、日期、时段的自定义校验标签
func registerEnums(validate *validator.Validate) {
	_ = validate.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(model.Tier)
		if !ok {
			t = model.Tier(fl.Field().String())
		}
		return t.Valid()
	})
	_ = validate.RegisterValidation("day", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(model.Day)
		return ok && d.Valid()
	})
	_ = validate.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(model.TimeSlot)
		return ok && t.Valid()
	})
}

// trimStruct 去掉命名空间开头的结构体名，PersonInput.fixed_schedule.day -> fixed_schedule.day
func trimStruct(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
