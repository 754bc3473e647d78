package catalog

import (
	"fmt"

	apperrors "github.com/menzhen/menzhen/pkg/errors"
	"github.com/menzhen/menzhen/pkg/model"
)

type rawCatalog struct {
	Week             int                `yaml:"week"`
	SharedRoom       string             `yaml:"shared_room"`
	ReservedRoom     string             `yaml:"reserved_room"`
	SharedRoomTiers  []string           `yaml:"shared_room_tiers"`
	ReservedRoomTier string             `yaml:"reserved_room_tier"`
	Rooms            []rawRoom          `yaml:"rooms"`
	Schedule         []rawHalfDay       `yaml:"schedule"`
	Weights          *Weights           `yaml:"weights"`
	RuleWeights      map[string]float64 `yaml:"rule_weights"`
	Tiers            []rawTier          `yaml:"tiers"`
}

type rawRoom struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
}

type rawHalfDay struct {
	Day      string   `yaml:"day"`
	Time     string   `yaml:"time"`
	Required []string `yaml:"required"`
	Optional []string `yaml:"optional"`
}

type rawTier struct {
	Tier              string    `yaml:"tier"`
	MaxClinics        int       `yaml:"max_clinics"`
	ClinicRooms       []string  `yaml:"clinic_rooms"`
	ClinicTimes       []string  `yaml:"clinic_times"`
	SharedRoomExactly int       `yaml:"shared_room_exactly"`
	SplitHalves       bool      `yaml:"split_halves"`
	RequireMorning    bool      `yaml:"require_morning"`
	Units             []rawUnit `yaml:"units"`
}

type rawUnit struct {
	Name             string      `yaml:"name"`
	Banned           []rawWindow `yaml:"banned"`
	Pins             []rawPin    `yaml:"pins"`
	MaxClinics       int         `yaml:"max_clinics"`
	HealthCheckQuota int         `yaml:"health_check_quota"`
	FullDayExempt    bool        `yaml:"full_day_exempt"`
}

type rawWindow struct {
	Day  string `yaml:"day"`
	Time string `yaml:"time"`
}

type rawPin struct {
	Day            string `yaml:"day"`
	Time           string `yaml:"time"`
	Rule           string `yaml:"rule"`
	Room           string `yaml:"room"`
	HealthCheck    bool   `yaml:"health_check"`
	Kind           string `yaml:"kind"`
	Mandatory      bool   `yaml:"mandatory"`
	VolunteersOnly bool   `yaml:"volunteers_only"`
}

// 指定班默认规则编号
const (
	DefaultHardPinRule = "unit_hard_pin"
	DefaultSoftPinRule = "unit_soft_pin"
)

func configError(format string, args ...interface{}) error {
	return apperrors.ConfigError(fmt.Sprintf(format, args...))
}

// compile 校验原始目录并转换为只读目录
func (raw *rawCatalog) compile() (*Catalog, error) {
	c := &Catalog{
		Week:         raw.Week,
		SharedRoom:   raw.SharedRoom,
		ReservedRoom: raw.ReservedRoom,
		Weights:      Weights{Hard: 1000, Soft: 10, Coverage: 100},
		rooms:        make(map[string]Room, len(raw.Rooms)),
		halfDays:     make(map[model.HalfDay]HalfDayRooms),
		tiers:        make(map[model.Tier]*TierRules),
		ruleWeights:  make(map[string]float64, len(raw.RuleWeights)),
	}
	if c.Week <= 0 {
		c.Week = 1
	}
	if raw.Weights != nil {
		c.Weights = *raw.Weights
	}
	if c.Weights.Hard <= 0 || c.Weights.Soft < 0 || c.Weights.Coverage < 0 {
		return nil, configError("invalid weights %+v", c.Weights)
	}
	if c.Weights.Hard <= c.Weights.Soft {
		return nil, configError("hard weight %.1f must exceed soft weight %.1f", c.Weights.Hard, c.Weights.Soft)
	}
	for id, w := range raw.RuleWeights {
		if w <= 0 {
			return nil, configError("rule %q weight must be positive", id)
		}
		c.ruleWeights[id] = w
	}

	for _, r := range raw.Rooms {
		if r.ID == "" {
			return nil, configError("room with empty id")
		}
		if _, dup := c.rooms[r.ID]; dup {
			return nil, configError("duplicate room %q", r.ID)
		}
		kind := RoomKind(r.Kind)
		if kind != RoomClinic && kind != RoomHealthCheck {
			return nil, configError("room %q has unknown kind %q", r.ID, r.Kind)
		}
		c.rooms[r.ID] = Room{ID: r.ID, Kind: kind}
		c.roomOrder = append(c.roomOrder, r.ID)
	}
	if err := c.checkClinicRoom("shared_room", c.SharedRoom); err != nil {
		return nil, err
	}
	if err := c.checkClinicRoom("reserved_room", c.ReservedRoom); err != nil {
		return nil, err
	}

	for _, s := range raw.SharedRoomTiers {
		t := model.Tier(s)
		if !t.Valid() {
			return nil, configError("shared_room_tiers: unknown tier %q", s)
		}
		c.SharedRoomTiers = append(c.SharedRoomTiers, t)
	}
	c.ReservedRoomTier = model.Tier(raw.ReservedRoomTier)
	if !c.ReservedRoomTier.Valid() {
		return nil, configError("reserved_room_tier: unknown tier %q", raw.ReservedRoomTier)
	}

	for _, hd := range raw.Schedule {
		h, err := parseHalfDay(hd.Day, hd.Time)
		if err != nil {
			return nil, err
		}
		if _, dup := c.halfDays[h]; dup {
			return nil, configError("duplicate schedule entry for %s", h)
		}
		seen := make(map[string]bool)
		for _, room := range append(append([]string{}, hd.Required...), hd.Optional...) {
			if _, ok := c.rooms[room]; !ok {
				return nil, configError("schedule %s: unknown room %q", h, room)
			}
			if seen[room] {
				return nil, configError("schedule %s: room %q listed twice", h, room)
			}
			seen[room] = true
		}
		c.halfDays[h] = HalfDayRooms{Required: hd.Required, Optional: hd.Optional}
	}

	for _, rt := range raw.Tiers {
		tr, err := c.compileTier(rt)
		if err != nil {
			return nil, err
		}
		if _, dup := c.tiers[tr.Tier]; dup {
			return nil, configError("duplicate tier %s", tr.Tier)
		}
		c.tiers[tr.Tier] = tr
	}
	for _, t := range model.Tiers {
		if c.tiers[t] == nil {
			return nil, configError("missing tier %s", t)
		}
	}
	return c, nil
}

func (c *Catalog) checkClinicRoom(field, id string) error {
	r, ok := c.rooms[id]
	if !ok {
		return configError("%s: unknown room %q", field, id)
	}
	if r.IsHealthCheck() {
		return configError("%s: %q is a health-check room", field, id)
	}
	return nil
}

func (c *Catalog) compileTier(rt rawTier) (*TierRules, error) {
	t := model.Tier(rt.Tier)
	if !t.Valid() {
		return nil, configError("unknown tier %q", rt.Tier)
	}
	if rt.MaxClinics <= 0 {
		return nil, configError("tier %s: max_clinics must be positive", t)
	}
	tr := &TierRules{
		Tier:              t,
		MaxClinics:        rt.MaxClinics,
		SharedRoomExactly: rt.SharedRoomExactly,
		SplitHalves:       rt.SplitHalves,
		RequireMorning:    rt.RequireMorning,
	}
	for _, room := range rt.ClinicRooms {
		if _, ok := c.rooms[room]; !ok {
			return nil, configError("tier %s: unknown clinic room %q", t, room)
		}
		tr.ClinicRooms = append(tr.ClinicRooms, room)
	}
	for _, s := range rt.ClinicTimes {
		ts, err := model.ParseTimeSlot(s)
		if err != nil {
			return nil, configError("tier %s: %v", t, err)
		}
		tr.ClinicTimes = append(tr.ClinicTimes, ts)
	}
	if len(rt.Units) == 0 {
		return nil, configError("tier %s: no rotation units", t)
	}
	names := make(map[string]bool)
	for _, ru := range rt.Units {
		if ru.Name == "" || names[ru.Name] {
			return nil, configError("tier %s: empty or duplicate unit %q", t, ru.Name)
		}
		names[ru.Name] = true
		u, err := c.compileUnit(t, ru)
		if err != nil {
			return nil, err
		}
		tr.Units = append(tr.Units, u)
	}
	return tr, nil
}

func (c *Catalog) compileUnit(t model.Tier, ru rawUnit) (*Unit, error) {
	u := &Unit{
		Tier:             t,
		Name:             ru.Name,
		MaxClinics:       ru.MaxClinics,
		HealthCheckQuota: ru.HealthCheckQuota,
		FullDayExempt:    ru.FullDayExempt,
	}
	for _, rw := range ru.Banned {
		day, err := model.ParseDay(rw.Day)
		if err != nil {
			return nil, configError("unit %s/%s banned: %v", t, ru.Name, err)
		}
		w := Window{Day: day, WholeDay: rw.Time == ""}
		if !w.WholeDay {
			if w.Time, err = model.ParseTimeSlot(rw.Time); err != nil {
				return nil, configError("unit %s/%s banned: %v", t, ru.Name, err)
			}
		}
		u.Banned = append(u.Banned, w)
	}
	for _, rp := range ru.Pins {
		h, err := parseHalfDay(rp.Day, rp.Time)
		if err != nil {
			return nil, configError("unit %s/%s pin: %v", t, ru.Name, err)
		}
		p := Pin{
			Day:            h.Day,
			Time:           h.Time,
			Rule:           rp.Rule,
			Room:           rp.Room,
			HealthCheck:    rp.HealthCheck,
			Mandatory:      rp.Mandatory,
			VolunteersOnly: rp.VolunteersOnly,
		}
		switch rp.Kind {
		case "hard":
			p.Hard = true
			if p.Rule == "" {
				p.Rule = DefaultHardPinRule
			}
		case "soft", "":
			if p.Rule == "" {
				p.Rule = DefaultSoftPinRule
			}
		default:
			return nil, configError("unit %s/%s pin: unknown kind %q", t, ru.Name, rp.Kind)
		}
		if p.Room != "" && c.IsHealthCheckRoom(p.Room) {
			p.HealthCheck = true
		}
		if p.Room != "" && !c.IsLegal(h.Day, h.Time, p.Room) {
			return nil, configError("unit %s/%s pin: room %q not available %s", t, ru.Name, p.Room, h)
		}
		if p.Mandatory && !p.Hard {
			return nil, configError("unit %s/%s pin: mandatory pin must be hard", t, ru.Name)
		}
		u.Pins = append(u.Pins, p)
	}
	return u, nil
}

func parseHalfDay(day, ts string) (model.HalfDay, error) {
	d, err := model.ParseDay(day)
	if err != nil {
		return model.HalfDay{}, configError("%v", err)
	}
	t, err := model.ParseTimeSlot(ts)
	if err != nil {
		return model.HalfDay{}, configError("%v", err)
	}
	return model.HalfDay{Day: d, Time: t}, nil
}
