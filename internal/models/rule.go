package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	RuleTypeScheduled = "scheduled"
	RuleTypeEvent     = "event"
	RuleTypeCondition = "condition"
)

// Condition is one ANDed predicate on the event payload. Either Value
// or RelativeTo is set; RelativeTo compares against another payload
// field instead of a literal.
type Condition struct {
	Field      string      `json:"field"`
	Operator   string      `json:"operator"` // ==, !=, >, >=, <, <=, contains, not_contains
	Value      interface{} `json:"value,omitempty"`
	RelativeTo string      `json:"relative_to,omitempty"`
}

type Rule struct {
	BaseModel

	UserID uint   `gorm:"not null;index"`
	Name   string `gorm:"not null"`
	Module string // optional tag of the emitting domain module
	Type   string `gorm:"not null"` // "scheduled", "event", "condition"

	// Scheduled rules: cron fields, interval units or a one-shot
	// timestamp, see scheduler.ParseSchedule.
	Schedule datatypes.JSON `gorm:"type:jsonb"`

	// Event/condition rules.
	EventName  string         `gorm:"index"`
	Conditions datatypes.JSON `gorm:"type:jsonb"`

	TitleTemplate   string
	BodyTemplate    string
	Priority        string `gorm:"not null;default:normal"` // low, normal, high, critical
	CooldownSeconds int    `gorm:"not null;default:0"`
	LastFiredAt     *time.Time
	Enabled         bool `gorm:"default:true"`

	// Relationships
	User         User              `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	ChannelLinks []RuleChannelLink `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// ConditionList decodes the conditions column. An empty or missing
// column is an empty list, which always matches.
func (r *Rule) ConditionList() []Condition {
	if len(r.Conditions) == 0 {
		return nil
	}
	var out []Condition
	if err := json.Unmarshal(r.Conditions, &out); err != nil {
		return nil
	}
	return out
}

// Cooldown returns the rule cooldown as a duration, 0 meaning none.
func (r *Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

type RuleChannelLink struct {
	BaseModel

	RuleID    uint `gorm:"not null;uniqueIndex:idx_rule_channel"`
	ChannelID uint `gorm:"not null;uniqueIndex:idx_rule_channel"`

	// Per-link overrides merged key-by-key over the channel base
	// config at send time.
	ConfigOverride datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	Rule    Rule    `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Channel Channel `gorm:"foreignKey:ChannelID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// OverrideMap decodes the per-link config override column.
func (l *RuleChannelLink) OverrideMap() map[string]interface{} {
	out := make(map[string]interface{})
	if len(l.ConfigOverride) == 0 {
		return out
	}
	_ = json.Unmarshal(l.ConfigOverride, &out)
	return out
}
