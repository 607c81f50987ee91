package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	IntervalConditionOr  = "or"
	IntervalConditionAnd = "and"

	TimingImmediate = "immediate"
	TimingScheduled = "scheduled"
)

// NotifiedState tracks which overdue thresholds have already produced a
// notification for the current due cycle. It is cleared whenever the
// service anchor is reset.
type NotifiedState struct {
	Miles   []float64 `json:"miles"`
	Months  []int     `json:"months"`
	DueSoon bool      `json:"due_soon"`
}

// ServiceInterval tracks one recurring maintenance item on a vehicle,
// anchored to the last time the service was performed.
type ServiceInterval struct {
	BaseModel

	VehicleID uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"` // e.g. "Oil change"

	// Due thresholds. Zero means the dimension is not configured.
	MilesInterval  float64
	MonthsInterval int

	// "or": due when either dimension is due. "and": both. Falls back
	// to "or" semantics when only one dimension is configured.
	ConditionType string `gorm:"not null;default:or"`

	// Service anchor.
	LastServiceDate    *time.Time
	LastServiceMileage *float64

	// Ordered "overdue by at least X" one-shot notify thresholds.
	NotifyMilesThresholds  datatypes.JSON `gorm:"type:jsonb"`
	NotifyMonthsThresholds datatypes.JSON `gorm:"type:jsonb"`
	Notified               datatypes.JSON `gorm:"type:jsonb"`

	Enabled bool `gorm:"default:true"`

	// Direct-dispatch bindings. When ChannelIDs is non-empty the
	// interval sends straight to those channels instead of emitting a
	// generic event.
	ChannelIDs    datatypes.JSON `gorm:"type:jsonb"`
	Priority      string
	TitleTemplate string
	BodyTemplate  string
	TimingMode    string `gorm:"not null;default:immediate"` // "immediate" or "scheduled"

	// Relationships
	Vehicle Vehicle `gorm:"foreignKey:VehicleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (si *ServiceInterval) MilesThresholds() []float64 {
	if len(si.NotifyMilesThresholds) == 0 {
		return nil
	}
	var out []float64
	if err := json.Unmarshal(si.NotifyMilesThresholds, &out); err != nil {
		return nil
	}
	return out
}

func (si *ServiceInterval) MonthsThresholds() []int {
	if len(si.NotifyMonthsThresholds) == 0 {
		return nil
	}
	var out []int
	if err := json.Unmarshal(si.NotifyMonthsThresholds, &out); err != nil {
		return nil
	}
	return out
}

func (si *ServiceInterval) NotifiedState() NotifiedState {
	var out NotifiedState
	if len(si.Notified) > 0 {
		_ = json.Unmarshal(si.Notified, &out)
	}
	return out
}

func (si *ServiceInterval) DirectChannelIDs() []uint {
	if len(si.ChannelIDs) == 0 {
		return nil
	}
	var out []uint
	if err := json.Unmarshal(si.ChannelIDs, &out); err != nil {
		return nil
	}
	return out
}

// ResetAnchor records a completed service and restarts the due cycle.
// The notified sets are cleared entirely so every threshold can fire
// again for the new cycle.
func (si *ServiceInterval) ResetAnchor(date time.Time, mileage float64) {
	si.LastServiceDate = &date
	si.LastServiceMileage = &mileage
	empty, _ := json.Marshal(NotifiedState{Miles: []float64{}, Months: []int{}})
	si.Notified = empty
}
