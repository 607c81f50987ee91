package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Settings is a singleton row (id 1) holding the global notification
// switches. Load it through db.GetOrCreateSettings.
type Settings struct {
	BaseModel

	Enabled         bool   `gorm:"default:true"` // global kill switch
	DefaultPriority string `gorm:"not null;default:normal"`

	// Channel ids used when a direct dispatch specifies none.
	DefaultChannelIDs datatypes.JSON `gorm:"type:jsonb"`

	// Local time-of-day window, "HH:MM". Empty strings disable quiet
	// hours entirely.
	QuietHoursStart string
	QuietHoursEnd   string
	Timezone        string `gorm:"not null;default:UTC"`

	RetentionDays int `gorm:"not null;default:90"`
}

// DefaultChannels decodes the default channel id list.
func (s *Settings) DefaultChannels() []uint {
	if len(s.DefaultChannelIDs) == 0 {
		return nil
	}
	var out []uint
	if err := json.Unmarshal(s.DefaultChannelIDs, &out); err != nil {
		return nil
	}
	return out
}

// QuietHoursConfigured reports whether both window edges are set.
func (s *Settings) QuietHoursConfigured() bool {
	return s.QuietHoursStart != "" && s.QuietHoursEnd != ""
}
