package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusRead    = "read"
)

const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// NotificationLogEntry records one delivery attempt to one channel.
// Rows are immutable once written except for the read state, which the
// in-app feed flips.
type NotificationLogEntry struct {
	BaseModel

	UserID    uint  `gorm:"not null;index"`
	RuleID    *uint `gorm:"index"` // nil for direct dispatch
	ChannelID *uint `gorm:"index"` // nulled if the channel is deleted

	// Denormalized so history survives channel deletion.
	ChannelType string `gorm:"not null;index"`

	Title        string
	Body         string
	Priority     string `gorm:"not null;default:normal;index"`
	Status       string `gorm:"not null;default:pending;index"`
	ErrorMessage string

	// Wall-clock duration of the channel send in milliseconds.
	DurationMs int64

	// Snapshot of the triggering payload.
	Payload datatypes.JSON `gorm:"type:jsonb"`

	Read   bool `gorm:"default:false;index"`
	ReadAt *time.Time

	// Relationships
	User    User     `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Rule    *Rule    `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:SET NULL" json:"-"`
	Channel *Channel `gorm:"foreignKey:ChannelID;constraint:OnUpdate:Cascade,OnDelete:SET NULL" json:"-"`
}
