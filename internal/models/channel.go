package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Channel types understood by the registry in internal/channels.
const (
	ChannelInApp       = "in_app"
	ChannelPush        = "push"
	ChannelChatWebhook = "chat_webhook"
	ChannelEmail       = "email"
	ChannelSMS         = "sms"
)

type Channel struct {
	BaseModel

	UserID  uint           `gorm:"not null;index"`
	Name    string         `gorm:"not null"`
	Type    string         `gorm:"not null"` // "in_app", "push", "chat_webhook", "email", "sms"
	Config  datatypes.JSON `gorm:"type:jsonb"`
	Enabled bool           `gorm:"default:true"`

	// Relationships
	User      User              `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	RuleLinks []RuleChannelLink `gorm:"foreignKey:ChannelID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// ConfigMap decodes the opaque config column into a flat map.
func (c *Channel) ConfigMap() map[string]interface{} {
	out := make(map[string]interface{})
	if len(c.Config) == 0 {
		return out
	}
	_ = json.Unmarshal(c.Config, &out)
	return out
}
