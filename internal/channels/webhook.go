package channels

import (
	"fmt"
	"time"
)

// ChatWebhook posts to a Slack- or Discord-style incoming webhook.
type ChatWebhook struct{}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackAttachment struct {
	Color     string `json:"color"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Footer    string `json:"footer"`
	Timestamp int64  `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const webhookUsername = "Gearbox"

const (
	ColorRed    = 16711680 // #FF0000 - critical
	ColorOrange = 16753920 // #FFA500 - high
	ColorBlue   = 3447003  // #3498DB - normal and below
)

var slackColors = map[string]string{
	"critical": "danger",
	"high":     "warning",
}

func discordColor(priority string) int {
	switch priority {
	case "critical":
		return ColorRed
	case "high":
		return ColorOrange
	default:
		return ColorBlue
	}
}

func (h *ChatWebhook) Send(config map[string]interface{}, title, body, priority string) error {
	url := stringValue(config, "webhook_url")

	if url == "" {
		return fmt.Errorf("chat webhook config missing webhook_url")
	}

	switch stringValue(config, "format") {
	case "discord":
		payload := DiscordWebhookRequest{
			Username: webhookUsername,
			Embeds: []DiscordEmbed{
				{
					Title:       title,
					Description: body,
					Color:       discordColor(priority),
					Timestamp:   time.Now().Format(time.RFC3339),
				},
			},
		}

		return postJSON(url, payload, nil)
	default: // slack-compatible
		color, ok := slackColors[priority]

		if !ok {
			color = "good"
		}

		payload := SlackWebhookRequest{
			Username: webhookUsername,
			Text:     fmt.Sprintf("*%s*", title),
			Attachments: []SlackAttachment{
				{
					Color:     color,
					Title:     title,
					Text:      body,
					Footer:    "Gearbox",
					Timestamp: time.Now().Unix(),
				},
			},
		}

		return postJSON(url, payload, nil)
	}
}

func (h *ChatWebhook) ValidateConfig(config map[string]interface{}) []error {
	return requireFields(h.ConfigSchema(), config)
}

func (h *ChatWebhook) ConfigSchema() []ConfigField {
	return []ConfigField{
		{Key: "webhook_url", Label: "Webhook URL", Type: "string", Required: true},
		{Key: "format", Label: "Payload format", Type: "string", Required: false, Default: "slack", Help: "\"slack\" or \"discord\""},
	}
}
