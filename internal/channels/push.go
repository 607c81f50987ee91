package channels

import (
	"fmt"
	"strings"
)

// Push delivers through an ntfy-compatible push server.
type Push struct{}

type pushRequest struct {
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// ntfy priority scale is 1 (min) to 5 (max).
var pushPriorities = map[string]int{
	"low":      2,
	"normal":   3,
	"high":     4,
	"critical": 5,
}

func (h *Push) Send(config map[string]interface{}, title, body, priority string) error {
	server := stringValue(config, "server_url")

	if server == "" {
		server = "https://ntfy.sh"
	}

	topic := stringValue(config, "topic")

	if topic == "" {
		return fmt.Errorf("push config missing topic")
	}

	level, ok := pushPriorities[priority]

	if !ok {
		level = pushPriorities["normal"]
	}

	payload := pushRequest{
		Topic:    topic,
		Title:    title,
		Message:  body,
		Priority: level,
	}

	headers := map[string]string{}

	if token := stringValue(config, "token"); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return postJSON(strings.TrimRight(server, "/"), payload, headers)
}

func (h *Push) ValidateConfig(config map[string]interface{}) []error {
	return requireFields(h.ConfigSchema(), config)
}

func (h *Push) ConfigSchema() []ConfigField {
	return []ConfigField{
		{Key: "server_url", Label: "Server URL", Type: "string", Required: false, Default: "https://ntfy.sh", Help: "ntfy-compatible server base URL"},
		{Key: "topic", Label: "Topic", Type: "string", Required: true},
		{Key: "token", Label: "Access token", Type: "password", Required: false},
	}
}
