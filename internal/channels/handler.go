// Package channels implements the delivery backends notifications fan
// out to. Each channel type satisfies Handler; the Registry maps the
// type string stored on a Channel row to its handler.
package channels

import (
	"fmt"
)

// ConfigField describes one key of a channel type's config. The list
// is consumed by the settings UI and by ValidateConfig.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"` // "string", "password", "number"
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// Handler is the uniform send capability over channel-specific config.
// Send performs a single attempt with no retries and must have no side
// effects beyond the outbound call itself; the dispatcher owns logging.
type Handler interface {
	Send(config map[string]interface{}, title, body, priority string) error
	ValidateConfig(config map[string]interface{}) []error
	ConfigSchema() []ConfigField
}

type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns a registry with all built-in channel types.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}

	r.Register("in_app", &InApp{})
	r.Register("push", &Push{})
	r.Register("chat_webhook", &ChatWebhook{})
	r.Register("email", &Email{})
	r.Register("sms", &SMS{})

	return r
}

func (r *Registry) Register(channelType string, h Handler) {
	r.handlers[channelType] = h
}

func (r *Registry) Get(channelType string) (Handler, error) {
	h, ok := r.handlers[channelType]

	if !ok {
		return nil, fmt.Errorf("unknown channel type: %s", channelType)
	}

	return h, nil
}

// Schemas returns the config field list per registered channel type.
func (r *Registry) Schemas() map[string][]ConfigField {
	out := make(map[string][]ConfigField, len(r.handlers))

	for name, h := range r.handlers {
		out[name] = h.ConfigSchema()
	}

	return out
}

// MergeConfig layers a per-link override on top of a channel's base
// config, key by key. Override keys win.
func MergeConfig(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(override))

	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		merged[k] = v
	}

	return merged
}

// requireFields validates that every schema field marked required is
// present and non-empty in the config.
func requireFields(schema []ConfigField, config map[string]interface{}) []error {
	var errs []error

	for _, field := range schema {
		if !field.Required {
			continue
		}

		if stringValue(config, field.Key) == "" {
			errs = append(errs, fmt.Errorf("missing required field: %s", field.Key))
		}
	}

	return errs
}

func stringValue(config map[string]interface{}, key string) string {
	v, ok := config[key]

	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
