package channels

import "errors"

// SMS is a placeholder until a provider integration lands. It
// validates like a real channel but always fails to send, which shows
// up as a failed log row rather than a crash.
type SMS struct{}

func (h *SMS) Send(config map[string]interface{}, title, body, priority string) error {
	return errors.New("sms channel not implemented")
}

func (h *SMS) ValidateConfig(config map[string]interface{}) []error {
	return requireFields(h.ConfigSchema(), config)
}

func (h *SMS) ConfigSchema() []ConfigField {
	return []ConfigField{
		{Key: "phone_number", Label: "Phone number", Type: "string", Required: true, Help: "Destination number in E.164 format"},
	}
}
