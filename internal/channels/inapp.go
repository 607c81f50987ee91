package channels

// InApp delivers to the user's notification feed. The log row written
// by the dispatcher is the delivery itself, so Send has nothing to do.
type InApp struct{}

func (h *InApp) Send(config map[string]interface{}, title, body, priority string) error {
	return nil
}

func (h *InApp) ValidateConfig(config map[string]interface{}) []error {
	return nil
}

func (h *InApp) ConfigSchema() []ConfigField {
	return []ConfigField{}
}
