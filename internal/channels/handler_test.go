package channels

import (
	"strings"
	"testing"
)

func TestRegistryKnowsAllBuiltinTypes(t *testing.T) {
	r := NewRegistry()

	for _, channelType := range []string{"in_app", "push", "chat_webhook", "email", "sms"} {
		if _, err := r.Get(channelType); err != nil {
			t.Errorf("Get(%q) error: %v", channelType, err)
		}
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("carrier_pigeon")

	if err == nil || !strings.Contains(err.Error(), "unknown channel type") {
		t.Fatalf("Get(\"carrier_pigeon\") error = %v, want unknown channel type", err)
	}
}

func TestSchemasCoverEveryHandler(t *testing.T) {
	schemas := NewRegistry().Schemas()

	if len(schemas) != 5 {
		t.Fatalf("got %d schemas, want 5", len(schemas))
	}

	if _, ok := schemas["email"]; !ok {
		t.Error("email schema missing")
	}
}

func TestMergeConfigOverrideWins(t *testing.T) {
	base := map[string]interface{}{"webhook_url": "https://base.example.com", "format": "slack"}
	override := map[string]interface{}{"webhook_url": "https://override.example.com"}

	merged := MergeConfig(base, override)

	if merged["webhook_url"] != "https://override.example.com" {
		t.Errorf("override key lost: %v", merged["webhook_url"])
	}

	if merged["format"] != "slack" {
		t.Errorf("base key lost: %v", merged["format"])
	}

	if base["webhook_url"] != "https://base.example.com" {
		t.Error("MergeConfig must not mutate the base map")
	}
}

func TestValidateConfigReportsMissingRequiredFields(t *testing.T) {
	h := &Email{}

	errs := h.ValidateConfig(map[string]interface{}{"smtp_username": "bot@example.com"})

	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2 (smtp_host and to_address): %v", len(errs), errs)
	}
}

func TestValidateConfigAcceptsNonStringValues(t *testing.T) {
	h := &Push{}

	// Numbers coming out of a decoded JSON config still satisfy a
	// required field.
	errs := h.ValidateConfig(map[string]interface{}{"topic": 42})

	if len(errs) != 0 {
		t.Fatalf("got errors for a numeric required value: %v", errs)
	}
}
