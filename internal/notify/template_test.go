package notify

import "testing"

func TestRenderSubstitutesTokens(t *testing.T) {
	got := Render("Hello {{name}}, you have {{count}} items", map[string]interface{}{
		"name":  "Alex",
		"count": 3,
	})

	want := "Hello Alex, you have 3 items"

	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderLeavesUnresolvedTokens(t *testing.T) {
	got := Render("{{missing}}", map[string]interface{}{})

	if got != "{{missing}}" {
		t.Fatalf("Render() = %q, want token left verbatim", got)
	}
}

func TestRenderTrimsTokenWhitespace(t *testing.T) {
	got := Render("{{ vehicle }} is due", map[string]interface{}{"vehicle": "Civic"})

	if got != "Civic is due" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderEmptyTemplate(t *testing.T) {
	if got := Render("", map[string]interface{}{"a": 1}); got != "" {
		t.Fatalf("Render(\"\") = %q", got)
	}
}

func TestRenderStringifiesValues(t *testing.T) {
	got := Render("odometer {{odometer}}, ok {{ok}}", map[string]interface{}{
		"odometer": 45500.5,
		"ok":       true,
	})

	if got != "odometer 45500.5, ok true" {
		t.Fatalf("Render() = %q", got)
	}
}
