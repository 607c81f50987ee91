package channels

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatWebhookSlackPayload(t *testing.T) {
	var got SlackWebhookRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer srv.Close()

	h := &ChatWebhook{}

	err := h.Send(map[string]interface{}{"webhook_url": srv.URL}, "Oil change due", "Civic is overdue", "critical")

	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if got.Username != "Gearbox" {
		t.Errorf("username = %q", got.Username)
	}

	if got.Text != "*Oil change due*" {
		t.Errorf("text = %q", got.Text)
	}

	if len(got.Attachments) != 1 || got.Attachments[0].Color != "danger" {
		t.Errorf("attachments = %+v, want one danger attachment for critical", got.Attachments)
	}
}

func TestChatWebhookDiscordPayload(t *testing.T) {
	var got DiscordWebhookRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer srv.Close()

	h := &ChatWebhook{}

	config := map[string]interface{}{"webhook_url": srv.URL, "format": "discord"}

	if err := h.Send(config, "Oil change due", "Civic is overdue", "high"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %+v, want exactly one", got.Embeds)
	}

	if got.Embeds[0].Title != "Oil change due" || got.Embeds[0].Color != ColorOrange {
		t.Errorf("embed = %+v, want title and high-priority color", got.Embeds[0])
	}
}

func TestChatWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &ChatWebhook{}

	if err := h.Send(map[string]interface{}{"webhook_url": srv.URL}, "t", "b", "normal"); err == nil {
		t.Fatal("Send() should fail on a 5xx response")
	}
}

func TestChatWebhookMissingURL(t *testing.T) {
	h := &ChatWebhook{}

	if err := h.Send(map[string]interface{}{}, "t", "b", "normal"); err == nil {
		t.Fatal("Send() should fail without webhook_url")
	}
}
