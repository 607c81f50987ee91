package channels

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPushPayloadAndAuth(t *testing.T) {
	var got pushRequest
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer srv.Close()

	h := &Push{}

	config := map[string]interface{}{
		"server_url": srv.URL,
		"topic":      "gearbox-alerts",
		"token":      "tk_secret",
	}

	if err := h.Send(config, "Oil change due", "Civic is overdue", "critical"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if got.Topic != "gearbox-alerts" || got.Title != "Oil change due" {
		t.Errorf("payload = %+v", got)
	}

	if got.Priority != 5 {
		t.Errorf("priority = %d, want 5 for critical", got.Priority)
	}

	if auth != "Bearer tk_secret" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestPushUnknownPriorityDefaultsToNormal(t *testing.T) {
	var got pushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
	}))
	defer srv.Close()

	h := &Push{}

	if err := h.Send(map[string]interface{}{"server_url": srv.URL, "topic": "x"}, "t", "b", "whatever"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if got.Priority != 3 {
		t.Errorf("priority = %d, want the normal level", got.Priority)
	}
}

func TestPushMissingTopic(t *testing.T) {
	h := &Push{}

	if err := h.Send(map[string]interface{}{}, "t", "b", "normal"); err == nil {
		t.Fatal("Send() should fail without a topic")
	}
}
