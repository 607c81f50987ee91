package channels

import (
	"net/smtp"
	"reflect"
	"strings"
	"testing"
)

func TestEmailSend(t *testing.T) {
	orig := sendMailHook
	defer func() { sendMailHook = orig }()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sendMailHook = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotFrom = from
		gotTo = to
		gotMsg = msg
		return nil
	}

	h := &Email{}

	config := map[string]interface{}{
		"smtp_host":     "mail.example.com",
		"smtp_username": "bot@example.com",
		"smtp_password": "pw",
		"to_address":    "a@example.com, b@example.com",
	}

	if err := h.Send(config, "Oil change due", "Civic is overdue", "high"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotAddr != "mail.example.com:587" {
		t.Errorf("addr = %q, want the default port appended", gotAddr)
	}

	// from_address falls back to the SMTP username.
	if gotFrom != "bot@example.com" {
		t.Errorf("from = %q", gotFrom)
	}

	if !reflect.DeepEqual(gotTo, []string{"a@example.com", "b@example.com"}) {
		t.Errorf("to = %v", gotTo)
	}

	msg := string(gotMsg)

	if !strings.Contains(msg, "Subject: Oil change due") {
		t.Errorf("message missing subject header: %q", msg)
	}

	if !strings.HasSuffix(msg, "Civic is overdue") {
		t.Errorf("message missing body: %q", msg)
	}
}

func TestEmailMissingHost(t *testing.T) {
	orig := sendMailHook
	defer func() { sendMailHook = orig }()

	called := false

	sendMailHook = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	h := &Email{}

	if err := h.Send(map[string]interface{}{"to_address": "a@example.com"}, "t", "b", "normal"); err == nil {
		t.Fatal("Send() should fail without smtp_host")
	}

	if called {
		t.Fatal("SMTP must not be attempted with incomplete config")
	}
}

func TestSplitAddresses(t *testing.T) {
	got := splitAddresses(" a@example.com ,, b@example.com ")

	if !reflect.DeepEqual(got, []string{"a@example.com", "b@example.com"}) {
		t.Fatalf("splitAddresses() = %v", got)
	}
}
