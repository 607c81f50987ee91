package channels

import (
	"fmt"
	"net/smtp"
	"strings"
)

// sendMailHook allows tests to override SMTP sending behavior.
var sendMailHook = smtp.SendMail

// Email sends notifications via SMTP.
type Email struct{}

func (h *Email) Send(config map[string]interface{}, title, body, priority string) error {
	host := stringValue(config, "smtp_host")
	port := stringValue(config, "smtp_port")
	user := stringValue(config, "smtp_username")
	pass := stringValue(config, "smtp_password")
	from := stringValue(config, "from_address")
	to := stringValue(config, "to_address")

	if host == "" || to == "" {
		return fmt.Errorf("email config missing smtp_host or to_address")
	}

	if port == "" {
		port = "587"
	}

	if from == "" {
		from = user
	}

	recipients := splitAddresses(to)

	var auth smtp.Auth

	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	header := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nX-Priority: %s\r\n\r\n",
		from,
		strings.Join(recipients, ","),
		title,
		priority,
	)

	return sendMailHook(addr, auth, from, recipients, []byte(header+body))
}

func splitAddresses(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func (h *Email) ValidateConfig(config map[string]interface{}) []error {
	return requireFields(h.ConfigSchema(), config)
}

func (h *Email) ConfigSchema() []ConfigField {
	return []ConfigField{
		{Key: "smtp_host", Label: "SMTP host", Type: "string", Required: true},
		{Key: "smtp_port", Label: "SMTP port", Type: "number", Required: false, Default: "587"},
		{Key: "smtp_username", Label: "SMTP username", Type: "string", Required: false},
		{Key: "smtp_password", Label: "SMTP password", Type: "password", Required: false},
		{Key: "from_address", Label: "From address", Type: "string", Required: false, Help: "Defaults to the SMTP username"},
		{Key: "to_address", Label: "To address", Type: "string", Required: true, Help: "Comma-separated for multiple recipients"},
	}
}
