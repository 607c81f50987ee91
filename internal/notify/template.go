// Package notify is the notification decision-and-delivery engine:
// template rendering, rule evaluation and fan-out dispatch.
package notify

import (
	"fmt"
	"regexp"
	"strings"
)

var templateToken = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Render substitutes {{key}} tokens with the string form of data[key].
// Whitespace around the key is trimmed. Unresolved tokens are left
// verbatim so a typo surfaces in the message instead of erroring.
// Deliberately not a template language: payload values come from
// user-controlled events and must never be evaluated.
func Render(template string, data map[string]interface{}) string {
	if template == "" {
		return ""
	}

	return templateToken.ReplaceAllStringFunc(template, func(token string) string {
		key := strings.TrimSpace(token[2 : len(token)-2])

		value, ok := data[key]

		if !ok {
			return token
		}

		return fmt.Sprint(value)
	})
}
