package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind is the normalized kind of a rule schedule.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
	SpecOneShot
)

// Spec is a parsed rule schedule. Exactly one of Cron, Every or At is
// meaningful, selected by Kind.
type Spec struct {
	Kind  SpecKind
	Cron  string
	Every time.Duration
	At    time.Time
}

// rawSchedule is the JSON stored on a scheduled rule. Three forms are
// accepted:
//   - cron: {"cron": "0 9 * * 1"} or named fields
//     {"minute": "0", "hour": "9", "weekday": "1"}
//   - interval: any combination of {"weeks","days","hours","minutes","seconds"}
//   - one-shot: {"at": "2026-09-01T09:00:00Z"}
type rawSchedule struct {
	Cron string `json:"cron"`

	Minute  string `json:"minute"`
	Hour    string `json:"hour"`
	Day     string `json:"day"`
	Month   string `json:"month"`
	Weekday string `json:"weekday"`

	Weeks   float64 `json:"weeks"`
	Days    float64 `json:"days"`
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
	Seconds float64 `json:"seconds"`

	At string `json:"at"`
}

// ParseSchedule parses a rule's schedule column.
func ParseSchedule(schedule []byte) (Spec, error) {
	if len(schedule) == 0 {
		return Spec{}, fmt.Errorf("schedule required")
	}

	var raw rawSchedule

	if err := json.Unmarshal(schedule, &raw); err != nil {
		return Spec{}, fmt.Errorf("invalid schedule: %w", err)
	}

	if raw.At != "" {
		at, err := time.Parse(time.RFC3339, raw.At)

		if err != nil {
			return Spec{}, fmt.Errorf("invalid one-shot timestamp %q: %w", raw.At, err)
		}

		return Spec{Kind: SpecOneShot, At: at}, nil
	}

	if raw.Cron != "" {
		if err := validateCronExpr(raw.Cron); err != nil {
			return Spec{}, err
		}
		return Spec{Kind: SpecCron, Cron: strings.TrimSpace(raw.Cron)}, nil
	}

	if raw.Minute != "" || raw.Hour != "" || raw.Day != "" || raw.Month != "" || raw.Weekday != "" {
		expr := strings.Join([]string{
			defaultField(raw.Minute),
			defaultField(raw.Hour),
			defaultField(raw.Day),
			defaultField(raw.Month),
			defaultField(raw.Weekday),
		}, " ")

		if err := validateCronExpr(expr); err != nil {
			return Spec{}, err
		}

		return Spec{Kind: SpecCron, Cron: expr}, nil
	}

	every := time.Duration(raw.Weeks*7*24)*time.Hour +
		time.Duration(raw.Days*24)*time.Hour +
		time.Duration(raw.Hours)*time.Hour +
		time.Duration(raw.Minutes)*time.Minute +
		time.Duration(raw.Seconds)*time.Second

	if every <= 0 {
		return Spec{}, fmt.Errorf("schedule has no cron fields, interval or timestamp")
	}

	return Spec{Kind: SpecInterval, Every: every}, nil
}

func defaultField(v string) string {
	v = strings.TrimSpace(v)

	if v == "" {
		return "*"
	}

	return v
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// validateCronExpr runs the expression through the same parser the
// scheduler registers with, so a rule accepted here is a rule the
// scheduler can run.
func validateCronExpr(expr string) error {
	if _, err := cronParser.Parse(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return nil
}
