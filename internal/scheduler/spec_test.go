package scheduler

import (
	"testing"
	"time"
)

func TestParseScheduleCronString(t *testing.T) {
	spec, err := ParseSchedule([]byte(`{"cron": "0 9 * * 1"}`))

	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}

	if spec.Kind != SpecCron || spec.Cron != "0 9 * * 1" {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestParseScheduleNamedFields(t *testing.T) {
	spec, err := ParseSchedule([]byte(`{"minute": "0", "hour": "9"}`))

	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}

	if spec.Kind != SpecCron || spec.Cron != "0 9 * * *" {
		t.Fatalf("spec = %+v, want unset fields defaulted to *", spec)
	}
}

func TestParseScheduleInterval(t *testing.T) {
	spec, err := ParseSchedule([]byte(`{"hours": 1, "minutes": 30}`))

	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}

	if spec.Kind != SpecInterval || spec.Every != 90*time.Minute {
		t.Fatalf("spec = %+v, want a 90m interval", spec)
	}
}

func TestParseScheduleOneShot(t *testing.T) {
	spec, err := ParseSchedule([]byte(`{"at": "2026-09-01T09:00:00Z"}`))

	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}

	want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	if spec.Kind != SpecOneShot || !spec.At.Equal(want) {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestParseScheduleRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"not json",
		"{}",
		`{"cron": "every tuesday maybe"}`,
		`{"minute": "61"}`,
		`{"at": "tomorrow"}`,
		`{"hours": 0}`,
	}

	for _, schedule := range cases {
		if _, err := ParseSchedule([]byte(schedule)); err == nil {
			t.Errorf("ParseSchedule(%q) accepted, want error", schedule)
		}
	}
}
