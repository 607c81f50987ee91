package notify

import (
	"testing"
	"time"

	"github.com/gearbox-dev/gearbox/internal/channels"
	"github.com/gearbox-dev/gearbox/internal/models"
	"gorm.io/gorm"
)

func newTestEvaluator(conn *gorm.DB) *Evaluator {
	return NewEvaluator(conn, NewDispatcher(conn, channels.NewRegistry(), nil))
}

func seedEventRule(t *testing.T, conn *gorm.DB, userID, channelID uint) models.Rule {
	t.Helper()

	rule := models.Rule{
		UserID:        userID,
		Name:          "Odometer alert",
		Type:          models.RuleTypeEvent,
		EventName:     "odometer_updated",
		TitleTemplate: "{{vehicle}} updated",
		BodyTemplate:  "Odometer now {{odometer}}",
		Priority:      models.PriorityNormal,
		Enabled:       true,
	}

	if err := conn.Create(&rule).Error; err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	link := models.RuleChannelLink{RuleID: rule.ID, ChannelID: channelID}

	if err := conn.Create(&link).Error; err != nil {
		t.Fatalf("failed to create link: %v", err)
	}

	return rule
}

func logCount(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()

	var count int64

	if err := conn.Model(&models.NotificationLogEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count log entries: %v", err)
	}

	return count
}

func TestEvaluateDispatchesMatchingRule(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn)
	ch := seedChannel(t, conn, user.ID, models.ChannelInApp)
	rule := seedEventRule(t, conn, user.ID, ch.ID)

	e := newTestEvaluator(conn)

	err := e.Evaluate("odometer_updated", map[string]interface{}{"vehicle": "Civic", "odometer": 45500})

	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 1 {
		t.Fatalf("got %d log entries, want 1", got)
	}

	var reloaded models.Rule

	if err := conn.First(&reloaded, rule.ID).Error; err != nil {
		t.Fatalf("failed to reload rule: %v", err)
	}

	if reloaded.LastFiredAt == nil {
		t.Error("last_fired_at should be stamped after a dispatch")
	}
}

func TestEvaluateIgnoresOtherEvents(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn)
	ch := seedChannel(t, conn, user.ID, models.ChannelInApp)
	seedEventRule(t, conn, user.ID, ch.ID)

	e := newTestEvaluator(conn)

	if err := e.Evaluate("service_recorded", map[string]interface{}{}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 0 {
		t.Fatalf("got %d log entries, want none for an unrelated event", got)
	}
}

func TestEvaluateHonorsKillSwitch(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn)
	ch := seedChannel(t, conn, user.ID, models.ChannelInApp)
	seedEventRule(t, conn, user.ID, ch.ID)

	e := newTestEvaluator(conn)

	// First evaluate creates the settings row, then flip the switch.
	if err := e.Evaluate("unrelated", nil); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if err := conn.Model(&models.Settings{}).Where("id = ?", 1).Update("enabled", false).Error; err != nil {
		t.Fatalf("failed to disable notifications: %v", err)
	}

	if err := e.Evaluate("odometer_updated", map[string]interface{}{"odometer": 1}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 0 {
		t.Fatalf("got %d log entries, want none while disabled", got)
	}
}

func TestEvaluateCooldownGate(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn)
	ch := seedChannel(t, conn, user.ID, models.ChannelInApp)
	rule := seedEventRule(t, conn, user.ID, ch.ID)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Minute)

	err := conn.Model(&models.Rule{}).Where("id = ?", rule.ID).
		Updates(map[string]interface{}{"cooldown_seconds": 3600, "last_fired_at": recent}).Error

	if err != nil {
		t.Fatalf("failed to set cooldown: %v", err)
	}

	e := newTestEvaluator(conn)
	e.now = func() time.Time { return now }

	if err := e.Evaluate("odometer_updated", map[string]interface{}{"odometer": 1}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 0 {
		t.Fatalf("got %d log entries, want none inside the cooldown window", got)
	}

	// Past the window the rule fires again.
	e.now = func() time.Time { return now.Add(2 * time.Hour) }

	if err := e.Evaluate("odometer_updated", map[string]interface{}{"odometer": 1}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 1 {
		t.Fatalf("got %d log entries, want 1 after the cooldown expires", got)
	}
}

func TestEvaluateConditionGate(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn)
	ch := seedChannel(t, conn, user.ID, models.ChannelInApp)
	rule := seedEventRule(t, conn, user.ID, ch.ID)

	err := conn.Model(&models.Rule{}).Where("id = ?", rule.ID).
		Updates(map[string]interface{}{
			"type":       models.RuleTypeCondition,
			"conditions": `[{"field":"odometer","operator":">","value":50000}]`,
		}).Error

	if err != nil {
		t.Fatalf("failed to set conditions: %v", err)
	}

	e := newTestEvaluator(conn)

	if err := e.Evaluate("odometer_updated", map[string]interface{}{"odometer": 45500}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 0 {
		t.Fatalf("got %d log entries, want none when conditions fail", got)
	}

	if err := e.Evaluate("odometer_updated", map[string]interface{}{"odometer": 50500}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if got := logCount(t, conn); got != 1 {
		t.Fatalf("got %d log entries, want 1 when conditions pass", got)
	}
}

func quietSettings(start, end string) models.Settings {
	return models.Settings{
		QuietHoursStart: start,
		QuietHoursEnd:   end,
		Timezone:        "UTC",
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 28, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHoursOvernightWindow(t *testing.T) {
	settings := quietSettings("22:00", "07:00")

	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(23, 30), true},
		{at(3, 0), true},
		{at(6, 59), true},
		{at(7, 0), true}, // inclusive edge
		{at(7, 1), false},
		{at(12, 0), false},
		{at(21, 59), false},
		{at(22, 0), true}, // inclusive edge
	}

	for _, tc := range cases {
		if got := InQuietHours(settings, tc.now); got != tc.want {
			t.Errorf("InQuietHours(%s) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	settings := quietSettings("12:00", "14:00")

	if !InQuietHours(settings, at(13, 0)) {
		t.Error("13:00 should be inside a 12:00-14:00 window")
	}

	if InQuietHours(settings, at(15, 0)) {
		t.Error("15:00 should be outside a 12:00-14:00 window")
	}
}

func TestInQuietHoursUnconfigured(t *testing.T) {
	if InQuietHours(models.Settings{Timezone: "UTC"}, at(3, 0)) {
		t.Error("quiet hours with empty edges must never suppress")
	}

	if InQuietHours(quietSettings("22:00", ""), at(23, 0)) {
		t.Error("a half-configured window must never suppress")
	}
}
