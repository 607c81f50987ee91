package intervals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gearbox-dev/gearbox/internal/channels"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/notify"
	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = conn.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Channel{},
		&models.Rule{},
		&models.RuleChannelLink{},
		&models.NotificationLogEntry{},
		&models.Settings{},
		&models.ServiceInterval{},
	)

	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return conn
}

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()

	encoded, err := json.Marshal(v)

	if err != nil {
		t.Fatalf("failed to encode %v: %v", v, err)
	}

	return encoded
}

type fixture struct {
	conn    *gorm.DB
	checker *Checker
	user    models.User
	vehicle models.Vehicle
	channel models.Channel
}

func newFixture(t *testing.T, odometer float64) *fixture {
	t.Helper()

	conn := newTestDB(t)

	user := models.User{Name: "Alex", Email: "alex@example.com", PasswordHash: "hashed"}

	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	vehicle := models.Vehicle{UserID: user.ID, Name: "Civic", CurrentOdometer: odometer}

	if err := conn.Create(&vehicle).Error; err != nil {
		t.Fatalf("failed to seed vehicle: %v", err)
	}

	channel := models.Channel{UserID: user.ID, Name: "Feed", Type: models.ChannelInApp, Enabled: true}

	if err := conn.Create(&channel).Error; err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}

	dispatcher := notify.NewDispatcher(conn, channels.NewRegistry(), nil)
	bus := notify.NewBus(notify.NewEvaluator(conn, dispatcher))

	checker := NewChecker(conn, dispatcher, bus)
	checker.now = func() time.Time { return testNow }

	return &fixture{conn: conn, checker: checker, user: user, vehicle: vehicle, channel: channel}
}

func (f *fixture) seedInterval(t *testing.T, si models.ServiceInterval) models.ServiceInterval {
	t.Helper()

	si.VehicleID = f.vehicle.ID
	si.Enabled = true

	if si.ConditionType == "" {
		si.ConditionType = models.IntervalConditionOr
	}

	if si.TimingMode == "" {
		si.TimingMode = models.TimingImmediate
	}

	if err := f.conn.Create(&si).Error; err != nil {
		t.Fatalf("failed to seed interval: %v", err)
	}

	return si
}

func (f *fixture) entries(t *testing.T) []models.NotificationLogEntry {
	t.Helper()

	var out []models.NotificationLogEntry

	if err := f.conn.Order("id").Find(&out).Error; err != nil {
		t.Fatalf("failed to load log entries: %v", err)
	}

	return out
}

func (f *fixture) check(t *testing.T, source string) {
	t.Helper()

	if err := f.checker.CheckAndNotify(f.vehicle.ID, source); err != nil {
		t.Fatalf("CheckAndNotify() error: %v", err)
	}
}

func TestOdometerJumpNotifiesHighestThresholdOnce(t *testing.T) {
	// 1200 miles past due with thresholds at 0, 500 and 1000: one
	// notification at the highest, all three marked.
	f := newFixture(t, 6200)

	si := f.seedInterval(t, models.ServiceInterval{
		Name:                  "Oil change",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0, 500, 1000}),
		ChannelIDs:            mustJSON(t, []uint{f.channel.ID}),
	})

	f.check(t, SourceImmediate)

	entries := f.entries(t)

	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want a single message for the jump", len(entries))
	}

	var payload map[string]interface{}

	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if payload["threshold"] != 1000.0 || payload["threshold_type"] != "miles" {
		t.Errorf("payload = %v, want the highest crossed miles threshold", payload)
	}

	var reloaded models.ServiceInterval

	if err := f.conn.First(&reloaded, si.ID).Error; err != nil {
		t.Fatalf("failed to reload interval: %v", err)
	}

	notified := reloaded.NotifiedState()

	if len(notified.Miles) != 3 {
		t.Fatalf("notified miles = %v, want all crossed thresholds recorded", notified.Miles)
	}

	// Re-checking with unchanged state stays quiet.
	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 1 {
		t.Fatalf("got %d log entries after re-check, want still 1", len(entries))
	}
}

func TestDueSoonFiresOnce(t *testing.T) {
	// 500 miles short of due.
	f := newFixture(t, 4500)

	si := f.seedInterval(t, models.ServiceInterval{
		Name:                  "Oil change",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0}),
		ChannelIDs:            mustJSON(t, []uint{f.channel.ID}),
	})

	f.check(t, SourceImmediate)

	entries := f.entries(t)

	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want one early warning", len(entries))
	}

	var payload map[string]interface{}

	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if payload["threshold_type"] != "due_soon" {
		t.Errorf("payload = %v, want a due_soon warning, not a milestone", payload)
	}

	var reloaded models.ServiceInterval

	if err := f.conn.First(&reloaded, si.ID).Error; err != nil {
		t.Fatalf("failed to reload interval: %v", err)
	}

	if !reloaded.NotifiedState().DueSoon {
		t.Error("due_soon marker should be recorded")
	}

	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 1 {
		t.Fatalf("got %d log entries after re-check, want still 1", len(entries))
	}
}

func TestRecordedServiceRestartsCycle(t *testing.T) {
	f := newFixture(t, 6200)

	si := f.seedInterval(t, models.ServiceInterval{
		Name:                  "Oil change",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0}),
		ChannelIDs:            mustJSON(t, []uint{f.channel.ID}),
	})

	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}

	si.ResetAnchor(testNow, 6200)

	if err := f.conn.Save(&si).Error; err != nil {
		t.Fatalf("failed to save interval: %v", err)
	}

	// Fresh anchor, nothing due.
	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 1 {
		t.Fatalf("got %d log entries after service, want still 1", len(entries))
	}

	// Next cycle's threshold can fire again.
	if err := f.conn.Model(&models.Vehicle{}).Where("id = ?", f.vehicle.ID).
		Update("current_odometer", 11300).Error; err != nil {
		t.Fatalf("failed to advance odometer: %v", err)
	}

	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 2 {
		t.Fatalf("got %d log entries in the new cycle, want 2", len(entries))
	}
}

func TestScheduledTimingDefersToSweep(t *testing.T) {
	f := newFixture(t, 6200)

	f.seedInterval(t, models.ServiceInterval{
		Name:                  "Tire rotation",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0}),
		ChannelIDs:            mustJSON(t, []uint{f.channel.ID}),
		TimingMode:            models.TimingScheduled,
	})

	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 0 {
		t.Fatalf("got %d log entries from an immediate check, want none for scheduled timing", len(entries))
	}

	f.check(t, SourceScheduled)

	if entries := f.entries(t); len(entries) != 1 {
		t.Fatalf("got %d log entries from the sweep, want 1", len(entries))
	}
}

func TestUnboundIntervalEmitsGenericEvent(t *testing.T) {
	f := newFixture(t, 6200)

	// No direct channel bindings and no default channels: the interval
	// falls back to the generic event, picked up by an event rule.
	f.seedInterval(t, models.ServiceInterval{
		Name:                  "Oil change",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0}),
	})

	rule := models.Rule{
		UserID:        f.user.ID,
		Name:          "Maintenance due",
		Type:          models.RuleTypeEvent,
		EventName:     EventServiceIntervalDue,
		TitleTemplate: "{{item}} due on {{vehicle}}",
		BodyTemplate:  "{{state}}",
		Priority:      models.PriorityNormal,
		Enabled:       true,
	}

	if err := f.conn.Create(&rule).Error; err != nil {
		t.Fatalf("failed to seed rule: %v", err)
	}

	link := models.RuleChannelLink{RuleID: rule.ID, ChannelID: f.channel.ID}

	if err := f.conn.Create(&link).Error; err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}

	f.check(t, SourceImmediate)

	entries := f.entries(t)

	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want the event rule to deliver once", len(entries))
	}

	if entries[0].RuleID == nil || *entries[0].RuleID != rule.ID {
		t.Errorf("entry rule id = %v, want %d from the generic event path", entries[0].RuleID, rule.ID)
	}

	if entries[0].Title != "Oil change due on Civic" {
		t.Errorf("entry title = %q", entries[0].Title)
	}
}

func TestZeroOdometerVehicleIsSkipped(t *testing.T) {
	f := newFixture(t, 0)

	f.seedInterval(t, models.ServiceInterval{
		Name:                  "Oil change",
		MilesInterval:         5000,
		LastServiceMileage:    floatPtr(0),
		NotifyMilesThresholds: mustJSON(t, []float64{0}),
		ChannelIDs:            mustJSON(t, []uint{f.channel.ID}),
	})

	f.check(t, SourceImmediate)

	if entries := f.entries(t); len(entries) != 0 {
		t.Fatalf("got %d log entries, want none for a vehicle without odometer data", len(entries))
	}
}
