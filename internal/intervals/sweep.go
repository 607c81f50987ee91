package intervals

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/notify"
	"gorm.io/gorm"
)

// Check sources. Immediate checks run synchronously after a state
// mutation; the scheduled check is the daily sweep.
const (
	SourceImmediate = "immediate"
	SourceScheduled = "scheduled"
)

// EventServiceIntervalDue is the generic event emitted for intervals
// without direct channel bindings, for event rules to pick up.
const EventServiceIntervalDue = "service_interval_due"

const (
	defaultTitleTemplate = "Maintenance due: {{item}}"
	defaultBodyTemplate  = "{{vehicle}}: {{item}} is {{state}}. Odometer {{odometer}}."
)

// Checker walks a vehicle's service intervals and notifies once per
// newly crossed milestone threshold.
type Checker struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	bus        *notify.Bus

	// now is a test hook.
	now func() time.Time
}

func NewChecker(conn *gorm.DB, dispatcher *notify.Dispatcher, bus *notify.Bus) *Checker {
	return &Checker{
		db:         conn,
		dispatcher: dispatcher,
		bus:        bus,
		now:        time.Now,
	}
}

// CheckAndNotify evaluates every enabled interval on the vehicle. A
// failure on one interval never stops the sweep over the rest.
func (c *Checker) CheckAndNotify(vehicleID uint, source string) error {
	var vehicle models.Vehicle

	if err := c.db.First(&vehicle, vehicleID).Error; err != nil {
		return fmt.Errorf("failed to load vehicle %d: %w", vehicleID, err)
	}

	if vehicle.CurrentOdometer <= 0 {
		return nil
	}

	var intervals []models.ServiceInterval

	err := c.db.Where("vehicle_id = ? AND enabled = ?", vehicleID, true).
		Find(&intervals).Error

	if err != nil {
		return fmt.Errorf("failed to load intervals for vehicle %d: %w", vehicleID, err)
	}

	for i := range intervals {
		if err := c.checkInterval(vehicle, intervals[i], source); err != nil {
			log.Printf("Interval %d (%s) check failed: %v", intervals[i].ID, intervals[i].Name, err)
		}
	}

	return nil
}

// SweepAll runs the daily scheduled check across every vehicle.
func (c *Checker) SweepAll() {
	var vehicleIDs []uint

	if err := c.db.Model(&models.Vehicle{}).Pluck("id", &vehicleIDs).Error; err != nil {
		log.Printf("Interval sweep: failed to list vehicles: %v", err)
		return
	}

	for _, id := range vehicleIDs {
		if err := c.CheckAndNotify(id, SourceScheduled); err != nil {
			log.Printf("Interval sweep: vehicle %d: %v", id, err)
		}
	}
}

func (c *Checker) checkInterval(vehicle models.Vehicle, si models.ServiceInterval, source string) error {
	// Scheduled-timing intervals are deferred entirely to the daily
	// sweep: no milestone bookkeeping happens during immediate checks.
	if si.TimingMode == models.TimingScheduled && source != SourceScheduled {
		return nil
	}

	now := c.now()
	status := ComputeStatus(si, vehicle.CurrentOdometer, now)

	if status.State == StateUnknown || status.State == StateOK {
		return nil
	}

	notified := si.NotifiedState()
	changed := false
	fired := false

	// A threshold of 0 means "notify the moment it is due", so the
	// milestone checks only run once the dimension has actually reached
	// its due point.
	milesDue := status.NextDueOdometer != nil && vehicle.CurrentOdometer >= *status.NextDueOdometer
	monthsDue := status.NextDueDate != nil && !now.Before(*status.NextDueDate)

	// Collect every newly crossed miles threshold, mark them all, but
	// notify once using the highest so a large odometer jump produces
	// a single message.
	if highest, crossed := newlyCrossed(si.MilesThresholds(), notified.Miles, status.MilesOverdue); milesDue && crossed {
		for _, t := range si.MilesThresholds() {
			if t <= status.MilesOverdue && !containsFloat(notified.Miles, t) {
				notified.Miles = append(notified.Miles, t)
			}
		}

		c.emit(vehicle, si, status, "miles", highest)
		changed = true
		fired = true
	}

	// Months mirror the miles logic, approximating months overdue as
	// days overdue / 30.
	monthsOverdue := status.DaysOverdue / 30

	if highest, crossed := newlyCrossedInts(si.MonthsThresholds(), notified.Months, monthsOverdue); monthsDue && crossed {
		for _, t := range si.MonthsThresholds() {
			if t <= monthsOverdue && !containsInt(notified.Months, t) {
				notified.Months = append(notified.Months, t)
			}
		}

		c.emit(vehicle, si, status, "months", float64(highest))
		changed = true
		fired = true
	}

	// One-shot early warning, only before any threshold has fired in
	// either dimension.
	if !fired && status.State == StateDueSoon &&
		len(notified.Miles) == 0 && len(notified.Months) == 0 && !notified.DueSoon {
		c.emit(vehicle, si, status, "due_soon", 0)
		notified.DueSoon = true
		changed = true
	}

	if !changed {
		return nil
	}

	// Read-modify-write of the notified set as a whole value.
	encoded, err := json.Marshal(notified)

	if err != nil {
		return fmt.Errorf("failed to encode notified state: %w", err)
	}

	return c.db.Model(&models.ServiceInterval{}).Where("id = ?", si.ID).
		Update("notified", encoded).Error
}

// newlyCrossed returns the highest threshold that is covered by the
// current overdue amount and not yet recorded, and whether any exists.
func newlyCrossed(thresholds, already []float64, overdue float64) (float64, bool) {
	highest := 0.0
	found := false

	for _, t := range thresholds {
		if t <= overdue && !containsFloat(already, t) {
			if !found || t > highest {
				highest = t
			}
			found = true
		}
	}

	return highest, found
}

func newlyCrossedInts(thresholds, already []int, overdue int) (int, bool) {
	highest := 0
	found := false

	for _, t := range thresholds {
		if t <= overdue && !containsInt(already, t) {
			if !found || t > highest {
				highest = t
			}
			found = true
		}
	}

	return highest, found
}

func (c *Checker) emit(vehicle models.Vehicle, si models.ServiceInterval, status Status, thresholdType string, threshold float64) {
	payload := map[string]interface{}{
		"vehicle":        vehicle.Name,
		"vehicle_id":     vehicle.ID,
		"item":           si.Name,
		"state":          status.State,
		"odometer":       vehicle.CurrentOdometer,
		"miles_overdue":  status.MilesOverdue,
		"days_overdue":   status.DaysOverdue,
		"threshold":      threshold,
		"threshold_type": thresholdType,
	}

	settings, err := db.GetOrCreateSettings(c.db)

	if err != nil {
		log.Printf("Interval %d: failed to load settings: %v", si.ID, err)
		return
	}

	if !settings.Enabled {
		return
	}

	channelIDs := si.DirectChannelIDs()

	if len(channelIDs) == 0 {
		channelIDs = settings.DefaultChannels()
	}

	// Without channel bindings the interval emits a generic event and
	// lets event rules decide.
	if len(channelIDs) == 0 {
		c.bus.Emit(EventServiceIntervalDue, payload)
		return
	}

	var targets []models.Channel

	if err := c.db.Where("id IN ?", channelIDs).Find(&targets).Error; err != nil {
		log.Printf("Interval %d: failed to load channels: %v", si.ID, err)
		return
	}

	titleTemplate := si.TitleTemplate
	bodyTemplate := si.BodyTemplate

	if titleTemplate == "" {
		titleTemplate = defaultTitleTemplate
	}

	if bodyTemplate == "" {
		bodyTemplate = defaultBodyTemplate
	}

	priority := si.Priority

	if priority == "" {
		priority = settings.DefaultPriority
	}

	c.dispatcher.Dispatch(notify.Request{
		UserID:        vehicle.UserID,
		Channels:      targets,
		TitleTemplate: titleTemplate,
		BodyTemplate:  bodyTemplate,
		Priority:      priority,
		Payload:       payload,
	})
}

func containsFloat(list []float64, v float64) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}

	return false
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}

	return false
}
