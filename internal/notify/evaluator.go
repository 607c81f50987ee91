package notify

import (
	"log"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"gorm.io/gorm"
)

// Evaluator matches incoming events against event/condition rules and
// dispatches the ones that pass every gate.
type Evaluator struct {
	db         *gorm.DB
	dispatcher *Dispatcher

	// now is a test hook.
	now func() time.Time
}

func NewEvaluator(conn *gorm.DB, dispatcher *Dispatcher) *Evaluator {
	return &Evaluator{
		db:         conn,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Evaluate runs every enabled event/condition rule registered for the
// event. A failure evaluating one rule never prevents evaluating the
// others; gate order is cooldown, conditions, quiet hours.
func (e *Evaluator) Evaluate(eventName string, payload map[string]interface{}) error {
	settings, err := db.GetOrCreateSettings(e.db)

	if err != nil {
		return err
	}

	// Global kill switch.
	if !settings.Enabled {
		return nil
	}

	var rules []models.Rule

	err = e.db.
		Preload("ChannelLinks.Channel").
		Where("enabled = ? AND type IN ? AND event_name = ?",
			true, []string{models.RuleTypeEvent, models.RuleTypeCondition}, eventName).
		Find(&rules).Error

	if err != nil {
		return err
	}

	now := e.now()

	for i := range rules {
		rule := rules[i]

		if !e.gatesPass(rule, settings, payload, now) {
			continue
		}

		e.dispatcher.Dispatch(Request{
			UserID:  rule.UserID,
			Rule:    &rule,
			Links:   rule.ChannelLinks,
			Payload: payload,
		})

		// Cooldown throttles invocation frequency, not delivery
		// success, so this is unconditional.
		if err := e.db.Model(&models.Rule{}).Where("id = ?", rule.ID).
			Update("last_fired_at", now).Error; err != nil {
			log.Printf("Failed to update last_fired_at for rule %d: %v", rule.ID, err)
		}
	}

	return nil
}

func (e *Evaluator) gatesPass(rule models.Rule, settings models.Settings, payload map[string]interface{}, now time.Time) bool {
	if rule.CooldownSeconds > 0 && rule.LastFiredAt != nil {
		if now.Sub(*rule.LastFiredAt) < rule.Cooldown() {
			return false
		}
	}

	if !EvaluateConditions(rule.ConditionList(), payload) {
		return false
	}

	if InQuietHours(settings, now) {
		return false
	}

	return true
}

// InQuietHours reports whether now falls inside the configured quiet
// window, evaluated as "HH:MM" in the settings timezone. A window
// whose start is after its end wraps past midnight and membership
// becomes an OR of the two edges. Both edges are inclusive.
func InQuietHours(settings models.Settings, now time.Time) bool {
	if !settings.QuietHoursConfigured() {
		return false
	}

	loc, err := time.LoadLocation(settings.Timezone)

	if err != nil {
		log.Printf("Invalid quiet hours timezone %q: %v", settings.Timezone, err)
		loc = time.UTC
	}

	current := now.In(loc).Format("15:04")
	start := settings.QuietHoursStart
	end := settings.QuietHoursEnd

	if start <= end {
		return current >= start && current <= end
	}

	// Overnight window, e.g. 22:00-07:00.
	return current >= start || current <= end
}
