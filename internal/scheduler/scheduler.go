// Package scheduler keeps one background job per enabled scheduled
// rule and fires it into the same dispatch path event rules use.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/notify"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type job struct {
	entryID cron.EntryID // cron/interval jobs
	timer   *time.Timer  // one-shot jobs
	spec    string       // normalized spec, for resync diffing
}

type Scheduler struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher

	mu   sync.Mutex
	cron *cron.Cron
	jobs map[uint]*job // rule ID -> job

	dailyJobs []func()

	// now is a test hook.
	now func() time.Time
}

func New(conn *gorm.DB, dispatcher *notify.Dispatcher) *Scheduler {
	return &Scheduler{
		db:         conn,
		dispatcher: dispatcher,
		jobs:       make(map[uint]*job),
		now:        time.Now,
	}
}

// OnDaily registers a function to run with the daily housekeeping
// sweep. Must be called before Start.
func (s *Scheduler) OnDaily(fn func()) {
	s.dailyJobs = append(s.dailyJobs, fn)
}

// Start brings up the cron engine, registers housekeeping and loads
// all scheduled rules.
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	s.mu.Lock()

	loc := time.UTC

	if settings, err := db.GetOrCreateSettings(s.db); err == nil && settings.Timezone != "" {
		if parsed, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = parsed
		}
	}

	s.cron = cron.New(cron.WithParser(cronParser), cron.WithLocation(loc))

	if _, err := s.cron.AddFunc("@daily", s.runDaily); err != nil {
		s.mu.Unlock()
		return err
	}

	s.cron.Start()
	s.mu.Unlock()

	return s.Resync()
}

// Stop shuts down the cron engine and cancels pending one-shot timers.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, j := range s.jobs {
		s.removeLocked(id, j)
	}

	s.jobs = make(map[uint]*job)

	if s.cron != nil {
		s.cron.Stop()
	}
}

// Resync diffs the job table against the current set of enabled
// scheduled rules. It is idempotent and safe to call after any rule
// CRUD: stale jobs are removed, changed specs are re-registered,
// unchanged jobs are left alone.
func (s *Scheduler) Resync() error {
	var rules []models.Rule

	err := s.db.
		Where("enabled = ? AND type = ?", true, models.RuleTypeScheduled).
		Find(&rules).Error

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[uint]models.Rule, len(rules))

	for _, rule := range rules {
		desired[rule.ID] = rule
	}

	// Drop jobs whose rule was disabled or deleted.
	for id, j := range s.jobs {
		if _, ok := desired[id]; !ok {
			s.removeLocked(id, j)
			delete(s.jobs, id)
			log.Printf("Removed scheduled job for rule %d", id)
		}
	}

	// Upsert the rest. A malformed spec skips that rule only.
	for _, rule := range rules {
		spec, err := ParseSchedule(rule.Schedule)

		if err != nil {
			log.Printf("Skipping scheduled rule %d (%s): %v", rule.ID, rule.Name, err)
			continue
		}

		if existing, ok := s.jobs[rule.ID]; ok {
			if existing.spec == specKey(spec) {
				continue
			}
			s.removeLocked(rule.ID, existing)
			delete(s.jobs, rule.ID)
		}

		s.addLocked(rule, spec)
	}

	return nil
}

func specKey(spec Spec) string {
	switch spec.Kind {
	case SpecCron:
		return "cron:" + spec.Cron
	case SpecInterval:
		return "every:" + spec.Every.String()
	default:
		return "at:" + spec.At.Format(time.RFC3339)
	}
}

func (s *Scheduler) addLocked(rule models.Rule, spec Spec) {
	ruleID := rule.ID
	j := &job{spec: specKey(spec)}

	switch spec.Kind {
	case SpecCron, SpecInterval:
		expr := spec.Cron

		if spec.Kind == SpecInterval {
			expr = "@every " + spec.Every.String()
		}

		entryID, err := s.cron.AddFunc(expr, func() { s.fire(ruleID) })

		if err != nil {
			log.Printf("Failed to register scheduled rule %d: %v", ruleID, err)
			return
		}

		j.entryID = entryID
	case SpecOneShot:
		delay := spec.At.Sub(s.now())

		if delay <= 0 {
			log.Printf("Skipping scheduled rule %d: one-shot timestamp already passed", ruleID)
			return
		}

		j.timer = time.AfterFunc(delay, func() {
			s.fire(ruleID)

			s.mu.Lock()
			delete(s.jobs, ruleID)
			s.mu.Unlock()
		})
	}

	s.jobs[ruleID] = j
	log.Printf("Registered scheduled job for rule %d (%s)", ruleID, rule.Name)
}

func (s *Scheduler) removeLocked(id uint, j *job) {
	if j.timer != nil {
		j.timer.Stop()
	}

	if j.entryID != 0 {
		s.cron.Remove(j.entryID)
	}
}

// fire runs one scheduled rule: reload it, honor the global kill
// switch, dispatch to its links and stamp last_fired.
func (s *Scheduler) fire(ruleID uint) {
	settings, err := db.GetOrCreateSettings(s.db)

	if err != nil {
		log.Printf("Scheduled rule %d: failed to load settings: %v", ruleID, err)
		return
	}

	if !settings.Enabled {
		return
	}

	var rule models.Rule

	err = s.db.Preload("ChannelLinks.Channel").
		Where("id = ? AND enabled = ?", ruleID, true).
		First(&rule).Error

	if err != nil {
		log.Printf("Scheduled rule %d no longer available: %v", ruleID, err)
		return
	}

	now := s.now()

	payload := map[string]interface{}{
		"rule_name": rule.Name,
		"trigger":   "schedule",
		"timestamp": now.Format(time.RFC3339),
	}

	s.dispatcher.Dispatch(notify.Request{
		UserID:  rule.UserID,
		Rule:    &rule,
		Links:   rule.ChannelLinks,
		Payload: payload,
	})

	if err := s.db.Model(&models.Rule{}).Where("id = ?", rule.ID).
		Update("last_fired_at", now).Error; err != nil {
		log.Printf("Failed to update last_fired_at for rule %d: %v", rule.ID, err)
	}
}

// runDaily prunes old log rows and runs registered daily jobs such as
// the service-interval sweep.
func (s *Scheduler) runDaily() {
	s.pruneLogs()

	for _, fn := range s.dailyJobs {
		fn()
	}
}

func (s *Scheduler) pruneLogs() {
	settings, err := db.GetOrCreateSettings(s.db)

	if err != nil {
		log.Printf("Log retention: failed to load settings: %v", err)
		return
	}

	if settings.RetentionDays <= 0 {
		return
	}

	cutoff := s.now().AddDate(0, 0, -settings.RetentionDays)

	result := s.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.NotificationLogEntry{})

	if result.Error != nil {
		log.Printf("Log retention prune failed: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Pruned %d notification log entries older than %d days", result.RowsAffected, settings.RetentionDays)
	}
}
