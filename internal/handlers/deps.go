package handlers

import (
	"github.com/gearbox-dev/gearbox/internal/channels"
	"github.com/gearbox-dev/gearbox/internal/intervals"
	"github.com/gearbox-dev/gearbox/internal/notify"
	"github.com/gearbox-dev/gearbox/internal/scheduler"
)

// Package-level services wired once at startup, alongside db.DB.
var (
	Registry   *channels.Registry
	Dispatcher *notify.Dispatcher
	Bus        *notify.Bus
	Sched      *scheduler.Scheduler
	Checker    *intervals.Checker
)

func Configure(registry *channels.Registry, dispatcher *notify.Dispatcher, bus *notify.Bus, sched *scheduler.Scheduler, checker *intervals.Checker) {
	Registry = registry
	Dispatcher = dispatcher
	Bus = bus
	Sched = sched
	Checker = checker
}
