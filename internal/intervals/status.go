// Package intervals computes due/overdue state for recurring service
// items and turns newly crossed milestones into notifications.
package intervals

import (
	"time"

	"github.com/gearbox-dev/gearbox/internal/models"
)

const (
	StateUnknown = "unknown"
	StateOK      = "ok"
	StateDueSoon = "due_soon"
	StateDue     = "due"
	StateOverdue = "overdue"
)

// Approach windows for due_soon.
const (
	dueSoonMiles = 1000.0
	dueSoonDays  = 30
)

// Status is the result of evaluating one interval against the current
// odometer and date.
type Status struct {
	State string

	MilesRemaining float64
	MilesOverdue   float64
	DaysRemaining  int
	DaysOverdue    int

	NextDueOdometer *float64
	NextDueDate     *time.Time
}

var stateRank = map[string]int{
	StateOK:      0,
	StateDueSoon: 1,
	StateDue:     2,
	StateOverdue: 3,
}

// ComputeStatus is pure: same inputs, same answer. The miles dimension
// needs both a miles interval and a last-service odometer; the months
// dimension needs both a months interval and a last-service date.
// Next-due dates use calendar month arithmetic, not a 30-day
// approximation.
func ComputeStatus(si models.ServiceInterval, currentOdometer float64, now time.Time) Status {
	st := Status{State: StateUnknown}

	if si.LastServiceDate == nil && si.LastServiceMileage == nil {
		return st
	}

	milesConfigured := si.MilesInterval > 0 && si.LastServiceMileage != nil
	monthsConfigured := si.MonthsInterval > 0 && si.LastServiceDate != nil

	if !milesConfigured && !monthsConfigured {
		return st
	}

	milesState := ""
	monthsState := ""

	if milesConfigured {
		nextDue := *si.LastServiceMileage + si.MilesInterval
		st.NextDueOdometer = &nextDue
		st.MilesRemaining = nextDue - currentOdometer

		switch {
		case st.MilesRemaining < 0:
			st.MilesOverdue = -st.MilesRemaining
			st.MilesRemaining = 0
			milesState = StateOverdue
		case st.MilesRemaining == 0:
			milesState = StateDue
		case st.MilesRemaining <= dueSoonMiles:
			milesState = StateDueSoon
		default:
			milesState = StateOK
		}
	}

	if monthsConfigured {
		nextDue := si.LastServiceDate.AddDate(0, si.MonthsInterval, 0)
		st.NextDueDate = &nextDue

		days := int(nextDue.Sub(now).Hours() / 24)

		switch {
		case now.After(nextDue):
			st.DaysOverdue = int(now.Sub(nextDue).Hours() / 24)
			monthsState = StateOverdue
		case days == 0:
			monthsState = StateDue
			st.DaysRemaining = 0
		case days <= dueSoonDays:
			monthsState = StateDueSoon
			st.DaysRemaining = days
		default:
			monthsState = StateOK
			st.DaysRemaining = days
		}
	}

	st.State = combineStates(si.ConditionType, milesState, monthsState)

	return st
}

// combineStates merges the per-dimension states. With one dimension
// configured the other is empty and that dimension decides alone. For
// "or" the worse state wins. For "and" due/overdue require both
// dimensions to have reached that state, but an approaching dimension
// still yields due_soon so the early warning is never suppressed.
func combineStates(conditionType, milesState, monthsState string) string {
	if milesState == "" {
		return monthsState
	}

	if monthsState == "" {
		return milesState
	}

	if conditionType != models.IntervalConditionAnd {
		if stateRank[milesState] >= stateRank[monthsState] {
			return milesState
		}
		return monthsState
	}

	worse := milesState
	better := monthsState

	if stateRank[monthsState] > stateRank[milesState] {
		worse = monthsState
		better = milesState
	}

	if stateRank[better] >= stateRank[StateDue] {
		return better
	}

	if stateRank[worse] >= stateRank[StateDueSoon] {
		return StateDueSoon
	}

	return StateOK
}
