package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gearbox-dev/gearbox/internal/models"
)

// EvaluateConditions applies every condition against the payload.
// Conditions are ANDed; an empty list always matches. Any evaluation
// problem (missing field, unknown operator) fails closed.
func EvaluateConditions(conditions []models.Condition, payload map[string]interface{}) bool {
	for _, cond := range conditions {
		if !evaluateCondition(cond, payload) {
			return false
		}
	}

	return true
}

func evaluateCondition(cond models.Condition, payload map[string]interface{}) bool {
	left, ok := payload[cond.Field]

	if !ok {
		return false
	}

	var right interface{}

	if cond.RelativeTo != "" {
		right, ok = payload[cond.RelativeTo]

		if !ok {
			return false
		}
	} else {
		right = cond.Value
	}

	switch cond.Operator {
	case "contains":
		return containsFold(left, right)
	case "not_contains":
		return !containsFold(left, right)
	case "==", "!=", ">", ">=", "<", "<=":
		return compare(cond.Operator, left, right)
	default:
		return false
	}
}

func containsFold(haystack, needle interface{}) bool {
	return strings.Contains(
		strings.ToLower(fmt.Sprint(haystack)),
		strings.ToLower(fmt.Sprint(needle)),
	)
}

// compare attempts numeric coercion on both sides first, falling back
// to lexical string comparison when either side is not a number.
func compare(operator string, left, right interface{}) bool {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)

	if lok && rok {
		switch operator {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		}
		return false
	}

	ls := fmt.Sprint(left)
	rs := fmt.Sprint(right)

	switch operator {
	case "==":
		return ls == rs
	case "!=":
		return ls != rs
	case ">":
		return ls > rs
	case ">=":
		return ls >= rs
	case "<":
		return ls < rs
	case "<=":
		return ls <= rs
	}

	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
