package notify

import (
	"testing"

	"github.com/gearbox-dev/gearbox/internal/models"
)

func TestEmptyConditionListAlwaysMatches(t *testing.T) {
	if !EvaluateConditions(nil, map[string]interface{}{"anything": 1}) {
		t.Fatal("empty condition list should match any payload")
	}

	if !EvaluateConditions([]models.Condition{}, map[string]interface{}{}) {
		t.Fatal("empty condition list should match an empty payload")
	}
}

func TestNumericCoercion(t *testing.T) {
	payload := map[string]interface{}{"odometer": "45500"}

	cond := models.Condition{Field: "odometer", Operator: ">", Value: 45000}

	if !EvaluateConditions([]models.Condition{cond}, payload) {
		t.Fatal("string \"45500\" should coerce and compare numerically against 45000")
	}
}

func TestMissingFieldFailsClosed(t *testing.T) {
	cond := models.Condition{Field: "absent", Operator: "==", Value: 1}

	if EvaluateConditions([]models.Condition{cond}, map[string]interface{}{"other": 1}) {
		t.Fatal("condition on a missing payload field must fail the rule")
	}
}

func TestUnknownOperatorFailsClosed(t *testing.T) {
	cond := models.Condition{Field: "a", Operator: "~=", Value: 1}

	if EvaluateConditions([]models.Condition{cond}, map[string]interface{}{"a": 1}) {
		t.Fatal("unknown operator must fail the rule, not crash")
	}
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	payload := map[string]interface{}{"message": "Engine OIL low"}

	contains := models.Condition{Field: "message", Operator: "contains", Value: "oil"}
	notContains := models.Condition{Field: "message", Operator: "not_contains", Value: "coolant"}

	if !EvaluateConditions([]models.Condition{contains, notContains}, payload) {
		t.Fatal("contains should be a case-insensitive substring check")
	}
}

func TestRelativeToComparesPayloadFields(t *testing.T) {
	payload := map[string]interface{}{"odometer": 45500.0, "next_due": 45000.0}

	cond := models.Condition{Field: "odometer", Operator: ">=", RelativeTo: "next_due"}

	if !EvaluateConditions([]models.Condition{cond}, payload) {
		t.Fatal("relative_to should compare two payload fields")
	}

	cond.RelativeTo = "missing"

	if EvaluateConditions([]models.Condition{cond}, payload) {
		t.Fatal("missing relative_to field must fail the rule")
	}
}

func TestConditionsAreANDed(t *testing.T) {
	payload := map[string]interface{}{"a": 1, "b": 2}

	conds := []models.Condition{
		{Field: "a", Operator: "==", Value: 1},
		{Field: "b", Operator: "==", Value: 3},
	}

	if EvaluateConditions(conds, payload) {
		t.Fatal("one failing condition must fail the whole rule")
	}
}

func TestFallbackStringComparison(t *testing.T) {
	payload := map[string]interface{}{"state": "overdue"}

	cond := models.Condition{Field: "state", Operator: "==", Value: "overdue"}

	if !EvaluateConditions([]models.Condition{cond}, payload) {
		t.Fatal("non-numeric values should fall back to string comparison")
	}

	cond = models.Condition{Field: "state", Operator: "!=", Value: "ok"}

	if !EvaluateConditions([]models.Condition{cond}, payload) {
		t.Fatal("!= should work on strings")
	}
}
