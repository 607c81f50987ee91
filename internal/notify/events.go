package notify

import "log"

// Bus is the single ingress domain modules use to report state
// changes. Emit is fire-and-forget: evaluation or delivery problems
// are logged and never surfaced to the emitting mutation.
type Bus struct {
	evaluator *Evaluator
}

func NewBus(evaluator *Evaluator) *Bus {
	return &Bus{evaluator: evaluator}
}

func (b *Bus) Emit(eventName string, payload map[string]interface{}) {
	if err := b.evaluator.Evaluate(eventName, payload); err != nil {
		log.Printf("Event %q evaluation failed: %v", eventName, err)
	}
}
