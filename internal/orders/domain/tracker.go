package domain

import "time"

type TrackerStep struct {
	Status    OrderStatus `json:"status"`
	Label     string      `json:"label"`
	Completed bool        `json:"completed"`
	Current   bool        `json:"current"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

type Tracker struct {
	OrderID       string          `json:"order_id"`
	CurrentStatus OrderStatus     `json:"current_status"`
	CurrentLabel  string          `json:"current_label"`
	Steps         []TrackerStep   `json:"steps"`
	Timeline      []TimelineEntry `json:"timeline"`
}

// BuildTracker lays the lifecycle out as steps. Every step up to the current status is
// completed; a step's timestamp is the latest time the order entered that status.
func BuildTracker(o *Order) Tracker {
	current := o.OrderStatus.Position()

	reached := make(map[OrderStatus]time.Time, len(o.StatusTimeline))
	for _, e := range o.StatusTimeline {
		if ts, ok := reached[e.Status]; !ok || e.Timestamp.After(ts) {
			reached[e.Status] = e.Timestamp
		}
	}

	steps := make([]TrackerStep, len(Lifecycle))
	for i, s := range Lifecycle {
		step := TrackerStep{
			Status:    s,
			Label:     s.Label(),
			Completed: current >= 0 && i <= current,
			Current:   i == current,
		}
		if ts, ok := reached[s]; ok && step.Completed {
			t := ts
			step.Timestamp = &t
		}
		steps[i] = step
	}

	return Tracker{
		OrderID:       o.ID,
		CurrentStatus: o.OrderStatus,
		CurrentLabel:  o.OrderStatus.Label(),
		Steps:         steps,
		Timeline:      o.StatusTimeline,
	}
}
