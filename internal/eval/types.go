package eval

import "time"

// AvailabilityResult represents the computed availability for one window
type AvailabilityResult struct {
	Value            float64
	InsufficientData bool
	Reason           string
}

// WindowResult represents burn-rate computation for a single window
type WindowResult struct {
	Window           string  `json:"window"`
	Availability     float64 `json:"avail"`
	BurnRate         float64 `json:"burn"`
	Threshold        float64 `json:"threshold"`
	Trigger          bool    `json:"trigger"`
	Warn             bool    `json:"warn"`
	InsufficientData bool    `json:"insufficientData,omitempty"`
}

// Result represents the complete evaluation of one service at one tick
type Result struct {
	ServiceID      string                  `json:"serviceId"`
	Windows        map[string]WindowResult `json:"windows"`
	ShouldTrigger  bool                    `json:"shouldTrigger"`
	Warn           bool                    `json:"warn"`
	TriggerWindows []string                `json:"triggerWindows,omitempty"`
	Severity       string                  `json:"severity,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
	EvalDuration   time.Duration           `json:"-"`
}
