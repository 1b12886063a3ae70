package service

// Definition represents a parsed monitored-service definition
type Definition struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata contains service metadata
type Metadata struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	Owner       string `yaml:"owner,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Spec contains the guard specification for one service
type Spec struct {
	SLO             SLO          `yaml:"slo"`
	ErrorBudgetDays int          `yaml:"errorBudgetDays"`
	Windows         []BurnWindow `yaml:"windows"`
	Evaluation      Evaluation   `yaml:"evaluation"`
	ActionPlan      []PlanAction `yaml:"actionPlan,omitempty"`
	Recovery        Recovery     `yaml:"recovery"`
	Flapping        Flapping     `yaml:"flapping"`
}

// SLO defines the service-level objectives guarded for a service
type SLO struct {
	UptimeTargetPct float64 `yaml:"uptimeTargetPct"`
	LatencyP95Ms    *int    `yaml:"latencyP95Ms,omitempty"`
	FreshnessP95Ms  *int    `yaml:"freshnessP95Ms,omitempty"`
}

// BurnWindow pairs one trailing window with its burn-rate threshold
type BurnWindow struct {
	Window        string  `yaml:"window"`
	BurnThreshold float64 `yaml:"burnThreshold"`
}

// Evaluation tunes how aggregates are converted into trigger decisions.
// EarlyWarnFactor and DecayRetention fall back to defaults when zero; the
// source heuristics (0.5 and 0.1) are deliberately not hard-coded.
type Evaluation struct {
	MinSamplesPerWindow int     `yaml:"minSamplesPerWindow"`
	EarlyWarnFactor     float64 `yaml:"earlyWarnFactor,omitempty"`
	DecayRetention      float64 `yaml:"decayRetention,omitempty"`
}

// Action kinds permitted in an action plan
const (
	ActionFailover = "failover"
	ActionDegrade  = "degrade"
	ActionGate     = "gate"
	ActionCircuit  = "circuit"
)

// PlanAction is one ordered entry of a remediation plan
type PlanAction struct {
	Type     string          `yaml:"type"`
	Revert   *bool           `yaml:"revert,omitempty"` // defaults to true
	Failover *FailoverParams `yaml:"failover,omitempty"`
	Degrade  *DegradeParams  `yaml:"degrade,omitempty"`
	Gate     *GateParams     `yaml:"gate,omitempty"`
	Circuit  *CircuitParams  `yaml:"circuit,omitempty"`
}

// Revertible reports whether a revert request should be emitted on recovery
func (a PlanAction) Revertible() bool {
	if a.Revert == nil {
		return true
	}
	return *a.Revert
}

// FailoverParams names the failover target
type FailoverParams struct {
	To           string `yaml:"to"`
	AutoFailback bool   `yaml:"autoFailback,omitempty"`
}

// DegradeParams lists features to shed
type DegradeParams struct {
	Features []string `yaml:"features"`
}

// GateParams throttles traffic
type GateParams struct {
	MaxRequestsPerSec float64 `yaml:"maxRequestsPerSec"`
}

// CircuitParams applies a circuit-breaker policy
type CircuitParams struct {
	Policy      string `yaml:"policy"`
	CooldownSec int    `yaml:"cooldownSec,omitempty"`
}

// Recovery governs the MONITOR -> RECOVER transition
type Recovery struct {
	StableAfterMin     int `yaml:"stableAfterMin"`
	RecoveryTimeoutMin int `yaml:"recoveryTimeoutMin"`
}

// Flapping caps how often remediation may repeat
type Flapping struct {
	MaxFailoversPerHour          int `yaml:"maxFailoversPerHour"`
	MinStableMinBetweenFailovers int `yaml:"minStableMinBetweenFailovers"`
}

// ErrorBudget returns the allowed failure fraction, 1 - target
func (s Spec) ErrorBudget() float64 {
	return 1 - s.SLO.UptimeTargetPct/100
}

// EarlyWarnFactorOrDefault returns the configured factor or the 0.5 default
func (s Spec) EarlyWarnFactorOrDefault() float64 {
	if s.Evaluation.EarlyWarnFactor > 0 {
		return s.Evaluation.EarlyWarnFactor
	}
	return 0.5
}

// DecayRetentionOrDefault returns the configured retention or the 0.1 default
func (s Spec) DecayRetentionOrDefault() float64 {
	if s.Evaluation.DecayRetention > 0 {
		return s.Evaluation.DecayRetention
	}
	return 0.1
}

// FastestWindow returns the shortest active window, or "" when none parse
func (s Spec) FastestWindow() string {
	var fastest string
	var fastestDur int64
	for _, w := range s.Windows {
		d, err := ParseDuration(w.Window)
		if err != nil {
			continue
		}
		if fastest == "" || int64(d) < fastestDur {
			fastest = w.Window
			fastestDur = int64(d)
		}
	}
	return fastest
}

// DefinitionWithFile pairs a definition with its source file path
type DefinitionWithFile struct {
	Definition *Definition
	File       string
}

// ValidationError represents a validation error for a specific file
type ValidationError struct {
	File    string
	Path    string
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Path != "" {
		return e.File + ": " + e.Path + ": " + e.Message
	}
	return e.File + ": " + e.Message
}
