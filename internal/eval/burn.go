package eval

// ComputeAvailability calculates availability = ok / total for one window.
// Below minSamples the result is 0 with InsufficientData set, so thin windows
// can never produce a false trigger.
func ComputeAvailability(ok, total float64, minSamples int) AvailabilityResult {
	if total < float64(minSamples) || total == 0 {
		return AvailabilityResult{
			Value:            0,
			InsufficientData: true,
			Reason:           "insufficient samples",
		}
	}

	if ok > total {
		ok = total
	}

	return AvailabilityResult{Value: ok / total}
}

// ApplyFreshnessPenalty subtracts the freshness-miss fraction from
// availability, floored at 0. A service that answers quickly but serves stale
// data burns budget like one that fails outright.
func ApplyFreshnessPenalty(availability, freshnessMiss, total float64) float64 {
	if total == 0 || freshnessMiss <= 0 {
		return availability
	}
	penalized := availability - freshnessMiss/total
	if penalized < 0 {
		return 0
	}
	return penalized
}

// ComputeBurnRate calculates the burn rate from availability and error budget.
// burn_rate = (1 - availability) / error_budget; 0 when the budget is not positive.
func ComputeBurnRate(availability, errorBudget float64) float64 {
	if errorBudget <= 0 {
		return 0
	}
	errorRate := 1 - availability
	if errorRate < 0 {
		errorRate = 0
	}
	return errorRate / errorBudget
}
