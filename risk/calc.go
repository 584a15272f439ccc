package risk

import "math"

// PlannedRisk is the cash lost if a long position of qty units entered at
// entry is stopped out at stop.
func PlannedRisk(qty, entry, stop float64) float64 {
	return qty * math.Abs(entry-stop)
}

// RR is the reward to risk ratio of a trade plan.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct returns planned risk as a fraction of equity.
func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
