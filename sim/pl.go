package sim

// Costs is the per-fill cost model.
type Costs struct {
	CommissionPct float64 // of fill notional, 0.1 = 0.1%
	SlippagePct   float64 // adverse price move per fill
}

// BuyFill is the effective price paid for a buy referenced at ref.
func (c Costs) BuyFill(ref float64) float64 {
	return ref * (1 + c.SlippagePct/100)
}

// SellFill is the effective price received for a sell referenced at ref.
func (c Costs) SellFill(ref float64) float64 {
	return ref * (1 - c.SlippagePct/100)
}

// Commission charged on one fill.
func (c Costs) Commission(fill, qty float64) float64 {
	return fill * qty * c.CommissionPct / 100
}

// UnrealizedPL is the gross profit of a long position of qty units.
func UnrealizedPL(entry, price, qty float64) float64 {
	return qty * (price - entry)
}
