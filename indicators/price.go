package indicators

import "github.com/rustyeddy/backtester/market"

// Bar price outputs.
const (
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// Price passes the latest bar through. Its primary value is the close.
type Price struct {
	last market.Bar
	seen bool
}

func NewPrice() *Price { return &Price{} }

func (p *Price) Name() string { return "PRICE" }
func (p *Price) Warmup() int { return 1 }
func (p *Price) Reset() { *p = Price{} }
func (p *Price) Update(b market.Bar) { p.last, p.seen = b, true }
func (p *Price) Ready() bool { return p.seen }
func (p *Price) Value() float64 { return p.last.Close }

func (p *Price) Field(name string) (float64, bool) {
	if !p.seen {
		return 0, false
	}
	switch name {
	case "", FieldClose:
		return p.last.Close, true
	case FieldOpen:
		return p.last.Open, true
	case FieldHigh:
		return p.last.High, true
	case FieldLow:
		return p.last.Low, true
	case FieldVolume:
		return p.last.Volume, true
	}
	return 0, false
}
