package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the number of entering alerts a token may produce before it is
// retired from evaluation.
const Budget = 2

// Range is a manual USD low/high that replaces the pair's own range.
type Range struct {
	Low  decimal.Decimal `json:"low" yaml:"low"`
	High decimal.Decimal `json:"high" yaml:"high"`
}

// Observation is what the last successful evaluation saw. Informational only.
type Observation struct {
	Symbol    string          `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	PairURL   string          `json:"pair_url,omitempty" yaml:"pair_url,omitempty"`
	PriceUSD  decimal.Decimal `json:"price_usd" yaml:"price_usd"`
	Level75   decimal.Decimal `json:"level75" yaml:"level75"`
	BandLow   decimal.Decimal `json:"band_low" yaml:"band_low"`
	BandHigh  decimal.Decimal `json:"band_high" yaml:"band_high"`
	Defined   bool            `json:"defined" yaml:"defined"`
	CheckedAt time.Time       `json:"checked_at" yaml:"checked_at"`
}

// TokenState is the per-token record driving the entering-edge detector.
type TokenState struct {
	AlertsSent int  `json:"alerts_sent" yaml:"alerts_sent"`
	WasInBand  bool `json:"was_in_band" yaml:"was_in_band"`
	Stopped    bool `json:"stopped" yaml:"stopped"`

	Range   *Range       `json:"range,omitempty" yaml:"range,omitempty"`
	Last    *Observation `json:"last,omitempty" yaml:"last,omitempty"`
	AddedAt time.Time    `json:"added_at" yaml:"added_at"`
}

// Step feeds one cycle's band membership into the detector and reports
// whether an alert must be emitted. It fires only on an out-of-band to in-band
// transition. The alert that exhausts the budget is still reported, and the
// token is stopped. A stopped state is left untouched.
func (s *TokenState) Step(inBand bool) bool {
	if s.Stopped {
		return false
	}

	fire := inBand && !s.WasInBand
	if fire {
		s.AlertsSent++
		if s.AlertsSent >= Budget {
			s.Stopped = true
		}
	}
	s.WasInBand = inBand
	return fire
}
