// Package strategy turns historical price series into target portfolio weights.
package strategy

import (
	"math"
	"sort"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/market"
)

// Weights maps symbols to target allocation fractions. Values sum to 1; an
// empty map means hold everything in cash this cycle.
type Weights map[string]float64

// Score is one symbol's momentum reading.
type Score struct {
	Symbol string
	Value  float64
}

// Momentum ranks symbols by trailing return over a lookback window and
// allocates weight proportional to score among the top-K performers.
// ComputeWeights is a pure function of its inputs: identical history always
// yields identical weights, which is what makes cycles replayable.
type Momentum struct {
	lookback int
	topK     int
}

// NewMomentum builds the signal engine. lookback is the number of periods the
// return spans; topK limits the investable set, with 0 meaning "all eligible".
func NewMomentum(lookback, topK int) *Momentum {
	if lookback <= 0 {
		lookback = 63
	}
	if topK < 0 {
		topK = 0
	}
	return &Momentum{lookback: lookback, topK: topK}
}

// Scores computes the momentum score for every symbol with enough history.
// Symbols with fewer than lookback+1 observations are omitted: sparse data is
// an exclusion, not an error. Results are ordered best first, ties broken by
// symbol so the ranking is stable.
func (m *Momentum) Scores(history map[string]market.PriceSeries) []Score {
	scores := make([]Score, 0, len(history))
	for symbol, series := range history {
		last, ok := series.Last()
		if !ok {
			continue
		}
		base, ok := series.At(m.lookback)
		if !ok || base.Close.IsZero() {
			continue
		}
		value := last.Close.Div(base.Close).InexactFloat64() - 1
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		scores = append(scores, Score{Symbol: symbol, Value: value})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Value != scores[j].Value {
			return scores[i].Value > scores[j].Value
		}
		return scores[i].Symbol < scores[j].Symbol
	})
	return scores
}

// ComputeWeights derives the target allocation from history. The top-K
// eligible symbols form the investable set; weight is proportional to score
// among the positive scorers. When every score in the set is non-positive the
// set is weighted equally instead, a deliberate policy to avoid going all-cash
// purely because the whole market trended down over the lookback.
func (m *Momentum) ComputeWeights(history map[string]market.PriceSeries) Weights {
	scores := m.Scores(history)
	if len(scores) == 0 {
		return Weights{}
	}
	if m.topK > 0 && len(scores) > m.topK {
		scores = scores[:m.topK]
	}

	var positiveSum float64
	for _, s := range scores {
		if s.Value > 0 {
			positiveSum += s.Value
		}
	}

	weights := make(Weights, len(scores))
	if positiveSum > 0 {
		for _, s := range scores {
			if s.Value > 0 {
				weights[s.Symbol] = s.Value / positiveSum
			}
		}
		return weights
	}

	equal := 1.0 / float64(len(scores))
	for _, s := range scores {
		weights[s.Symbol] = equal
	}
	return weights
}
