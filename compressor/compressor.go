// Package compressor implements the ensemble of weighted byte-context
// models: mixing their predictions into a single probability interval, and
// the mutate/rebase operations the search engine drives.
package compressor

import (
	"fcmp/bitstream"
	"fcmp/model"
)

// MaxModels bounds the number of distinct context values a Compressor may
// hold, matching the container format's model_count field width.
const MaxModels = 255

// defaultWeight is the rescale target used by Rebase.
const defaultWeight = 32

// Compressor is an ordered ensemble of Models. At most one model exists per
// context value.
type Compressor struct {
	models []*model.Model
}

// New returns an empty Compressor.
func New() *Compressor {
	return &Compressor{}
}

// Len returns the number of models.
func (c *Compressor) Len() int {
	return len(c.models)
}

// ModelAt returns the model at index i.
func (c *Compressor) ModelAt(i int) *model.Model {
	return c.models[i]
}

// indexOf returns the index of the model matching context, or -1.
func (c *Compressor) indexOf(context uint8) int {
	for i, m := range c.models {
		if m.Context() == context {
			return i
		}
	}
	return -1
}

// AddModel adds, updates, or removes the model for context, per weight:
// weight 0 removes an existing model (or is a no-op if none exists); a
// differing nonzero weight updates an existing model's weight, while an equal
// weight leaves it unchanged; a nonzero weight for a context with no model
// appends a new model. Reports whether the compressor changed.
func (c *Compressor) AddModel(context, weight uint8) bool {
	idx := c.indexOf(context)
	if idx >= 0 {
		if weight == 0 {
			c.models = append(c.models[:idx], c.models[idx+1:]...)
			return true
		}
		if c.models[idx].Weight() != weight {
			c.models[idx].SetWeight(weight)
			return true
		}
		return false
	}
	if weight == 0 {
		return false
	}
	c.models = append(c.models, model.New(context, weight))
	return true
}

// Clone returns a deep copy of the compressor, including independent
// predictor tables for every model.
func (c *Compressor) Clone() *Compressor {
	clone := &Compressor{models: make([]*model.Model, len(c.models))}
	for i, m := range c.models {
		clone.models[i] = m.Clone()
	}
	return clone
}

// Mutate returns a deep copy of the compressor with AddModel(context,
// weight) applied, or nil if that application would not change anything.
func (c *Compressor) Mutate(context, weight uint8) *Compressor {
	clone := c.Clone()
	if !clone.AddModel(context, weight) {
		return nil
	}
	return clone
}

// Reset clears every model's predictor table, retaining context and weight.
func (c *Compressor) Reset() {
	for _, m := range c.models {
		m.Reset()
	}
}

// Interval is a probability interval: bit=1 occupies [lower, upper) of
// [0, denominator); its complement [0, lower) is bit=0's interval.
type Interval struct {
	Lower       uint64
	Upper       uint64
	Denominator uint64
}

// Probability mixes every model's prediction for the current read state
// into a single Interval describing the given target bit. Models with no
// recorded prediction for this context are skipped. If no model has any
// data yet, the mix degenerates to an even split.
//
// target=true returns the partition for bit=1; target=false returns the
// partition for bit=0. The decoder, which does not know the bit in advance,
// always calls with target=true to obtain the canonical partition and then
// determines the bit from where the coder's running value falls.
func (c *Compressor) Probability(state bitstream.ReadState, target bool) Interval {
	var sumOne, sumZero uint64
	for _, m := range c.models {
		pred, ok := m.Predict(state)
		if !ok {
			continue
		}
		w := uint64(m.Weight())
		sumOne += w * uint64(pred.CountOne)
		sumZero += w * uint64(pred.CountZero)
	}

	total := sumOne + sumZero
	if total == 1 {
		panic("compressor: illegal total count of 1; mixer invariant violated")
	}
	if total == 0 {
		sumOne, sumZero, total = 1, 1, 2
	}

	if target {
		return Interval{Lower: sumZero, Upper: total, Denominator: total}
	}
	return Interval{Lower: 0, Upper: sumZero, Denominator: total}
}

// Update folds the observed bit into every model's predictor table for the
// current read state.
func (c *Compressor) Update(state bitstream.ReadState, bit uint8) {
	for _, m := range c.models {
		m.Update(state, bit)
	}
}

// gcd returns the greatest common divisor of two positive integers via
// Euclid's method.
func gcd(a, b uint8) uint8 {
	if a < b {
		a, b = b, a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Rebase divides every model's weight by the gcd of all weights, then, if
// rescale is true, multiplies by the integer in [1, defaultWeight] that
// minimises the squared distance of the min/max weights from defaultWeight
// subject to no weight exceeding 255 and defaultWeight lying within
// [min*mul, max*mul]. If the result still has a minimum weight of 1 and
// doubling would not push any weight to 256 or beyond, all weights are
// doubled. Reports whether any weight changed.
func (c *Compressor) Rebase(rescale bool) bool {
	if len(c.models) == 0 {
		return false
	}

	g := c.models[0].Weight()
	minValue := c.models[0].Weight()
	maxValue := c.models[0].Weight()
	for _, m := range c.models[1:] {
		g = gcd(g, m.Weight())
		if m.Weight() < minValue {
			minValue = m.Weight()
		}
		if m.Weight() > maxValue {
			maxValue = m.Weight()
		}
	}

	scaledMin := minValue / g
	scaledMax := maxValue / g

	bestMul := uint64(1)
	if rescale {
		bestErr := ^uint64(0)
		for mul := uint64(1); mul <= defaultWeight; mul++ {
			minMul := uint64(scaledMin) * mul
			maxMul := uint64(scaledMax) * mul
			if maxMul > 255 {
				break
			}
			if minMul <= defaultWeight && defaultWeight <= maxMul {
				errUp := defaultWeight - minMul
				errDown := maxMul - defaultWeight
				errSqr := errUp*errUp + errDown*errDown
				if errSqr < bestErr {
					bestErr = errSqr
					bestMul = mul
				}
			}
		}
	}

	changed := bestMul != uint64(g)
	if changed {
		for _, m := range c.models {
			m.SetWeight(uint8((uint64(m.Weight()) / uint64(g)) * bestMul))
		}
	}

	// Prevent a permanently 1-valued model: if the minimum weight is still 1
	// after scaling and doubling would not overflow any weight, double all.
	newMin, newMax := c.minMaxWeight()
	if newMin == 1 && newMax*2 < 256 {
		for _, m := range c.models {
			m.SetWeight(m.Weight() * 2)
		}
		changed = true
	}

	return changed
}

// minMaxWeight returns the minimum and maximum weight across all models.
func (c *Compressor) minMaxWeight() (min, max uint16) {
	min = uint16(c.models[0].Weight())
	max = min
	for _, m := range c.models[1:] {
		w := uint16(m.Weight())
		if w < min {
			min = w
		}
		if w > max {
			max = w
		}
	}
	return min, max
}
