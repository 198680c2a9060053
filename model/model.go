// Package model ties a byte-context mask and an integer weight to a
// predictor table, answering "predict the next bit" for the compressor's
// mixer.
package model

import (
	"fcmp/bitstream"
	"fcmp/predictor"
)

// Model is one byte-context mask, its weight, and the predictor table keyed
// by that mask.
type Model struct {
	context    uint8
	weight     uint8
	predictors *predictor.Table
}

// New returns a model for the given context mask and starting weight, with
// an empty predictor table.
func New(context, weight uint8) *Model {
	return &Model{context: context, weight: weight, predictors: predictor.NewTable()}
}

// Context returns the context mask this model matches.
func (m *Model) Context() uint8 {
	return m.context
}

// Weight returns the model's current weight.
func (m *Model) Weight() uint8 {
	return m.weight
}

// SetWeight replaces the model's weight.
func (m *Model) SetWeight(w uint8) {
	m.weight = w
}

// Predict returns the stored (countOne, countZero) for the current read
// state, or (0, 0) with ok=false if no prediction has been recorded yet.
func (m *Model) Predict(state bitstream.ReadState) (predictor.Value, bool) {
	key := predictor.NewKey(m.context, state)
	return m.predictors.Lookup(key)
}

// Update folds the observed bit into the predictor entry for the current
// read state, creating the entry (at its default (1,1) value) on first
// access.
func (m *Model) Update(state bitstream.ReadState, bit uint8) {
	key := predictor.NewKey(m.context, state)
	m.predictors.Update(key, bit)
}

// Reset empties the predictor table, retaining context and weight.
func (m *Model) Reset() {
	m.predictors.Reset()
}

// Clone returns a deep copy of m, including an independent predictor table.
func (m *Model) Clone() *Model {
	return &Model{context: m.context, weight: m.weight, predictors: m.predictors.Clone()}
}
