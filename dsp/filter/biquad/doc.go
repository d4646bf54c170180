// Package biquad provides second-order IIR sections and the coefficient
// designs used by the multimode filter effect.
//
// A [Section] runs Direct Form I: it keeps the two previous inputs and the
// two previous outputs, which makes coefficient swaps between blocks free of
// state reinterpretation. [Design] produces RBJ-style low-pass, high-pass,
// band-pass and notch coefficients where the resonance control feeds the
// bandwidth term directly, alpha = sin(w0) * resonance.
package biquad
