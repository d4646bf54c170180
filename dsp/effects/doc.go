// Package effects provides the six real-time effect kernels of the
// workstation and the closed [Unit] variant that dispatches among them.
//
// Effects:
//   - Distortion: tanh soft clip, one-pole tone filter, output level.
//   - Filter: multimode biquad (low-pass, high-pass, band-pass, notch).
//   - Compressor: dB-domain peak envelope follower with makeup gain.
//   - Delay: single feedback delay line with dry/wet mix.
//   - Chorus: LFO-modulated short delay read with linear interpolation.
//   - Reverb: bank of eight parallel feedback combs.
//
// Every effect clamps parameter writes to the range published in its
// [ParamInfo] table and recomputes derived coefficients immediately. State is
// allocated in Prepare, sized for the largest parameter value, so parameter
// writes and block processing never allocate.
package effects
