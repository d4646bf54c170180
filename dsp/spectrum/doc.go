// Package spectrum computes amplitude-calibrated magnitude spectra of short
// analysis frames. The FFT itself comes from algo-fft; this package owns
// windowing, zero padding, bin frequencies and the scratch memory, so repeated
// calls on the audio thread do not allocate.
package spectrum
