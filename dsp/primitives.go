// Package dsp implements the signal-processing core of a single-operator
// SDR transceiver: the receive demodulation chain, the transmit
// modulation chain, and the waterfall/spectrum side path that shares
// state with receive.
//
// Everything in this package runs on the hot per-block audio path and
// allocates nothing once warmed up: callers own all buffers and pass
// them in, and state lives in small structs the caller also owns.
package dsp

import "math"

/*-------------------------------------------------------------------
 *
 * Name:	clip
 *
 * Purpose:	Hard-limit a value to +/- threshold.
 *
 *---------------------------------------------------------------*/

func clip(v, threshold float32) float32 {
	if v < -threshold {
		return -threshold
	}
	if v > threshold {
		return threshold
	}
	return v
}

// IQ is one complex baseband sample, kept as a plain struct (rather
// than complex64) so the biquad and oscillator code below reads the
// same as the original C i/q struct-of-two-floats layout.
type IQ struct {
	I, Q float32
}

/*-------------------------------------------------------------------
 *
 * Name:	BiquadCoeff / BiquadState / BiquadStateR
 *
 * Purpose:	A single second-order IIR section and its running state,
 *		in transposed direct form II
 *		(see https://www.dsprelated.com/freebooks/filters/Transposed_Direct_Forms.html).
 *
 *		BiquadState carries a complex (I/Q) signal through the
 *		filter, running the same coefficients separately on I
 *		and Q. BiquadStateR carries one real-valued sample at a
 *		time.
 *
 *---------------------------------------------------------------*/

type BiquadCoeff struct {
	A1, A2, B0, B1, B2 float32
}

type BiquadState struct {
	S1I, S1Q, S2I, S2Q float32
}

type BiquadStateR struct {
	S1, S2 float32
}

/*-------------------------------------------------------------------
 *
 * Name:	BiquadFilter
 *
 * Purpose:	Run a biquad filter over a complex-valued buffer in place.
 *
 * Inputs:	c	- filter coefficients
 *		buf	- samples, overwritten with filtered output
 *
 *---------------------------------------------------------------*/

func BiquadFilter(s *BiquadState, c *BiquadCoeff, buf []IQ) {
	a1, a2, b0, b1, b2 := -c.A1, -c.A2, c.B0, c.B1, c.B2
	s1i, s1q, s2i, s2q := s.S1I, s.S1Q, s.S2I, s.S2Q

	for i := range buf {
		inI, inQ := buf[i].I, buf[i].Q
		outI := s1i + b0*inI
		outQ := s1q + b0*inQ
		s1i = s2i + b1*inI + a1*outI
		s1q = s2q + b1*inQ + a1*outQ
		s2i = b2 * inI + a2*outI
		s2q = b2 * inQ + a2*outQ
		buf[i].I = outI
		buf[i].Q = outQ
	}

	s.S1I, s.S1Q, s.S2I, s.S2Q = s1i, s1q, s2i, s2q
}

/*-------------------------------------------------------------------
 *
 * Name:	BiquadSampleR
 *
 * Purpose:	Run a biquad filter over a single real-valued sample.
 *
 *---------------------------------------------------------------*/

func BiquadSampleR(s *BiquadStateR, c *BiquadCoeff, in float32) float32 {
	out := s.S1 + c.B0*in
	s.S1 = s.S2 + c.B1*in - c.A1*out
	s.S2 = c.B2*in - c.A2*out
	return out
}

/*-------------------------------------------------------------------
 *
 * Name:	renormalize
 *
 * Purpose:	Keep a rotating unit-circle oscillator value close to
 *		the unit circle, correcting the small drift that
 *		accumulates from repeated complex multiplication.
 *
 *		Applies one Newton iteration towards |z|=1, following
 *		https://dspguru.com/dsp/howtos/how-to-create-oscillators-in-software/.
 *		Cheap enough to run once per processed block rather than
 *		per sample.
 *
 *---------------------------------------------------------------*/

func renormalize(i, q float32) (float32, float32) {
	ms := i*i + q*q
	scale := (3.0 - ms) * 0.5
	return scale * i, scale * q
}

/*-------------------------------------------------------------------
 *
 * Name:	approxAngle
 *
 * Purpose:	Fast approximation of atan2(q, i), scaled so the full
 *		+/-pi range maps onto the wraparound range of a uint32
 *		phase accumulator.
 *
 *		Exact precision doesn't matter here: the result feeds a
 *		phase-tracking feedback loop (mod_iq_to_fm) that corrects
 *		for its own quantization error on every sample, so a
 *		cheap rational approximation is preferable to a true
 *		atan2 call.
 *
 *---------------------------------------------------------------*/

func approxAngle(q, i float32) uint32 {
	const halfTurn = 1 << 31
	const quarterTurn = 1 << 30

	if i == 0 && q == 0 {
		return 0
	}

	ai, aq := float32(math.Abs(float64(i))), float32(math.Abs(float64(q)))
	var ratio, angle float32
	if ai >= aq {
		ratio = aq / ai
		angle = quarterTurnFraction(ratio)
		if i < 0 {
			angle = float32(halfTurn) - angle
		}
	} else {
		ratio = ai / aq
		angle = float32(quarterTurn) - quarterTurnFraction(ratio)
		if i < 0 {
			angle = float32(halfTurn) - angle
		}
	}
	if q < 0 {
		angle = -angle
	}
	return uint32(int32(angle))
}

// quarterTurnFraction approximates atan(x) in radians for x in [0,1]
// (the polynomial is a minimax fit of atan itself: a+b = atan(1)),
// then scales radians to uint32 phase-circle units (2^32 per turn).
// At x=1 (45 degrees) this must come out to exactly quarterTurn/2, the
// value the ai>=aq and ai<aq branches of approxAngle both converge to
// at the octant boundary; scaling the true radian measure rather than
// an arbitrary constant is what keeps that continuous.
func quarterTurnFraction(x float32) float32 {
	const radToCircle = float32(4294967296.0 / (2 * math.Pi))
	// Minimax-ish cubic approximation of atan(x) on [0,1].
	const a = 0.9817
	const b = -0.1963
	return radToCircle * (a*x + b*x*x*x)
}

/*-------------------------------------------------------------------
 *
 * Name:	amMagnitude
 *
 * Purpose:	Cheap magnitude estimate for AM detection:
 *		max(|i|,|q|) + beta*min(|i|,|q|).
 *		See https://dspguru.com/dsp/tricks/magnitude-estimator/.
 *
 *---------------------------------------------------------------*/

const amMagnitudeBeta = 0.4142

func amMagnitude(i, q int32) float32 {
	ai := float32(absInt32(i))
	aq := float32(absInt32(q))
	if ai >= aq {
		return ai + aq*amMagnitudeBeta
	}
	return aq + ai*amMagnitudeBeta
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// isNaN32 is a readable wrapper used at the handful of points the
// original carries an explicit "avoid NaN" check rather than relying
// on the self-equality trick inline.
func isNaN32(f float32) bool {
	return f != f
}
