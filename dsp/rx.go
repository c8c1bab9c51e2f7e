package dsp

/*-------------------------------------------------------------------
 *
 * Name:	SignalRing
 *
 * Purpose:	Ring buffer of I/Q samples decimated by 2 from the
 *		receive front end, feeding the waterfall FFT. Single-producer (the fast RX
 *		path), single-consumer (the slow waterfall task): the
 *		producer publishes its cursor by sending a trigger
 *		message, so no lock is needed.
 *
 *---------------------------------------------------------------*/

// SignalRingLen is the ring capacity in complex samples. Chosen as a
// power of two so the write cursor wraps with a mask.
const SignalRingLen = 512

type SignalRing struct {
	buf [SignalRingLen]IQ
}

func (r *SignalRing) Get(i int) IQ { return r.buf[i&(SignalRingLen-1)] }

/*-------------------------------------------------------------------
 *
 * Name:	DemodState
 *
 * Purpose:	All state carried between blocks by the receive path:
 *		oscillator phases, filter states, AGC/squelch state, and
 *		the signal ring/S-meter accumulator.
 *
 *---------------------------------------------------------------*/

type DemodState struct {
	audiogain float32

	ddcI, ddcQ         float32
	ddcfreqI, ddcfreqQ float32

	bfoI, bfoQ         float32
	bfofreqI, bfofreqQ float32

	fmPrevI, fmPrevQ float32

	audioLPF, audioHPF, audioPO float32

	agcAmp float32

	diffAvg, squelch float32

	smeterAcc   uint64
	smeterCount uint32

	ring       SignalRing
	ringCursor int

	mode Mode

	bq [BiquadsSSBN]BiquadState

	prevMode Mode
}

// NewDemodState returns a DemodState with oscillators initialised to
// the unit-circle rest position, matching demod_reset.
func NewDemodState() *DemodState {
	d := &DemodState{}
	d.reset()
	return d
}

func (d *DemodState) reset() {
	d.fmPrevI, d.fmPrevQ = 0, 0
	d.audioLPF, d.audioHPF, d.audioPO = 0, 0, 0
	d.agcAmp = 0
	d.diffAvg = 0
	d.bfoI, d.bfoQ = 1, 0
	d.ddcI, d.ddcQ = 1, 0
	d.bq = [BiquadsSSBN]BiquadState{}
}

// Ring exposes the waterfall/spectrum ring for a consumer reading
// alongside Store's cursor publications.
func (d *DemodState) Ring() *SignalRing { return &d.ring }

// SMeterTriggerOffsets are the ring-cursor positions (as indices into
// the SignalRing) at which Store publishes a waterfall trigger: the
// start of the ring and two further points spaced a third of the way
// around it, so a consumer always has a full FFT window of fresh
// samples behind whichever offset it's handed.
var SMeterTriggerOffsets = [3]int{0, 171, 341}

/*-------------------------------------------------------------------
 *
 * Name:	Store
 *
 * Purpose:	Decimate incoming I/Q samples by 2 into the signal ring
 *		for the waterfall FFT, and accumulate signal power for
 *		the S-meter. Sends a non-blocking trigger message to
 *		trigger whenever the cursor crosses one of
 *		SMeterTriggerOffsets; a full trigger queue just drops the
 *		message; the consumer will pick up fresher samples on the
 *		next opportunity.
 *
 * Inputs:	in	- raw received I/Q samples, pairs decimated 2:1
 *		trigger	- non-blocking (capacity <=1) channel of cursor
 *			  positions for the waterfall consumer; may be nil
 *
 *---------------------------------------------------------------*/

func (d *DemodState) Store(ps *ParamStore, in []IQInt16, trigger chan<- uint16) {
	fp := d.ringCursor
	acc := d.smeterAcc

	for i := 0; i+1 < len(in); i += 2 {
		s0i, s0q := int32(in[i].I), int32(in[i].Q)
		s1i, s1q := int32(in[i+1].I), int32(in[i+1].Q)

		d.ring.buf[fp&(SignalRingLen-1)] = IQ{I: float32(s0i + s1i), Q: float32(s0q + s1q)}
		acc += uint64(s0i*s0i+s0q*s0q) + uint64(s1i*s1i+s1q*s1q)

		fp = (fp + 1) & (SignalRingLen - 1)
		for _, off := range SMeterTriggerOffsets {
			if fp == off {
				if trigger != nil {
					select {
					case trigger <- uint16(fp):
					default:
					}
				}
				break
			}
		}
	}

	d.smeterCount += uint32(len(in))
	if d.smeterCount >= 0x4000 {
		ps.publishSMeter(uint32(acc / 0x4000))
		acc = 0
		d.smeterCount = 0
	}

	d.ringCursor = fp
	d.smeterAcc = acc
}

// IQInt16 is one raw receive-front-end I/Q sample as delivered by the
// ADC, before conversion to float for demodulation.
type IQInt16 struct {
	I, Q int16
}

/*-------------------------------------------------------------------
 *
 * Name:	demodFM
 *
 * Purpose:	FM demodulate a block. Each I/Q sample is multiplied by
 *		the conjugate of the previous one; the complex argument
 *		of the result is proportional to instantaneous frequency.
 *		Rather than compute that argument exactly, fq/( |fi|+|fq| )
 *		is used as a cheap small-angle approximation, acceptable
 *		given the oversampled input.
 *
 *		The loop processes two input samples per output sample
 *		(decimating audio by 2) and reuses the previous sample's
 *		converted values across iterations.
 *
 *		Average absolute difference between consecutive samples
 *		is tracked for squelch.
 *
 *---------------------------------------------------------------*/

func demodFM(d *DemodState, in []IQInt16, out []float32) {
	s0i, s0q := d.fmPrevI, d.fmPrevQ

	prevFM := d.audioPO
	var diffAmp float32

	n := len(in) / 2
	for i := 0; i < n; i++ {
		s1i, s1q := float32(in[2*i].I), float32(in[2*i].Q)
		fi := s1i*s0i + s1q*s0q
		fq := s1q*s0i - s1i*s0q
		fm := fq / (absf32(fi) + absf32(fq))

		s0i, s0q = float32(in[2*i+1].I), float32(in[2*i+1].Q)
		fi = s0i*s1i + s0q*s1q
		fq = s0q*s1i - s0i*s1q
		fm += fq / (absf32(fi) + absf32(fq))

		if isNaN32(fm) {
			fm = 0
		}

		out[i] = fm
		diffAmp += absf32(fm - prevFM)
		prevFM = fm
	}

	d.fmPrevI, d.fmPrevQ = s0i, s0q
	d.audioPO = prevFM

	diffAvg := d.diffAvg
	if isNaN32(diffAvg) {
		diffAvg = 0
	}
	d.diffAvg = diffAvg + (diffAmp-diffAvg)*0.02
}

func absf32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

/*-------------------------------------------------------------------
 *
 * Name:	demodAM
 *
 * Purpose:	AM demodulate a block using the cheap magnitude
 *		estimator max+beta*min, decimating audio by 2.
 *
 *---------------------------------------------------------------*/

func demodAM(in []IQInt16, out []float32) {
	n := len(in) / 2
	for i := 0; i < n; i++ {
		o := amMagnitude(int32(in[2*i].I), int32(in[2*i].Q))
		o += amMagnitude(int32(in[2*i+1].I), int32(in[2*i+1].Q))
		out[i] = o
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	demodDDC
 *
 * Purpose:	Digital down-conversion: the first mixer of the Weaver
 *		SSB/CW demodulator. Multiplies the signal by a rotating
 *		unit-circle oscillator and decimates by 2.
 *
 *---------------------------------------------------------------*/

func demodDDC(d *DemodState, in []IQInt16, out []IQ) {
	osc0i, osc0q := d.ddcI, d.ddcQ
	oscfi, oscfq := d.ddcfreqI, d.ddcfreqQ

	n := len(in) / 2
	for i := 0; i < n; i++ {
		ii, iq := float32(in[2*i].I), float32(in[2*i].Q)
		oi := osc0i*ii - osc0q*iq
		oq := osc0i*iq + osc0q*ii

		osc1i := osc0i*oscfi - osc0q*oscfq
		osc1q := osc0i*oscfq + osc0q*oscfi

		ii, iq = float32(in[2*i+1].I), float32(in[2*i+1].Q)
		oi += osc1i*ii - osc1q*iq
		oq += osc1i*iq + osc1q*ii

		osc0i = osc1i*oscfi - osc1q*oscfq
		osc0q = osc1i*oscfq + osc1q*oscfi

		out[i] = IQ{I: oi, Q: oq}
	}

	d.ddcI, d.ddcQ = renormalize(osc0i, osc0q)
}

/*-------------------------------------------------------------------
 *
 * Name:	demodDSBf
 *
 * Purpose:	Demodulate DSB with floating-point input: the second
 *		mixer of the Weaver SSB/CW demodulator, the beat-frequency
 *		oscillator. Multiplies by a rotating oscillator and keeps
 *		only the real part.
 *
 *---------------------------------------------------------------*/

func demodDSBf(d *DemodState, in []IQ, out []float32) {
	osc0i, osc0q := d.bfoI, d.bfoQ
	oscfi, oscfq := d.bfofreqI, d.bfofreqQ

	for i := 0; i+1 < len(in); i += 2 {
		out[i] = osc0i*in[i].I - osc0q*in[i].Q
		osc1i := osc0i*oscfi - osc0q*oscfq
		osc1q := osc0i*oscfq + osc0q*oscfi

		out[i+1] = osc1i*in[i+1].I - osc1q*in[i+1].Q
		osc0i = osc1i*oscfi - osc1q*oscfq
		osc0q = osc1i*oscfq + osc1q*oscfi
	}

	d.bfoI, d.bfoQ = renormalize(osc0i, osc0q)
}

/*-------------------------------------------------------------------
 *
 * Name:	demodSSB
 *
 * Purpose:	Demodulate SSB/CW using the Weaver method: DDC, a
 *		mode-specific IF filter (narrow Bessel for CW, wider
 *		Chebyshev for SSB), then the BFO mixer.
 *
 *---------------------------------------------------------------*/

func demodSSB(d *DemodState, in []IQInt16, out []float32) {
	var buf [IQMaxLen / 2]IQ

	filter := &BiquadsSSB
	if d.mode == ModeCWU || d.mode == ModeCWL {
		filter = &BiquadsCW
	}

	n := len(in) / 2
	demodDDC(d, in, buf[:n])
	for i := range d.bq {
		BiquadFilter(&d.bq[i], &filter[i], buf[:n])
	}
	demodDSBf(d, buf[:n], out)
}

/*-------------------------------------------------------------------
 *
 * Name:	demodAudioFilter
 *
 * Purpose:	Post-demodulation audio shaping: a lowpass (de-emphasis)
 *		followed by a highpass of the lowpass (DC blocking),
 *		written back into the same buffer. Also accumulates the
 *		AGC input amplitude once per block.
 *
 *---------------------------------------------------------------*/

func demodAudioFilter(d *DemodState, buf []float32) {
	const lpfA, hpfA = 0.1, 0.001
	lpf, hpf := d.audioLPF, d.audioHPF
	var amp float32

	for i, v := range buf {
		lpf += (v - lpf) * lpfA
		hpf += (lpf - hpf) * hpfA
		o := lpf - hpf
		buf[i] = o
		amp += absf32(o)
	}
	d.audioLPF, d.audioHPF = lpf, hpf

	const agcAttack, agcDecay = 0.1, 0.01
	agcAmp := d.agcAmp
	if isNaN32(agcAmp) {
		agcAmp = 0
	}

	delta := amp - agcAmp
	if delta >= 0 {
		d.agcAmp = agcAmp + delta*agcAttack
	} else {
		d.agcAmp = agcAmp + delta*agcDecay
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	demodConvertAudio
 *
 * Purpose:	Apply AGC gain, add the fixed-point midpoint bias, and
 *		clamp to the output sample range.
 *
 *---------------------------------------------------------------*/

func demodConvertAudio(in []float32, out []uint8, gain float32) {
	for i, v := range in {
		f := gain*v + AudioMid
		switch {
		case f <= AudioMin:
			out[i] = AudioMin
		case f >= AudioMax:
			out[i] = AudioMax
		default:
			out[i] = uint8(f)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	FastRX
 *
 * Purpose:	Convert one block of received I/Q samples to audio.
 *		Never blocks: this is the hot path driven directly by the
 *		radio front end's sample-ready notification.
 *
 * Inputs:	d	- receive state, owned by the caller
 *		ps	- parameter store the S-meter reading is published
 *			  to; mode, gain and squelch come from d, as set by
 *			  UpdateParams
 *		in	- I/Q samples, 2*len(out)
 *		out	- audio output buffer
 *		trigger	- waterfall trigger channel, may be nil
 *
 * Returns:	Number of audio samples written (len(out)), or 0 if the
 *		block shape is invalid.
 *
 *---------------------------------------------------------------*/

func FastRX(d *DemodState, ps *ParamStore, in []IQInt16, out []uint8, trigger chan<- uint16) int {
	if len(out)*2 != len(in) || len(out) > AudioMaxLen {
		return 0
	}

	d.Store(ps, in, trigger)

	var audio [AudioMaxLen]float32
	switch d.mode {
	case ModeFM:
		demodFM(d, in, audio[:len(out)])
	case ModeAM:
		demodAM(in, audio[:len(out)])
	case ModeUSB, ModeLSB, ModeCWU, ModeCWL:
		demodSSB(d, in, audio[:len(out)])
	default:
		// Unknown/off mode: leave audio at zero, squelch below
		// still decides whether that's what gets emitted.
	}

	if d.diffAvg < d.squelch {
		demodAudioFilter(d, audio[:len(out)])
		gain := float32(0)
		if d.agcAmp != 0 {
			gain = d.audiogain / d.agcAmp
		}
		demodConvertAudio(audio[:len(out)], out, gain)
	} else {
		for i := range out {
			out[i] = AudioMid
		}
	}

	return len(out)
}
