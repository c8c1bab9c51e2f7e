package dsp

/*-------------------------------------------------------------------
 *
 * Name:	ModState
 *
 * Purpose:	All state carried between blocks by the transmit path:
 *		audio preconditioning filters and AGC, the FM modulator's
 *		limiter/DC servo and CTCSS oscillator, and the SSB
 *		modulator's mixer oscillator and envelope-to-FM tracking
 *		loop.
 *
 *---------------------------------------------------------------*/

type ModState struct {
	hpf, hpf2, agcLPF, agcAmp float32

	limiterGain, clipInt, qErr float32

	ctI, ctQ         float32
	ctfreqI, ctfreqQ float32

	pha    uint32
	fmPrev int32

	bfoI, bfoQ         float32
	bfofreqI, bfofreqQ float32
	plpf               float32

	mode Mode

	bqa [BiquadsAudioN]BiquadStateR
	bq  [BiquadsSSBN]BiquadState
}

func NewModState() *ModState {
	m := &ModState{}
	m.reset()
	return m
}

func (m *ModState) reset() {
	m.ctI, m.ctQ = 1.0, 0.0
	m.bfoI, m.bfoQ = 1.0, 0.0
	m.bqa = [BiquadsAudioN]BiquadStateR{}
	m.bq = [BiquadsSSBN]BiquadState{}
}

/*-------------------------------------------------------------------
 *
 * Name:	modProcessAudio
 *
 * Purpose:	Precondition transmit audio: a 600 Hz DC-blocking
 *		highpass, three cascaded shaping biquads, then a slow AGC
 *		that normalizes the block to a target amplitude, clamped
 *		to a floor so silence doesn't blow the gain up.
 *
 *---------------------------------------------------------------*/

func modProcessAudio(m *ModState, in []uint8, out []float32) {
	const agcMinimum = 10.0
	const agcLPFA = 0.2
	const agcAttack, agcDecay = 0.1, 0.002

	hpf := m.hpf
	bqa := m.bqa

	var amp float32
	for i, sample := range in {
		audio := float32(sample)
		hpf += (audio - hpf) * .145
		audio -= hpf

		for n := range bqa {
			audio = BiquadSampleR(&bqa[n], &BiquadsAudio[n], audio)
		}

		amp += absf32(audio)
		out[i] = audio
	}
	m.hpf = hpf
	m.bqa = bqa

	amp /= float32(len(in))

	agcLPF := m.agcLPF
	agcLPF += (amp - agcLPF) * agcLPFA
	m.agcLPF = agcLPF
	amp = agcLPF

	agcAmp := m.agcAmp
	if isNaN32(agcAmp) || agcAmp < agcMinimum {
		agcAmp = agcMinimum
	}

	delta := amp - agcAmp
	if delta >= 0 {
		agcAmp += delta * agcAttack
	} else {
		agcAmp += delta * agcDecay
	}
	m.agcAmp = agcAmp

	gain := float32(1.0) / agcAmp
	for i := range out {
		out[i] *= gain
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	modFM
 *
 * Purpose:	FM-modulate preconditioned audio directly into FM step
 *		codes: preemphasis, pre-clip, a limiter with its own gain
 *		servo and a DC-offset feedback integrator to avoid biasing
 *		the clipped waveform, optional CTCSS injection, and
 *		delta-sigma (error-feedback) quantization to the integer
 *		output codes.
 *
 *---------------------------------------------------------------*/

func modFM(m *ModState, in []float32, out []int32) {
	const limiterGainMin, limiterGainMax = 0.2, 1.0
	const ctDev = 650.0 / ModFMStep

	hpf2 := m.hpf2
	limiterGain := m.limiterGain
	clipInt, qErr := m.clipInt, m.qErr

	ctI, ctQ := m.ctI, m.ctQ
	ctfreqI, ctfreqQ := m.ctfreqI, m.ctfreqQ

	for i, sample := range in {
		audio := sample * 200.0

		hpf2 += (audio - hpf2) * .4
		audio -= hpf2

		audio = clip(audio, 100.0)
		audio *= limiterGain

		audio -= clipInt * .051

		if absf32(audio) >= 20.0 {
			limiterGain *= .95
		} else {
			limiterGain *= 1.002
			if limiterGain > limiterGainMax {
				limiterGain = limiterGainMax
			}
		}
		if limiterGain < limiterGainMin {
			limiterGain = limiterGainMin
		}

		audio = clip(audio, 25.0)
		clipInt += audio

		if ctfreqQ != 0.0 {
			audio += ctQ * ctDev
			newI := ctI*ctfreqI - ctQ*ctfreqQ
			ctQ = ctI*ctfreqQ + ctQ*ctfreqI
			ctI = newI
		}
		audio += 32.0

		audio += qErr
		quantized := int32(audio)
		qErr = audio - float32(quantized)
		out[i] = quantized
	}

	m.hpf2 = hpf2
	m.limiterGain = limiterGain
	m.clipInt = clipInt
	m.qErr = qErr

	m.ctI, m.ctQ = renormalize(ctI, ctQ)
}

/*-------------------------------------------------------------------
 *
 * Name:	modDSB
 *
 * Purpose:	Modulate DSB from preconditioned real audio into I/Q,
 *		the transmit mirror of demodDSBf. Also writes out the
 *		unmodulated carrier oscillator values so mod_ssb_add_carrier
 *		can mix in some carrier later.
 *
 *---------------------------------------------------------------*/

func modDSB(m *ModState, in []float32, out, carrier []IQ) {
	osc0i, osc0q := m.bfoI, m.bfoQ
	oscfi, oscfq := m.bfofreqI, m.bfofreqQ

	for i := 0; i+1 < len(in); i += 2 {
		audio := in[i]
		carrier[i] = IQ{I: osc0i, Q: osc0q}
		out[i] = IQ{I: osc0i * audio, Q: osc0q * audio}

		osc1i := osc0i*oscfi - osc0q*oscfq
		osc1q := osc0i*oscfq + osc0q*oscfi

		audio = in[i+1]
		carrier[i+1] = IQ{I: osc1i, Q: osc1q}
		out[i+1] = IQ{I: osc1i * audio, Q: osc1q * audio}

		osc0i = osc1i*oscfi - osc1q*oscfq
		osc0q = osc1i*oscfq + osc1q*oscfi
	}

	m.bfoI, m.bfoQ = renormalize(osc0i, osc0q)
}

/*-------------------------------------------------------------------
 *
 * Name:	modSSBAddCarrier
 *
 * Purpose:	Mix in a small amount of carrier when the modulated
 *		signal's power is low, so the transmitted signal doesn't
 *		go fully silent during quiet audio.
 *
 *---------------------------------------------------------------*/

func modSSBAddCarrier(m *ModState, buf, carrier []IQ) {
	const pThreshold, carrierLevel = 0.3, 0.05

	plpf := m.plpf

	var power float32
	for _, v := range buf {
		power += v.I*v.I + v.Q*v.Q
	}
	plpf += (power - plpf) * 0.5

	var c float32
	if plpf < pThreshold {
		c = (1.0 - plpf/pThreshold) * carrierLevel
	}

	for i := range buf {
		buf[i].I += carrier[i].I * c
		buf[i].Q += carrier[i].Q * c
	}

	m.plpf = plpf
}

/*-------------------------------------------------------------------
 *
 * Name:	modIQToFM
 *
 * Purpose:	Convert I/Q samples to FM step codes by tracking phase:
 *		only the phase angle of each sample matters, and the FM
 *		output is quantized so that the accumulated emitted phase
 *		follows the input's phase as closely as the step size and
 *		clamping allow.
 *
 *		The phase accumulator tracks the phase actually emitted
 *		(after clamping/quantization), not the commanded phase, so
 *		the loop self-corrects rather than accumulating drift.
 *
 *---------------------------------------------------------------*/

func modIQToFM(m *ModState, in []IQ, out []int32, fmOffset int32) {
	// Phase accumulator change per sample per FM quantization step:
	// 2**32 * (38.4 MHz / 2**18) / 24 kHz, doubled because filtering
	// the FM modulation below doubles the represented values.
	const phdev = int32(26214400 * 2)
	// Maximum frequency deviation in steps, halved for the same reason.
	const fmMax = int32(12 / 2)

	pha := m.pha
	fmPrev := m.fmPrev

	for i, v := range in {
		ph := approxAngle(v.Q, v.I)

		phdiff := int32(ph - pha)

		var fm int32
		if phdiff >= 0 {
			fm = (phdiff + (1 << 26)) >> 27
		} else {
			fm = -((-phdiff + (1 << 26)) >> 27)
		}

		if fm < -fmMax {
			fm = -fmMax
		}
		if fm > fmMax {
			fm = fmMax
		}

		fmFiltered := fm + fmPrev
		out[i] = fmFiltered + fmOffset

		pha += uint32(fm * phdev)
		fmPrev = fm
	}

	m.pha = pha
	m.fmPrev = fmPrev
}

/*-------------------------------------------------------------------
 *
 * Name:	modSSB
 *
 * Purpose:	Modulate SSB from preconditioned audio: DSB mix, IF
 *		filter, quiet-moment carrier fill-in, then convert the
 *		resulting envelope to FM step codes. USB and LSB share this
 *		path and differ only in the center-offset constant handed
 *		to modIQToFM. CW has no transmit path of its own (see
 *		FastTX below) and does not reach this function.
 *
 *---------------------------------------------------------------*/

func modSSB(m *ModState, in []float32, out []int32) {
	var buf, carrier [AudioMaxLen]IQ

	modDSB(m, in, buf[:len(in)], carrier[:len(in)])

	for i := range m.bq {
		BiquadFilter(&m.bq[i], &BiquadsSSB[i], buf[:len(in)])
	}
	modSSBAddCarrier(m, buf[:len(in)], carrier[:len(in)])

	offset := int32(32 - ModSSBCenter)
	if m.mode == ModeUSB {
		offset = int32(32 + ModSSBCenter)
	}
	modIQToFM(m, buf[:len(in)], out, offset)
}

/*-------------------------------------------------------------------
 *
 * Name:	FastTX
 *
 * Purpose:	Convert one block of microphone audio to FM step codes
 *		for the transmitter, according to the active mode. Never
 *		blocks. Only FM, USB, and LSB actually modulate; CW (and
 *		any other mode) emits a constant unmodulated-carrier code,
 *		matching the original's dsp_fast_tx dispatch.
 *
 * Inputs:	m	- transmit state, owned by the caller
 *		ps	- current parameters (mode)
 *		in	- audio input samples
 *		out	- FM step output, same length as in
 *
 *---------------------------------------------------------------*/

func FastTX(m *ModState, ps *ParamStore, in []uint8, out []int32) {
	var audio [AudioMaxLen]float32
	n := len(in)
	if n > AudioMaxLen {
		n = AudioMaxLen
	}

	modProcessAudio(m, in[:n], audio[:n])

	switch ps.Mode() {
	case ModeFM:
		modFM(m, audio[:n], out[:n])
	case ModeUSB, ModeLSB:
		modSSB(m, audio[:n], out[:n])
	default:
		for i := 0; i < n; i++ {
			out[i] = 32
		}
	}
}
