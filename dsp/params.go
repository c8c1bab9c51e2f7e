package dsp

import (
	"math"
	"sync/atomic"
)

/*-------------------------------------------------------------------
 *
 * Name:	ParamStore
 *
 * Purpose:	Holds the user-facing radio parameters (mode, tuning
 *		offset, squelch, volume, CTCSS tone, waterfall averaging
 *		factor) that the control task writes and the fast DSP
 *		path reads every block.
 *
 *		Every field is a single word-sized atomic so the hot
 *		path never takes a lock: readers get the most recently
 *		published value, writers publish a field at a time, and
 *		torn reads across multiple fields are tolerated the same
 *		way the original's plain global struct tolerated them on
 *		a single-core microcontroller.
 *
 *---------------------------------------------------------------*/

type ParamStore struct {
	mode             atomic.Uint32
	offsetFreqHz     atomic.Int32 // Hz, tuning offset from DDC center
	ctcssHz          atomic.Uint32
	squelch          atomic.Uint32 // bit-cast float32
	volume           atomic.Uint32
	waterfallAverage atomic.Uint32

	smeter       atomic.Uint32
	onSMeter     atomic.Pointer[func(uint32)]
}

func NewParamStore() *ParamStore {
	ps := &ParamStore{}
	ps.waterfallAverage.Store(8)
	return ps
}

func (ps *ParamStore) Mode() Mode          { return Mode(ps.mode.Load()) }
func (ps *ParamStore) SetMode(m Mode)      { ps.mode.Store(uint32(m)) }
func (ps *ParamStore) OffsetFreq() int32   { return ps.offsetFreqHz.Load() }
func (ps *ParamStore) SetOffsetFreq(hz int32) { ps.offsetFreqHz.Store(hz) }
func (ps *ParamStore) CTCSS() float32      { return float32(ps.ctcssHz.Load()) / 100 }
func (ps *ParamStore) SetCTCSS(hz float32) { ps.ctcssHz.Store(uint32(hz * 100)) }
func (ps *ParamStore) Volume() uint32      { return ps.volume.Load() }
func (ps *ParamStore) SetVolume(v uint32)  { ps.volume.Store(v) }
func (ps *ParamStore) Squelch() float32 {
	return math.Float32frombits(ps.squelch.Load())
}
func (ps *ParamStore) SetSquelch(v float32) {
	ps.squelch.Store(math.Float32bits(v))
}
func (ps *ParamStore) WaterfallAverages() uint8 {
	return uint8(ps.waterfallAverage.Load())
}
func (ps *ParamStore) SetWaterfallAverages(n uint8) {
	ps.waterfallAverage.Store(uint32(n))
}

// SMeter returns the most recently published signal-power average
// (see DemodState.Store), in the original's raw accumulator units.
func (ps *ParamStore) SMeter() uint32 { return ps.smeter.Load() }

func (ps *ParamStore) publishSMeter(v uint32) {
	ps.smeter.Store(v)
	if cb := ps.onSMeter.Load(); cb != nil {
		(*cb)(v)
	}
}

// OnSMeterUpdate installs a callback invoked every time Store()
// publishes a new S-meter reading (roughly every 16384 I/Q samples).
// Passing nil clears it.
func (ps *ParamStore) OnSMeterUpdate(f func(uint32)) {
	if f == nil {
		ps.onSMeter.Store(nil)
		return
	}
	ps.onSMeter.Store(&f)
}

/*-------------------------------------------------------------------
 *
 * Name:	UpdateParams
 *
 * Purpose:	Recompute the oscillator increments and gain schedules
 *		that the fast RX/TX paths read, from the current
 *		parameter values. Called by the control task whenever a
 *		user-facing parameter changes; never called from the fast
 *		path itself.
 *
 *		A mode change resets both demod and mod state, the same
 *		edge-triggered reset the original performs by comparing
 *		against a stored previous mode.
 *
 *---------------------------------------------------------------*/

func UpdateParams(ps *ParamStore, demod *DemodState, mod *ModState) {
	mode := ps.Mode()

	var bfo, ddcOffset, bfoTx float32
	switch mode {
	case ModeUSB:
		bfo = 1400.0
		ddcOffset = bfo
		bfoTx = -146.48438 * ModSSBCenter
	case ModeLSB:
		bfo = -1400.0
		ddcOffset = bfo
		bfoTx = 146.48438 * ModSSBCenter
	case ModeCWU:
		bfo = 698.46
		ddcOffset = 0
	case ModeCWL:
		bfo = -698.46
		ddcOffset = 0
	}

	f := (twoPi * 2.0 / RXIQSampleRate) * bfo
	demod.bfofreqI, demod.bfofreqQ = cos32(f), sin32(f)

	f = (-twoPi / RXIQSampleRate) * (float32(ps.OffsetFreq()) + ddcOffset)
	demod.ddcfreqI, demod.ddcfreqQ = cos32(f), sin32(f)

	f = (twoPi / TXSampleRate) * bfoTx
	mod.bfofreqI, mod.bfofreqQ = cos32(f), sin32(f)

	ctcss := ps.CTCSS()
	if mode == ModeFM && ctcss != 0 {
		f = (twoPi / TXSampleRate) * ctcss
		mod.ctfreqI, mod.ctfreqQ = cos32(f), sin32(f)
	} else {
		mod.ctfreqI, mod.ctfreqQ = 1.0, 0.0
	}

	vol := ps.Volume()
	var gain float32
	if vol&1 != 0 {
		gain = float32(uint32(3) << (vol / 2))
	} else {
		gain = float32(uint32(2) << (vol / 2))
	}
	demod.audiogain = gain * 10.0

	demod.squelch = ps.Squelch()

	demod.mode = mode
	mod.mode = mode

	if mode != demod.prevMode {
		demod.reset()
		mod.reset()
		demod.prevMode = mode
	}
}

func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }
func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }
