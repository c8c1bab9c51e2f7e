package dsp

import (
	"context"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTLen is the FFT size used for one waterfall line.
const FFTLen = 256

// WaterfallLine is one rendered row of the spectrum display: RGB
// triples for the bins between FFTBin1 and FFTBin2.
type WaterfallLine []byte

/*-------------------------------------------------------------------
 *
 * Name:	WaterfallState
 *
 * Purpose:	Consumer-side state for turning signal-ring samples into
 *		a spectrum/waterfall line: the running magnitude
 *		accumulator across averaged blocks, and the FFT plan.
 *
 *---------------------------------------------------------------*/

type WaterfallState struct {
	fft *fourier.CmplxFFT

	mag      [FFTLen]float32
	averages uint8

	// FFTBin1/FFTBin2 bound the displayed slice of the FFT output;
	// by default the whole spectrum.
	FFTBin1, FFTBin2 int
}

func NewWaterfallState() *WaterfallState {
	ws := &WaterfallState{
		fft:     fourier.NewCmplxFFT(FFTLen),
		FFTBin1: 0,
		FFTBin2: FFTLen,
	}
	return ws
}

/*-------------------------------------------------------------------
 *
 * Name:	CalculateLine
 *
 * Purpose:	Take one FFT-length window of samples ending at the
 *		given ring cursor, run the FFT, fold the bins around
 *		Nyquist so DC sits in the middle of the line, accumulate
 *		magnitude across the given number of blocks, and once
 *		enough have accumulated render a colour-mapped line.
 *
 * Inputs:	ring	- signal ring the fast RX path writes into
 *		cursor	- ring position reported by the trigger message;
 *			  CalculateLine reads the FFTLen samples before it
 *		averages - number of blocks to accumulate before emitting
 *
 * Returns:	A rendered line, or nil if more blocks need to
 *		accumulate first.
 *
 *---------------------------------------------------------------*/

func (ws *WaterfallState) CalculateLine(ring *SignalRing, cursor uint16, averages uint8) WaterfallLine {
	window := make([]complex128, FFTLen)
	sbp := int(cursor) - FFTLen
	for i := range window {
		v := ring.Get(sbp)
		window[i] = complex(float64(v.I), float64(v.Q))
		sbp++
	}

	out := make([]complex128, FFTLen)
	ws.fft.Coefficients(out, window)

	if ws.averages == 0 {
		ws.mag = [FFTLen]float32{}
	}
	for i, c := range out {
		bin := i ^ (FFTLen / 2)
		ws.mag[bin] += float32(real(c)*real(c) + imag(c)*imag(c))
	}

	ws.averages++
	if averages == 0 {
		averages = 1
	}
	if ws.averages < averages {
		return nil
	}
	ws.averages = 0

	// magAvg sums the mag[] array as accumulated over all K averaged
	// blocks, not just the block just folded in above.
	var magAvg float32
	for _, m := range ws.mag {
		magAvg += m
	}
	if magAvg == 0 {
		magAvg = 1
	}
	scale := (130.0 * float32(FFTLen)) / magAvg

	bin1, bin2 := ws.FFTBin1, ws.FFTBin2
	line := make(WaterfallLine, 3*(bin2-bin1))
	for i := bin1; i < bin2; i++ {
		v := uint32(ws.mag[i] * scale)
		o := 3 * (i - bin1)
		r, g, b := colourRamp(v)
		line[o], line[o+1], line[o+2] = r, g, b
	}
	return line
}

/*-------------------------------------------------------------------
 *
 * Name:	colourRamp
 *
 * Purpose:	Map a magnitude value to an RGB triple through a
 *		4-segment ramp: black -> blue -> yellow -> white, clamped
 *		to white past the top of the range.
 *
 *---------------------------------------------------------------*/

func colourRamp(v uint32) (r, g, b byte) {
	switch {
	case v < 0x100:
		return byte(v / 2), 0, byte(v)
	case v < 0x200:
		return byte(v / 2), byte(v - 0x100), byte(0x1FF - v)
	case v < 0x300:
		return 0xFF, 0xFF, byte(v - 0x200)
	default:
		return 0xFF, 0xFF, 0xFF
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	SlowDSPTask
 *
 * Purpose:	The slow DSP task: blocks on the waterfall trigger
 *		channel (the Go analogue of the single-slot RTOS queue)
 *		and renders a waterfall line each time enough blocks have
 *		accumulated, until ctx is cancelled.
 *
 *---------------------------------------------------------------*/

func SlowDSPTask(ctx context.Context, trigger <-chan uint16, ring *SignalRing, ws *WaterfallState, ps *ParamStore, emit func(WaterfallLine)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-trigger:
			if !ok {
				return
			}
			if line := ws.CalculateLine(ring, msg, ps.WaterfallAverages()); line != nil {
				emit(line)
			}
		}
	}
}
