package dsp

// Mode selects the demodulator/modulator variant the RX and TX
// pipelines run.
type Mode uint32

const (
	ModeOff Mode = iota
	ModeFM
	ModeAM
	ModeUSB
	ModeLSB
	ModeCWU
	ModeCWL
)

const (
	// AudioMaxLen is the largest audio block (in samples) FastRX/FastTX
	// will process in one call.
	AudioMaxLen = 32
	// IQMaxLen is the largest I/Q block (in samples) FastRX will
	// accept; RX decimates I/Q by 2 to produce audio.
	IQMaxLen = AudioMaxLen * 2

	// ModFMStep is the frequency step represented by one unit of FM
	// modulator output: 38.4 MHz reference divided across an 18-bit
	// fractional-N step range.
	ModFMStep = 38.4e6 / (1 << 18)

	// ModSSBCenter offsets the FM-step output of the SSB modulator so
	// USB and LSB sit symmetrically either side of the nominal FM
	// "silence" code of 32.
	ModSSBCenter = 10

	// AudioMid/AudioMin/AudioMax bound the fixed-point audio samples
	// FastRX emits.
	AudioMid = 128
	AudioMin = 0
	AudioMax = 255

	twoPi = 6.2831853
)

// RXIQSampleRate and TXSampleRate are the fixed sample rates the
// oscillator frequency calculations in UpdateParams are scaled for.
const (
	RXIQSampleRate = 48000.0
	TXSampleRate   = 24000.0
)
