package dsp

// BiquadsSSBN is the number of cascaded biquad sections used for both
// the SSB/CW receive IF filter and the SSB transmit IF filter.
const BiquadsSSBN = 3

// BiquadsAudioN is the number of cascaded biquad sections used to
// precondition transmit audio.
const BiquadsAudioN = 3

/* Coefficients generated with:
from scipy import signal
def p(s): print(',\n'.join("\t{A1: %Ef, A2: %Ef, B0: %Ef, B1: %Ef, B2: %Ef}" % (c[4], c[5], c[0], c[1], c[2]) for c in s))

# SSB
p(signal.cheby1(6, 1, 1200, output='sos', fs=24000))
# CW
p(signal.bessel(6, 200, output='sos', fs=24000))
*/

// BiquadsSSB is the receive/transmit IF filter for SSB: a 1200 Hz
// Chebyshev type I lowpass, 6th order as three cascaded biquads.
var BiquadsSSB = [BiquadsSSBN]BiquadCoeff{
	{A1: -1.851822e+00, A2: 8.634449e-01, B0: 8.073224e-07, B1: 1.614645e-06, B2: 8.073224e-07},
	{A1: -1.846798e+00, A2: 8.992076e-01, B0: 1.000000e+00, B1: 2.000000e+00, B2: 1.000000e+00},
	{A1: -1.867114e+00, A2: 9.622861e-01, B0: 1.000000e+00, B1: 2.000000e+00, B2: 1.000000e+00},
}

// BiquadsCW is the receive IF filter for CW: a 200 Hz Bessel lowpass,
// 6th order as three cascaded biquads, narrower than BiquadsSSB so CW
// reception rejects more adjacent-channel noise.
var BiquadsCW = [BiquadsSSBN]BiquadCoeff{
	{A1: -1.906874e+00, A2: 9.091286e-01, B0: 2.867042e-10, B1: 5.734084e-10, B2: 2.867042e-10},
	{A1: -1.917145e+00, A2: 9.196586e-01, B0: 1.000000e+00, B1: 2.000000e+00, B2: 1.000000e+00},
	{A1: -1.941944e+00, A2: 9.451818e-01, B0: 1.000000e+00, B1: 2.000000e+00, B2: 1.000000e+00},
}

// BiquadsAudio preconditions transmit audio at a 24000 Hz sample rate:
// a 2000 Hz Q=2 lowpass stage, followed by two 500 Hz Q=2 allpass
// stages. The allpass stages trade a flat magnitude response for a
// phase shift that tends to reduce crest factor on voice audio ahead
// of the FM/SSB modulator's limiter.
var BiquadsAudio = [BiquadsAudioN]BiquadCoeff{
	{A1: -1.53960072, A2: 0.77777778, B0: 0.05954426, B1: 0.11908853, B2: 0.05954426},
	{A1: -1.9202296564369383, A2: 0.9367992424471727, B0: 0.9367992424471727, B1: -1.9202296564369383, B2: 1.0},
	{A1: -1.9202296564369383, A2: 0.9367992424471727, B0: 0.9367992424471727, B1: -1.9202296564369383, B2: 1.0},
}
