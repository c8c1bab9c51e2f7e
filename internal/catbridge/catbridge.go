// Package catbridge stands in for the front-end/tuning collaborator
// the DSP core's Parameter Store hands off to: it maps requested
// frequencies to VCO divider settings and bridges tuning/mode state to
// a Hamlib rig backend for CAT control clients.
package catbridge

import (
	"fmt"

	"github.com/xylo04/goHamlib"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("catbridge")

// Generation selects which VCO divider range to search, mirroring the
// hardware revision the firmware built two divider ranges for.
type Generation int

const (
	GenV1 Generation = iota
	GenV2
)

// vcoMid is the approximate middle of the synthesizer's VCO tuning
// range; FindDivider searches for the divider combination landing
// closest to it.
const vcoMid = 2_600_000_000

// FindDivider searches the (d1, d2, d3) divider space for the
// combination whose VCO frequency (f * d1 * d2 * d3) lands closest to
// vcoMid, and packs the result the way the synthesizer's register
// expects it: d1 and d2 collapse to 0 in the packed value when they
// equal 1 (a no-op divider), d3 never does.
//
// The closest combination is always taken, however far its VCO
// frequency lands from vcoMid, so ok is true for every f; there is no
// VCO range limit that would reject a frequency.
func FindDivider(f uint32, gen Generation) (packed uint32, ratio uint32, ok bool) {
	var d1Max, d3Max uint32 = 4, 5
	if gen == GenV2 {
		d1Max = 5
		d3Max = 6 // d3 == 6 is searched as 7 below
	}

	var best int64 = -1
	var d1m, d2m, d3m uint32

	for d1 := uint32(1); d1 <= d1Max; d1++ {
		for d2 := uint32(1); d2 <= 5; d2++ {
			for d3 := uint32(1); d3 <= d3Max; d3++ {
				if gen == GenV2 && d3 == 6 {
					d3 = 7
				}
				vco := int64(f) * int64(d1) * int64(d2) * int64(d3)
				dist := vco - vcoMid
				if dist < 0 {
					dist = -dist
				}
				if best == -1 || dist < best {
					best = dist
					d1m, d2m, d3m = d1, d2, d3
				}
			}
		}
	}

	if best == -1 {
		return 0, 0, false
	}

	ratio = d1m * d2m * d3m
	packD1, packD2 := d1m, d2m
	if packD1 == 1 {
		packD1 = 0
	}
	if packD2 == 1 {
		packD2 = 0
	}
	return (packD1 << 6) | (packD2 << 3) | d3m, ratio, true
}

// ConfigOK reports the ok result of FindDivider for a requested base
// frequency. Since FindDivider accepts every frequency, ConfigOK
// always returns true.
func ConfigOK(baseFreqHz uint32, gen Generation) bool {
	_, _, ok := FindDivider(baseFreqHz, gen)
	return ok
}

/*-------------------------------------------------------------------
 *
 * Bridge holds a Hamlib rig backend and feeds a dsp.ParamStore from
 * it: PollAndApply reads frequency and mode through Hamlib and writes
 * the mode to the ParamStore. Nothing is written back to the rig.
 *
 *---------------------------------------------------------------*/

type Bridge struct {
	rig        *goHamlib.Rig
	ps         *dsp.ParamStore
	generation Generation
	baseFreqHz uint32
}

// New opens a Hamlib rig backend (by model number, as Hamlib numbers
// them) on the given port and wires it to ps.
func New(rigModel int, port string, ps *dsp.ParamStore, gen Generation) (*Bridge, error) {
	r := goHamlib.RigInit(rigModel)
	if r == nil {
		return nil, fmt.Errorf("catbridge: unknown rig model %d", rigModel)
	}
	r.SetConf("rig_pathname", port)
	if err := r.Open(); err != nil {
		return nil, fmt.Errorf("catbridge: opening %s: %w", port, err)
	}
	return &Bridge{rig: r, ps: ps, generation: gen}, nil
}

func (b *Bridge) Close() {
	if b.rig != nil {
		b.rig.Close()
	}
}

var hamlibMode = map[string]dsp.Mode{
	"FM":  dsp.ModeFM,
	"AM":  dsp.ModeAM,
	"USB": dsp.ModeUSB,
	"LSB": dsp.ModeLSB,
	"CWU": dsp.ModeCWU,
	"CWL": dsp.ModeCWL,
}

// PollAndApply reads the rig's current frequency/mode from Hamlib and
// applies it to the ParamStore if the frequency has a valid divider
// solution, logging and refusing the change otherwise.
func (b *Bridge) PollAndApply() error {
	freq, err := b.rig.GetFreq()
	if err != nil {
		return fmt.Errorf("catbridge: GetFreq: %w", err)
	}
	modeName, _, err := b.rig.GetMode()
	if err != nil {
		return fmt.Errorf("catbridge: GetMode: %w", err)
	}

	baseFreqHz := uint32(freq)
	if !ConfigOK(baseFreqHz, b.generation) {
		log.Warn("requested frequency has no usable divider, ignoring", "freq_hz", baseFreqHz)
		return nil
	}

	mode, ok := hamlibMode[modeName]
	if !ok {
		log.Warn("unsupported rig mode from CAT client", "mode", modeName)
		return nil
	}

	b.baseFreqHz = baseFreqHz
	b.ps.SetMode(mode)
	return nil
}

// BaseFreqHz returns the last frequency accepted by PollAndApply.
func (b *Bridge) BaseFreqHz() uint32 { return b.baseFreqHz }
