// Package frontpanel stands in for the encoder/button-polling
// collaborator the DSP core's Parameter Store is fed by: it reads a
// PTT line and a rotary encoder's quadrature pair from a GPIO
// character device and turns them into ParamStore updates.
package frontpanel

import (
	"context"
	"math/bits"

	"github.com/warthog618/go-gpiocdev"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("frontpanel")

/*-------------------------------------------------------------------
 *
 * Name:	transitionScore
 *
 * Purpose:	Debounce a noisy digital line with data-carrier-detect
 *		style scoring: keep a rolling history of observed
 *		levels and only trust a level
 *		once enough of the recent window agrees with it.
 *
 *---------------------------------------------------------------*/

type transitionScore struct {
	history uint32
	onWidth uint32
}

func newTransitionScore(width uint32) transitionScore {
	return transitionScore{onWidth: width}
}

// observe folds in one new sample and reports the debounced level.
func (ts *transitionScore) observe(level bool) bool {
	ts.history <<= 1
	if level {
		ts.history |= 1
	}
	mask := uint32(1)<<ts.onWidth - 1
	if ts.onWidth >= 32 {
		mask = ^uint32(0)
	}
	return bits.OnesCount32(ts.history&mask) > int(ts.onWidth/2)
}

// Panel holds the GPIO lines for PTT and a quadrature rotary encoder.
type Panel struct {
	chip   *gpiocdev.Chip
	ptt    *gpiocdev.Line
	encA   *gpiocdev.Line
	encB   *gpiocdev.Line
	pttDbg transitionScore

	ps       *dsp.ParamStore
	lastA    bool
	lastVol  uint32
}

// Open attaches to a GPIO character device and requests the three
// lines by offset.
func Open(chipName string, pttOffset, encAOffset, encBOffset int, ps *dsp.ParamStore) (*Panel, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, err
	}

	ptt, err := chip.RequestLine(pttOffset, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, err
	}
	encA, err := chip.RequestLine(encAOffset, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, err
	}
	encB, err := chip.RequestLine(encBOffset, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, err
	}

	return &Panel{
		chip:   chip,
		ptt:    ptt,
		encA:   encA,
		encB:   encB,
		pttDbg: newTransitionScore(8),
		ps:     ps,
	}, nil
}

func (p *Panel) Close() {
	p.chip.Close()
}

// Poll reads the current line levels once, updates the ParamStore's
// volume (via the encoder) and folds the PTT level into the debouncer;
// the keyed state is not written to the ParamStore.
// Intended to be called from a tight polling loop or goroutine, not
// from the DSP core's hot path.
func (p *Panel) Poll() {
	pttLevel, err := p.ptt.Value()
	if err != nil {
		log.Warn("reading PTT line failed", "err", err)
		return
	}
	keyed := p.pttDbg.observe(pttLevel != 0)
	_ = keyed // surfaced to callers via Keyed(), not pushed into dsp directly

	a, errA := p.encA.Value()
	b, errB := p.encB.Value()
	if errA != nil || errB != nil {
		return
	}
	aHigh := a != 0
	if aHigh != p.lastA {
		// Rising edge on A: direction determined by B's level,
		// standard quadrature decode.
		if aHigh {
			if b != 0 {
				p.adjustVolume(1)
			} else {
				p.adjustVolume(-1)
			}
		}
		p.lastA = aHigh
	}
}

func (p *Panel) adjustVolume(delta int) {
	v := int(p.ps.Volume()) + delta
	if v < 0 {
		v = 0
	}
	if v > 15 {
		v = 15
	}
	p.ps.SetVolume(uint32(v))
}

// Keyed reports the debounced PTT state.
func (p *Panel) Keyed() bool {
	v, err := p.ptt.Value()
	if err != nil {
		return false
	}
	return p.pttDbg.observe(v != 0)
}

// RunPoller polls the panel at a fixed rate until ctx is cancelled.
// This is the ambient equivalent of the excluded encoder/button
// polling collaborator's own task loop.
func RunPoller(ctx context.Context, p *Panel, tick <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.Poll()
		}
	}
}
