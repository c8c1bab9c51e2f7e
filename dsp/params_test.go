package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateParamsResetsOnModeChange(t *testing.T) {
	ps := NewParamStore()
	d := NewDemodState()
	m := NewModState()

	ps.SetMode(ModeFM)
	UpdateParams(ps, d, m)

	d.agcAmp = 123.0 // simulate some accumulated state
	ps.SetMode(ModeUSB)
	UpdateParams(ps, d, m)

	assert.Equal(t, float32(0), d.agcAmp, "mode change should reset demod state")
}

func TestUpdateParamsNoResetWithoutModeChange(t *testing.T) {
	ps := NewParamStore()
	d := NewDemodState()
	m := NewModState()

	ps.SetMode(ModeFM)
	UpdateParams(ps, d, m)
	d.agcAmp = 55.0
	UpdateParams(ps, d, m)

	assert.Equal(t, float32(55.0), d.agcAmp)
}

func TestUpdateParamsVolumeGainSchedule(t *testing.T) {
	ps := NewParamStore()
	d := NewDemodState()
	m := NewModState()
	ps.SetMode(ModeFM)

	ps.SetVolume(0)
	UpdateParams(ps, d, m)
	assert.Equal(t, float32(20.0), d.audiogain) // (2<<0)*10

	ps.SetVolume(1)
	UpdateParams(ps, d, m)
	assert.Equal(t, float32(30.0), d.audiogain) // (3<<0)*10
}

func TestSMeterCallback(t *testing.T) {
	ps := NewParamStore()
	var got uint32
	ps.OnSMeterUpdate(func(v uint32) { got = v })

	d := NewDemodState()
	in := make([]IQInt16, 0x4000*2)
	for i := range in {
		in[i] = IQInt16{I: 10, Q: 10}
	}
	d.Store(ps, in, nil)
	assert.Greater(t, got, uint32(0))
	assert.Equal(t, got, ps.SMeter())
}
