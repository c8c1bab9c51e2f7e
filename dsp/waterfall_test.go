package dsp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColourRampSegments(t *testing.T) {
	r, g, b := colourRamp(0)
	assert.Equal(t, [3]byte{0, 0, 0}, [3]byte{r, g, b})

	r, g, b = colourRamp(0x3FF)
	assert.Equal(t, [3]byte{0xFF, 0xFF, 0xFF}, [3]byte{r, g, b})
}

func TestCalculateLineRequiresAverages(t *testing.T) {
	ws := NewWaterfallState()
	var ring SignalRing
	for i := range ring.buf {
		ring.buf[i] = IQ{I: 1, Q: 0}
	}

	line := ws.CalculateLine(&ring, 300, 2)
	assert.Nil(t, line, "first block of a 2-block average should not emit yet")

	line = ws.CalculateLine(&ring, 300, 2)
	require.NotNil(t, line)
	assert.Equal(t, 3*FFTLen, len(line))
}

func TestCalculateLineScaleIndependentOfAverageCount(t *testing.T) {
	// A steady, repeating input should render to (nearly) the same
	// line whether it's averaged over 1 block or several: the scale
	// normalizer must divide by the total accumulated magnitude, not
	// just the most recent block's, or more averaging would falsely
	// brighten the line.
	var ring SignalRing
	for i := range ring.buf {
		ring.buf[i] = IQ{I: 0.3, Q: -0.2}
	}

	ws1 := NewWaterfallState()
	line1 := ws1.CalculateLine(&ring, 300, 1)
	require.NotNil(t, line1)

	ws4 := NewWaterfallState()
	var line4 WaterfallLine
	for i := 0; i < 4; i++ {
		line4 = ws4.CalculateLine(&ring, 300, 4)
	}
	require.NotNil(t, line4)

	require.Equal(t, len(line1), len(line4))
	for i := range line1 {
		assert.InDelta(t, line1[i], line4[i], 2)
	}
}

func TestSlowDSPTaskEmitsOnTrigger(t *testing.T) {
	ws := NewWaterfallState()
	ps := NewParamStore()
	ps.SetWaterfallAverages(1)
	var ring SignalRing
	trigger := make(chan uint16, 1)
	emitted := make(chan WaterfallLine, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SlowDSPTask(ctx, trigger, &ring, ws, ps, func(l WaterfallLine) { emitted <- l })

	trigger <- 300
	select {
	case l := <-emitted:
		assert.Equal(t, 3*FFTLen, len(l))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for waterfall line")
	}
}
