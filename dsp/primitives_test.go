package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClip(t *testing.T) {
	assert.Equal(t, float32(5), clip(10, 5))
	assert.Equal(t, float32(-5), clip(-10, 5))
	assert.Equal(t, float32(3), clip(3, 5))
}

func TestBiquadSampleRPassesDC(t *testing.T) {
	// An allpass-like unity-gain section should settle to the input
	// value after enough samples, for a constant input.
	c := BiquadsAudio[1]
	var s BiquadStateR
	var out float32
	for i := 0; i < 5000; i++ {
		out = BiquadSampleR(&s, &c, 1.0)
	}
	assert.InDelta(t, 1.0, out, 0.05)
}

func TestRenormalizeKeepsUnitMagnitude(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		i := float32(rapid.Float64Range(-1.2, 1.2).Draw(rt, "i"))
		q := float32(rapid.Float64Range(-1.2, 1.2).Draw(rt, "q"))
		if i == 0 && q == 0 {
			return
		}
		ni, nq := renormalize(i, q)
		mag := float64(ni*ni + nq*nq)
		// One Newton step shouldn't overshoot wildly for inputs that
		// started reasonably close to the unit circle.
		assert.InDelta(rt, 1.0, mag, 2.0)
	})
}

func TestAMMagnitudeSymmetric(t *testing.T) {
	assert.Equal(t, amMagnitude(3, 4), amMagnitude(4, 3))
	assert.Equal(t, amMagnitude(0, 0), float32(0))
}

func TestApproxAngleQuadrants(t *testing.T) {
	// On-axis points should land near the 4 cardinal phase positions.
	zero := approxAngle(0, 1)
	quarter := approxAngle(1, 0)
	assert.InDelta(t, 0, int64(zero), 1<<20)
	assert.InDelta(t, int64(1<<30), int64(quarter), 1<<20)
}

func TestApproxAngleAtOctantBoundary(t *testing.T) {
	// i == q (45 degrees) is where the ai>=aq and ai<aq branches meet;
	// both must agree on quarterTurn/2.
	a := approxAngle(1, 1)
	assert.InDelta(t, int64(1<<29), int64(a), 1<<20)
}

func TestApproxAngleContinuousAcrossOctantBoundary(t *testing.T) {
	var prev uint32
	first := true
	for deg := 40.0; deg <= 50.0; deg += 0.25 {
		rad := deg * math.Pi / 180
		i := float32(math.Cos(rad))
		q := float32(math.Sin(rad))
		a := approxAngle(q, i)
		if !first {
			diff := int32(a - prev)
			assert.GreaterOrEqual(t, diff, int32(0), "angle must not go backwards crossing the octant boundary")
			assert.Less(t, diff, int32(1<<24), "angle must not jump crossing the octant boundary")
		}
		prev, first = a, false
	}
}

func TestApproxAngleMonotonicAroundCircle(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		deg1 := rapid.Float64Range(-179, 178).Draw(rt, "deg1")
		deg2 := deg1 + rapid.Float64Range(0.01, 0.9).Draw(rt, "delta")
		rad1, rad2 := deg1*math.Pi/180, deg2*math.Pi/180
		a1 := approxAngle(float32(math.Sin(rad1)), float32(math.Cos(rad1)))
		a2 := approxAngle(float32(math.Sin(rad2)), float32(math.Cos(rad2)))
		assert.GreaterOrEqual(rt, int32(a2-a1), int32(0))
	})
}

func TestIsNaN32(t *testing.T) {
	assert.True(t, isNaN32(float32(0)/float32(0)))
	assert.False(t, isNaN32(1.0))
}
