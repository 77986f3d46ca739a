package pandora

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartesianVector_Arithmetic(t *testing.T) {
	t.Parallel()

	a := CartesianVector{X: 1, Y: 2, Z: 3}
	b := CartesianVector{X: 4, Y: 5, Z: 6}

	assert.Equal(t, CartesianVector{X: 5, Y: 7, Z: 9}, a.Add(b))
	assert.Equal(t, CartesianVector{X: -3, Y: -3, Z: -3}, a.Sub(b))
	assert.Equal(t, CartesianVector{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.Equal(t, float64(1*4+2*5+3*6), a.Dot(b))
}

func TestCartesianVector_CrossIsPerpendicularToBoth(t *testing.T) {
	t.Parallel()

	a := CartesianVector{X: 1, Y: 0, Z: 0}
	b := CartesianVector{X: 0, Y: 1, Z: 0}

	cross := a.Cross(b)
	assert.Equal(t, CartesianVector{X: 0, Y: 0, Z: 1}, cross)
	assert.InDelta(t, 0, cross.Dot(a), 1e-12)
	assert.InDelta(t, 0, cross.Dot(b), 1e-12)
}

func TestCartesianVector_UnitNormalises(t *testing.T) {
	t.Parallel()

	v := CartesianVector{X: 3, Y: 4, Z: 0}
	unit := v.Unit()
	assert.InDelta(t, 1.0, unit.Magnitude(), 1e-12)
	assert.InDelta(t, 0.6, unit.X, 1e-12)
	assert.InDelta(t, 0.8, unit.Y, 1e-12)
}

func TestCartesianVector_UnitOfZeroVectorIsUnchanged(t *testing.T) {
	t.Parallel()

	var zero CartesianVector
	assert.Equal(t, zero, zero.Unit(), "the zero vector is returned unchanged rather than dividing by zero")
}

func TestCartesianVector_MagnitudeMatchesEuclideanNorm(t *testing.T) {
	t.Parallel()

	v := CartesianVector{X: 1, Y: 2, Z: 2}
	assert.InDelta(t, math.Sqrt(1+4+4), v.Magnitude(), 1e-12)
}
