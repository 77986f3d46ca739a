package pandora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaloHit_CellGeometryPlanarExtentDispatchesOnKind(t *testing.T) {
	t.Parallel()

	rect := NewRectangularCellGeometry(1.0, 2.0, 0.5)
	a, b := rect.PlanarExtent()
	assert.Equal(t, 1.0, a)
	assert.Equal(t, 2.0, b)

	pointing := NewPointingCellGeometry(0.1, 0.2, 0.5)
	a, b = pointing.PlanarExtent()
	assert.Equal(t, 0.1, a)
	assert.Equal(t, 0.2, b)
}

func TestSplitHit_ConservesWeight(t *testing.T) {
	t.Parallel()

	parent := NewCaloHit(Identifier(1), Address(42))
	parent.InputEnergy = 10
	parent.MIPEnergy = 4
	parent.ElectromagneticEnergy = 6
	parent.HadronicEnergy = 2

	nextID := Identifier(2)
	a, b, err := SplitHit(parent, func() Identifier { id := nextID; nextID++; return id }, 1, 3)
	require.NoError(t, err)

	assert.InDelta(t, parent.InputEnergy, a.InputEnergy+b.InputEnergy, 1e-9)
	assert.InDelta(t, parent.MIPEnergy, a.MIPEnergy+b.MIPEnergy, 1e-9)
	assert.InDelta(t, parent.ElectromagneticEnergy, a.ElectromagneticEnergy+b.ElectromagneticEnergy, 1e-9)
	assert.InDelta(t, parent.HadronicEnergy, a.HadronicEnergy+b.HadronicEnergy, 1e-9)
	assert.Equal(t, parent.Address(), a.Address(), "daughters share the parent's address")
	assert.Equal(t, parent.Address(), b.Address())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, a.available)
}

func TestSplitHit_RejectsNonPositiveFractions(t *testing.T) {
	t.Parallel()

	parent := NewCaloHit(Identifier(1), Address(42))
	_, _, err := SplitHit(parent, func() Identifier { return 2 }, 0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMergeHits_RoundTripsSplitAndRestoresProperties(t *testing.T) {
	t.Parallel()

	parent := NewCaloHit(Identifier(1), Address(42))
	parent.InputEnergy = 10
	parent.MIPEnergy = 4
	parent.ElectromagneticEnergy = 6
	parent.HadronicEnergy = 2

	nextID := Identifier(2)
	minter := func() Identifier { id := nextID; nextID++; return id }
	a, b, err := SplitHit(parent, minter, 1, 1)
	require.NoError(t, err)

	merged, err := MergeHits([]*CaloHit{a, b}, minter)
	require.NoError(t, err)

	assert.InDelta(t, parent.InputEnergy, merged.InputEnergy, 1e-9)
	assert.InDelta(t, parent.MIPEnergy, merged.MIPEnergy, 1e-9)
	assert.InDelta(t, parent.ElectromagneticEnergy, merged.ElectromagneticEnergy, 1e-9)
	assert.InDelta(t, parent.HadronicEnergy, merged.HadronicEnergy, 1e-9)
	assert.Equal(t, parent.Address(), merged.Address(), "the parent address survives a split/merge round trip")
}

func TestMergeHits_RejectsMismatchedAddresses(t *testing.T) {
	t.Parallel()

	a := NewCaloHit(Identifier(1), Address(1))
	b := NewCaloHit(Identifier(2), Address(2))

	_, err := MergeHits([]*CaloHit{a, b}, func() Identifier { return 3 })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestMergeHits_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := MergeHits(nil, func() Identifier { return 1 })
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
