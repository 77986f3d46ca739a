package pandora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IngestAndListMembership(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	hit := &CaloHit{}

	require.NoError(t, m.ingestInsert(hit))

	list, err := m.List(InputListName)
	require.NoError(t, err)
	assert.Contains(t, list, hit)

	name, err := m.ListOf(hit)
	require.NoError(t, err)
	assert.Equal(t, InputListName, name)
}

func TestManager_IngestDuplicateRejected(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	hit := &CaloHit{}
	require.NoError(t, m.ingestInsert(hit))

	err := m.ingestInsert(hit)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyPresent)
}

func TestManager_CreateTemporaryListLifecycleIsIdempotent(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	alg := NewAlgorithm("test-alg")
	require.NoError(t, m.RegisterAlgorithm(alg))

	before := m.CurrentListName()

	name, err := m.CreateTemporaryList(alg)
	require.NoError(t, err)
	assert.NotEqual(t, before, name)

	m.DropCurrentList()
	require.NoError(t, m.ResetAlgorithmInfo(alg, false))

	assert.Equal(t, before, m.CurrentListName())
	_, err = m.List(name)
	assert.ErrorIs(t, err, ErrNotFound, "temporary list must be discarded once empty and dropped")
}

func TestManager_CreateObjectGatedByCreateEnabled(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	alg := NewAlgorithm("test-alg")
	require.NoError(t, m.RegisterAlgorithm(alg))

	hit := &CaloHit{}
	err := m.createObject(hit)
	require.Error(t, err, "creation must be rejected before any temporary list exists")

	_, err = m.CreateTemporaryList(alg)
	require.NoError(t, err)
	require.NoError(t, m.createObject(hit))

	name, err := m.ListOf(hit)
	require.NoError(t, err)
	assert.Equal(t, m.CurrentListName(), name)
}

func TestManager_SaveObjectsMovesAndMarksTargetSaved(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	alg := NewAlgorithm("test-alg")
	require.NoError(t, m.RegisterAlgorithm(alg))

	name, err := m.CreateTemporaryList(alg)
	require.NoError(t, err)
	hitA := &CaloHit{}
	hitB := &CaloHit{}
	require.NoError(t, m.createObject(hitA))
	require.NoError(t, m.createObject(hitB))

	require.NoError(t, m.SaveObjects("SavedClusters", name, nil))

	saved, err := m.List("SavedClusters")
	require.NoError(t, err)
	assert.ElementsMatch(t, []*CaloHit{hitA, hitB}, saved)

	_, err = m.List(name)
	assert.ErrorIs(t, err, ErrNotFound, "source temporary must be discarded once emptied")
}

func TestManager_ResetAlgorithmInfoDestroysUnsavedTemporaries(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	alg := NewAlgorithm("test-alg")
	require.NoError(t, m.RegisterAlgorithm(alg))

	name, err := m.CreateTemporaryList(alg)
	require.NoError(t, err)
	hit := &CaloHit{}
	require.NoError(t, m.createObject(hit))

	require.NoError(t, m.ResetAlgorithmInfo(alg, true))

	_, err = m.List(name)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ListOf(hit)
	assert.ErrorIs(t, err, ErrNotFound, "objects in a destroyed temporary are no longer tracked")
}

func TestManager_EraseAllContentResetsEverything(t *testing.T) {
	m := NewManager[CaloHit]("CaloHitList")
	alg := NewAlgorithm("test-alg")
	require.NoError(t, m.RegisterAlgorithm(alg))
	hit := &CaloHit{}
	require.NoError(t, m.ingestInsert(hit))

	m.EraseAllContent()

	list, err := m.List(InputListName)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = m.RegisterAlgorithm(alg)
	assert.NoError(t, err, "algorithm registration must also have been cleared")
}
