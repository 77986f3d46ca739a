package pandora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHit() *CaloHit {
	return NewCaloHit(Identifier(0), Address(0))
}

func TestReclusterManager_InitializeAndEndNoOpOnAvailability(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	alg := NewAlgorithm("recluster-alg")

	hitA := newTestHit()
	hitB := newTestHit()
	cluster := NewCluster(Identifier(100))
	cluster.AddHit(hitA)
	cluster.AddHit(hitB)
	// Hits held by a cluster are unavailable.
	hitA.available = false
	hitB.available = false

	_, err := rm.InitializeReclustering(alg, []*Cluster{cluster}, "original")
	require.NoError(t, err)

	availA, err := rm.IsAvailable(hitA)
	require.NoError(t, err)
	assert.False(t, availA, "hits covered by existing clusters start unavailable in the new frame")

	require.NoError(t, rm.EndReclustering(alg, "original"))

	assert.Equal(t, 0, rm.Depth())
	assert.False(t, hitA.available, "selecting the original candidate must leave availability exactly as it was")
	assert.False(t, hitB.available)
}

func TestReclusterManager_PrepareForClusteringOpensFreshFrame(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	alg := NewAlgorithm("recluster-alg")

	hit := newTestHit()
	cluster := NewCluster(Identifier(100))
	cluster.AddHit(hit)

	_, err := rm.InitializeReclustering(alg, []*Cluster{cluster}, "original")
	require.NoError(t, err)

	require.NoError(t, rm.PrepareForClustering(alg, "candidate-1"))

	avail, err := rm.IsAvailable(hit)
	require.NoError(t, err)
	assert.True(t, avail, "a fresh candidate frame marks covered hits available for reclustering")
}

func TestReclusterManager_PrepareForClusteringRejectsNameCollisions(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	alg := NewAlgorithm("recluster-alg")
	_, err := rm.InitializeReclustering(alg, nil, "original")
	require.NoError(t, err)

	err = rm.PrepareForClustering(alg, "original")
	assert.ErrorIs(t, err, ErrAlreadyPresent)

	require.NoError(t, rm.PrepareForClustering(alg, "candidate-1"))
	err = rm.PrepareForClustering(alg, "candidate-1")
	assert.ErrorIs(t, err, ErrAlreadyPresent)
}

func TestReclusterManager_FragmentConservesWeightAndReplays(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	alg := NewAlgorithm("recluster-alg")

	parent := newTestHit()
	parent.InputEnergy = 10
	cluster := NewCluster(Identifier(100))
	cluster.AddHit(parent)

	_, err := rm.InitializeReclustering(alg, []*Cluster{cluster}, "original")
	require.NoError(t, err)
	require.NoError(t, rm.PrepareForClustering(alg, "candidate-1"))

	nextID := 1
	childA, childB, err := SplitHit(parent, func() Identifier { nextID++; return Identifier(nextID) }, 0.5, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, parent.InputEnergy, childA.InputEnergy+childB.InputEnergy, 1e-9, "total weight conservation on fragment replacement")

	require.NoError(t, rm.Fragment([]*CaloHit{parent}, []*CaloHit{childA, childB}))

	_, err = rm.IsAvailable(parent)
	assert.ErrorIs(t, err, ErrNotFound, "the replaced hit no longer resolves in the current frame")

	availChild, err := rm.IsAvailable(childA)
	require.NoError(t, err)
	assert.True(t, availChild)

	require.NoError(t, rm.EndReclustering(alg, "candidate-1"))

	assert.True(t, childA.available)
	assert.True(t, childB.available)
	assert.True(t, parent.available, "a hit replaced before EndReclustering is absent from the final frame, so its own availability field is left untouched")
}

func TestReclusterManager_EndReclusteringRejectsWrongAlgorithm(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	alg := NewAlgorithm("recluster-alg")
	other := NewAlgorithm("other-alg")
	_, err := rm.InitializeReclustering(alg, nil, "original")
	require.NoError(t, err)

	err = rm.EndReclustering(other, "original")
	assert.ErrorIs(t, err, ErrFailure)
}

func TestReclusterManager_NestedContextsPromoteIntoParentFrame(t *testing.T) {
	t.Parallel()

	rm := NewReclusterManager(nil)
	outerAlg := NewAlgorithm("outer")
	innerAlg := NewAlgorithm("inner")

	hit := newTestHit()
	outerCluster := NewCluster(Identifier(100))
	outerCluster.AddHit(hit)

	_, err := rm.InitializeReclustering(outerAlg, []*Cluster{outerCluster}, "outer-original")
	require.NoError(t, err)
	require.NoError(t, rm.PrepareForClustering(outerAlg, "outer-candidate"))

	_, err = rm.InitializeReclustering(innerAlg, nil, "inner-original")
	require.NoError(t, err)
	require.Equal(t, 2, rm.Depth())

	require.NoError(t, rm.EndReclustering(innerAlg, "inner-original"))
	assert.Equal(t, 1, rm.Depth())

	require.NoError(t, rm.EndReclustering(outerAlg, "outer-candidate"))
	assert.Equal(t, 0, rm.Depth())
}

func TestOrderedCaloHitList_BucketsStayNonEmpty(t *testing.T) {
	t.Parallel()

	list := NewOrderedCaloHitList()
	hit := newTestHit()
	hit.Pseudolayer = 3
	list.Add(hit)

	assert.Equal(t, []int{3}, list.Pseudolayers())

	list.Remove(hit)
	assert.Empty(t, list.Pseudolayers(), "a pseudolayer bucket must be pruned once its last hit leaves")
	assert.Equal(t, 0, list.Len())
}

func TestOrderedCaloHitList_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	list := NewOrderedCaloHitList()
	hit := newTestHit()
	hit.Pseudolayer = 1

	list.Add(hit)
	list.Add(hit)

	assert.Equal(t, 1, list.Len())
	assert.Len(t, list.Layer(1), 1)
}
