package pandora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPandora() *Pandora {
	ctx := NewReconstructionContext(DefaultGeometryParams(), DefaultCutParams())
	return NewPandora(ctx, nil)
}

// singleTrackToPFO turns every ingested track into a one-track PFO,
// exercising the minimal "1 track -> 1 PFO" end-to-end scenario.
type singleTrackToPFO struct{}

func (singleTrackToPFO) Name() string { return "single-track-to-pfo" }

func (a singleTrackToPFO) Run(p *Pandora) error {
	handle := p.HandleFor(a.Name())
	if _, err := p.PFOs.CreateTemporaryList(handle); err != nil {
		return err
	}
	tracks, err := p.Tracks.List(InputListName)
	if err != nil {
		return err
	}
	for _, track := range tracks {
		pfo := NewParticleFlowObject(Identifier(1000+int(track.ID())), track.ParticleID, track.ChargeSign, track.Mass, track.Momentum.Magnitude(), track.Momentum)
		pfo.AddTrack(track)
		if err := p.PFOs.Create(pfo); err != nil {
			return err
		}
	}
	current := p.PFOs.CurrentListName()
	return p.PFOs.SaveObjects("ReconstructedPFOs", current, nil)
}

func TestProcessEvent_SingleTrackProducesSinglePFO(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	_, err := p.RegisterAlgorithm(singleTrackToPFO{})
	require.NoError(t, err)

	track := p.CreateTrack(Identifier(1), Address(1))
	track.ParticleID = 13
	track.ChargeSign = -1
	track.Mass = 0.105
	track.Momentum = CartesianVector{X: 0, Y: 0, Z: 5}

	require.NoError(t, p.FinalizeIngest())
	require.NoError(t, p.ProcessEvent())

	pfos, err := p.PFOs.List("ReconstructedPFOs")
	require.NoError(t, err)
	require.Len(t, pfos, 1)
	assert.Equal(t, 13, pfos[0].ParticleID)
	assert.Len(t, pfos[0].Tracks(), 1)
}

// singlePhotonClusterToPFO turns every ingested calo hit into a single
// cluster, then a PFO tagged as a photon (particleId=22).
type singlePhotonClusterToPFO struct{}

func (singlePhotonClusterToPFO) Name() string { return "single-photon-cluster-to-pfo" }

func (a singlePhotonClusterToPFO) Run(p *Pandora) error {
	handle := p.HandleFor(a.Name())
	if _, err := p.Clusters.CreateTemporaryList(handle); err != nil {
		return err
	}
	hits, err := p.Hits.List(InputListName)
	if err != nil {
		return err
	}
	cluster := NewCluster(Identifier(2000))
	for _, h := range hits {
		cluster.AddHit(h)
	}
	if err := p.Clusters.Create(cluster); err != nil {
		return err
	}
	if err := p.Clusters.SaveObjects("ReconstructedClusters", p.Clusters.CurrentListName(), nil); err != nil {
		return err
	}

	pfoHandle := p.HandleFor(a.Name())
	if _, err := p.PFOs.CreateTemporaryList(pfoHandle); err != nil {
		return err
	}
	pfo := NewParticleFlowObject(Identifier(3000), 22, 0, 0, cluster.ElectromagneticEnergy(), CartesianVector{})
	pfo.AddCluster(cluster)
	if err := p.PFOs.Create(pfo); err != nil {
		return err
	}
	return p.PFOs.SaveObjects("ReconstructedPFOs", p.PFOs.CurrentListName(), nil)
}

func TestProcessEvent_SinglePhotonClusterProducesPhotonPFO(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	_, err := p.RegisterAlgorithm(singlePhotonClusterToPFO{})
	require.NoError(t, err)

	hit := p.CreateCaloHit(Identifier(1), Address(1))
	hit.ElectromagneticEnergy = 2.5
	hit.Geometry = NewRectangularCellGeometry(1, 1, 0.5)

	require.NoError(t, p.FinalizeIngest())
	require.NoError(t, p.ProcessEvent())

	pfos, err := p.PFOs.List("ReconstructedPFOs")
	require.NoError(t, err)
	require.Len(t, pfos, 1)
	assert.Equal(t, 22, pfos[0].ParticleID)
	assert.InDelta(t, 2.5, pfos[0].Energy, 1e-9)
}

func TestFinalizeIngest_AssignsPseudolayersAndSelectsPFOTargets(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	p.PseudolayerWidthX0 = 2.0

	root := p.CreateMCParticle(Identifier(1))
	child := p.CreateMCParticle(Identifier(2))
	require.NoError(t, p.SetMCParentDaughter(root, child))

	hit := p.CreateCaloHit(Identifier(10), Address(1))
	hit.RadiationFromIP = 6.0
	p.SetCaloHitToMCParticleRelationship(hit, child)

	require.NoError(t, p.FinalizeIngest())

	assert.Equal(t, 3, hit.Pseudolayer, "radiation depth 6.0 / width 2.0 buckets into pseudolayer 3")
	assert.Same(t, root, child.PFOTarget(), "the child's PFO target is the root of its family tree")

	hits, err := p.Hits.List(InputListName)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFinalizeIngest_InvokesComputeHitPropertiesBeforeIngest(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	var seen []*CaloHit
	p.ComputeHitProperties = func(hits []*CaloHit) { seen = hits }

	hit := p.CreateCaloHit(Identifier(1), Address(1))
	require.NoError(t, p.FinalizeIngest())

	require.Len(t, seen, 1)
	assert.Same(t, hit, seen[0])
}

func TestProcessEvent_FailingAlgorithmTriggersFullReset(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	_, err := p.RegisterAlgorithm(failingAlgorithm{})
	require.NoError(t, err)

	p.CreateCaloHit(Identifier(1), Address(1))
	require.NoError(t, p.FinalizeIngest())

	err = p.ProcessEvent()
	require.Error(t, err)

	hits, err := p.Hits.List(InputListName)
	require.NoError(t, err)
	assert.Empty(t, hits, "a failing algorithm triggers a full reset, clearing the Input list")

	// The algorithm must still be registered for the next event.
	_, err = p.RegisterAlgorithm(failingAlgorithm{})
	assert.ErrorIs(t, err, ErrAlreadyPresent)
}

type failingAlgorithm struct{}

func (failingAlgorithm) Name() string        { return "failing-algorithm" }
func (failingAlgorithm) Run(p *Pandora) error { return NewStatusError(StatusFailure, "boom") }

func TestProcessEvent_AlgorithmStaysRegisteredAcrossEvents(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	alg := singleTrackToPFO{}
	_, err := p.RegisterAlgorithm(alg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		track := p.CreateTrack(Identifier(1), Address(1))
		track.Momentum = CartesianVector{X: 0, Y: 0, Z: 1}
		require.NoError(t, p.FinalizeIngest())
		require.NoError(t, p.ProcessEvent())

		pfos, err := p.PFOs.List("ReconstructedPFOs")
		require.NoError(t, err)
		assert.Len(t, pfos, 1, "iteration %d", i)

		p.Reset()
	}
}

func TestReset_TeardownsOpenReclusteringContexts(t *testing.T) {
	t.Parallel()

	p := newTestPandora()
	alg := NewAlgorithm("leaves-context-open")
	_, err := p.Recluster.InitializeReclustering(alg, nil, "original")
	require.NoError(t, err)
	require.Equal(t, 1, p.Recluster.Depth())

	p.Reset()
	assert.Equal(t, 0, p.Recluster.Depth())
}
