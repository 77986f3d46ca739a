package pandora

// ParticleFlowObject is the reconstructed output unit of the pipeline
// (spec.md §3, GLOSSARY). Invariant: not both its cluster and track sets
// are empty; its momentum magnitude does not exceed its energy; if a
// track list is present, the PFO represents that track family's
// reconstructed species.
type ParticleFlowObject struct {
	id Identifier

	ParticleID int
	Charge     int
	Mass       float64
	Energy     float64
	Momentum   CartesianVector

	clusters map[*Cluster]struct{}
	tracks   map[*Track]struct{}
}

// NewParticleFlowObject constructs a PFO with no clusters or tracks; the
// caller must add at least one before the invariant holds.
func NewParticleFlowObject(id Identifier, particleID, charge int, mass, energy float64, momentum CartesianVector) *ParticleFlowObject {
	return &ParticleFlowObject{
		id:         id,
		ParticleID: particleID,
		Charge:     charge,
		Mass:       mass,
		Energy:     energy,
		Momentum:   momentum,
		clusters:   make(map[*Cluster]struct{}),
		tracks:     make(map[*Track]struct{}),
	}
}

// ID returns the PFO's framework identifier.
func (p *ParticleFlowObject) ID() Identifier { return p.id }

// AddCluster associates cluster with the PFO.
func (p *ParticleFlowObject) AddCluster(cluster *Cluster) { p.clusters[cluster] = struct{}{} }

// AddTrack associates track with the PFO.
func (p *ParticleFlowObject) AddTrack(track *Track) { p.tracks[track] = struct{}{} }

// Clusters returns the PFO's associated clusters.
func (p *ParticleFlowObject) Clusters() []*Cluster {
	out := make([]*Cluster, 0, len(p.clusters))
	for c := range p.clusters {
		out = append(out, c)
	}
	return out
}

// Tracks returns the PFO's associated tracks.
func (p *ParticleFlowObject) Tracks() []*Track {
	out := make([]*Track, 0, len(p.tracks))
	for t := range p.tracks {
		out = append(out, t)
	}
	return out
}

// Validate checks the PFO invariants from spec.md §3. The list managers do
// not call it: saving a PFO into a persistent list does not check them.
func (p *ParticleFlowObject) Validate() error {
	if len(p.clusters) == 0 && len(p.tracks) == 0 {
		return NewStatusError(StatusInvalidParameter, "PFO has neither clusters nor tracks")
	}
	if p.Momentum.Magnitude() > p.Energy {
		return NewStatusErrorf(StatusInvalidParameter, "PFO momentum magnitude %v exceeds energy %v", p.Momentum.Magnitude(), p.Energy)
	}
	return nil
}
