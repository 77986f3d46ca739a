package pandora

import (
	"fmt"
	"log"
)

// Algorithm is implemented by every reconstruction algorithm that
// participates in the configured pipeline (spec.md §6: "processEvent
// triggers the configured algorithm pipeline"). Grounded on the teacher's
// narrow, stage-scoped pipeline interfaces
// (internal/lidar/pipeline/tracking_pipeline.go's ForegroundStage /
// PerceptionStage / TrackingStage / ObjectStage): each pipeline stage is
// a small interface implemented by a concrete type, not a monolithic
// callback.
type Algorithm interface {
	Name() string
	Run(p *Pandora) error
}

// DefaultPseudolayerWidthX0 is the radiation-length thickness of one
// pseudolayer bucket, used by FinalizeIngest to bin hits by depth when no
// override is set on Pandora.PseudolayerWidthX0.
const DefaultPseudolayerWidthX0 = 1.0

// Pandora is the per-event reconstruction context: the four kind
// managers, the MC and track arenas, the reclustering stack, and the
// configured algorithm pipeline (spec.md §6). One instance handles one
// run; Reset clears per-event state while Context (geometry and cuts)
// survives across events.
type Pandora struct {
	Hits      *CaloHitManager
	Tracks    *TrackManager
	Clusters  *ClusterManager
	PFOs      *PFOManager
	Recluster *ReclusterManager
	Context   *ReconstructionContext

	// ComputeHitProperties, when set, is invoked once per event during
	// FinalizeIngest, after pseudolayer assignment and before any
	// algorithm runs, to populate each hit's density weight, surrounding
	// energy, isolation and possible-MIP flags. Left as an injection
	// point — typically wired to hitprops.Compute — rather than a direct
	// import, so the object model does not depend on its own numerical
	// kernels.
	ComputeHitProperties func(hits []*CaloHit)

	// PseudolayerWidthX0 overrides DefaultPseudolayerWidthX0 when >0.
	PseudolayerWidthX0 float64

	mc    *mcArena
	track *trackArena

	pendingHits []*CaloHit

	logger *log.Logger

	algorithms []Algorithm
	handles    map[string]*AlgorithmHandle
}

// NewPandora constructs an empty Pandora bound to ctx. logger defaults to
// log.Default() if nil.
func NewPandora(ctx *ReconstructionContext, logger *log.Logger) *Pandora {
	if logger == nil {
		logger = log.Default()
	}
	return &Pandora{
		Hits:      NewCaloHitManager(),
		Tracks:    NewTrackManager(),
		Clusters:  NewClusterManager(),
		PFOs:      NewPFOManager(),
		Recluster: NewReclusterManager(logger),
		Context:   ctx,
		mc:        newMCArena(),
		track:     newTrackArena(),
		logger:    logger,
		handles:   make(map[string]*AlgorithmHandle),
	}
}

// RegisterAlgorithm adds alg to the configured pipeline, in the order
// ProcessEvent will run it, and registers its handle with every manager.
func (p *Pandora) RegisterAlgorithm(alg Algorithm) (*AlgorithmHandle, error) {
	if _, exists := p.handles[alg.Name()]; exists {
		return nil, NewStatusErrorf(StatusAlreadyPresent, "algorithm %q already registered", alg.Name())
	}
	handle := p.registerHandle(alg.Name())
	p.algorithms = append(p.algorithms, alg)
	return handle, nil
}

func (p *Pandora) registerHandle(name string) *AlgorithmHandle {
	handle := NewAlgorithm(name)
	p.Hits.RegisterAlgorithm(handle)
	p.Tracks.RegisterAlgorithm(handle)
	p.Clusters.RegisterAlgorithm(handle)
	p.PFOs.RegisterAlgorithm(handle)
	p.handles[name] = handle
	return handle
}

// HandleFor returns the registered handle for the named algorithm, or nil
// if it is not registered. An algorithm's Run implementation uses this to
// retrieve the handle it must pass to CreateTemporaryList and friends.
func (p *Pandora) HandleFor(name string) *AlgorithmHandle { return p.handles[name] }

// CreateMCParticle returns the MC particle for uid, creating an empty one
// if it does not already exist ("create-MC-particle*", spec.md §6).
func (p *Pandora) CreateMCParticle(uid Identifier) *MCParticle {
	return p.mc.GetOrCreate(uid)
}

// SetMCParentDaughter records daughter as a child of parent
// ("set-MC-parent-daughter*", spec.md §6).
func (p *Pandora) SetMCParentDaughter(parent, daughter *MCParticle) error {
	return parent.AddDaughter(daughter)
}

// CreateTrack allocates a track for the given externally-supplied
// identifier and address ("create-track*", spec.md §6).
func (p *Pandora) CreateTrack(id Identifier, address Address) *Track {
	return p.track.NewTrack(id, address)
}

// CreateCaloHit allocates a hit and stages it for pseudolayer assignment
// and Input-list composition at FinalizeIngest ("create-calo-hit*",
// spec.md §6).
func (p *Pandora) CreateCaloHit(id Identifier, address Address) *CaloHit {
	hit := NewCaloHit(id, address)
	p.pendingHits = append(p.pendingHits, hit)
	return hit
}

// SetCaloHitToMCParticleRelationship attaches mc to hit
// ("set-caloHit-to-mc-particle-relationship*", spec.md §6).
func (p *Pandora) SetCaloHitToMCParticleRelationship(hit *CaloHit, mc *MCParticle) {
	hit.SetMCParticle(mc)
}

// SetTrackToMCParticleRelationship attaches mc to track
// ("set-track-to-mc-particle-relationship*", spec.md §6).
func (p *Pandora) SetTrackToMCParticleRelationship(track *Track, mc *MCParticle) error {
	return track.SetMCParticle(mc)
}

// FinalizeIngest runs the substrate's post-ingest steps: select PFO
// targets, assign pseudolayers, compute hit properties, and compose the
// two Input lists (spec.md §6). Call once per event, after every
// create-*/set-*-relationship call and before ProcessEvent.
func (p *Pandora) FinalizeIngest() error {
	SelectPFOTargets(p.mc.particles)

	width := p.PseudolayerWidthX0
	if width <= 0 {
		width = DefaultPseudolayerWidthX0
	}
	for _, hit := range p.pendingHits {
		hit.Pseudolayer = int(hit.RadiationFromIP / width)
	}

	if p.ComputeHitProperties != nil {
		p.ComputeHitProperties(p.pendingHits)
	}

	for _, hit := range p.pendingHits {
		if err := p.Hits.Ingest(hit); err != nil {
			return fmt.Errorf("compose calo hit input list: %w", err)
		}
	}
	for _, track := range p.track.tracks {
		if err := p.Tracks.Ingest(track); err != nil {
			return fmt.Errorf("compose track input list: %w", err)
		}
	}
	p.pendingHits = nil
	return nil
}

// ProcessEvent runs the configured algorithm pipeline in registration
// order (spec.md §6). A failing algorithm aborts the event: the failure
// is logged naming the algorithm and status code, then a full Reset runs
// so the next event starts clean (spec.md §7 "User-visible behaviour").
// An algorithm that succeeds has its own temporaries cleared before the
// next algorithm runs, but stays registered for future events.
func (p *Pandora) ProcessEvent() error {
	for _, alg := range p.algorithms {
		handle := p.handles[alg.Name()]
		if err := alg.Run(p); err != nil {
			p.logger.Printf("algorithm %q failed: %v", alg.Name(), err)
			p.Reset()
			return fmt.Errorf("algorithm %q: %w", alg.Name(), err)
		}
		if err := p.resetAlgorithmTemporaries(handle); err != nil {
			p.logger.Printf("algorithm %q cleanup failed: %v", alg.Name(), err)
			p.Reset()
			return fmt.Errorf("algorithm %q cleanup: %w", alg.Name(), err)
		}
	}
	return nil
}

func (p *Pandora) resetAlgorithmTemporaries(handle *AlgorithmHandle) error {
	resets := []func(*AlgorithmHandle, bool) error{
		p.Hits.ResetAlgorithmInfo,
		p.Tracks.ResetAlgorithmInfo,
		p.Clusters.ResetAlgorithmInfo,
		p.PFOs.ResetAlgorithmInfo,
	}
	for _, reset := range resets {
		if err := reset(handle, false); err != nil {
			return err
		}
	}
	return nil
}

// Reset implements the substrate's reset operation: eraseAllContent for
// every kind plus MC and track arena reset (spec.md §6: "reset runs
// eraseAllContent for every kind plus MC reset"). Reclustering contexts
// left open by an algorithm are torn down. Geometry and cuts in Context
// survive; every registered algorithm is re-registered against the
// freshly erased managers so the pipeline is ready for the next event.
func (p *Pandora) Reset() {
	if p.Recluster.Depth() > 0 {
		p.Recluster.TeardownAll()
	}
	p.Hits.EraseAllContent()
	p.Tracks.EraseAllContent()
	p.Clusters.EraseAllContent()
	p.PFOs.EraseAllContent()
	p.mc.reset()
	p.track.reset()
	p.pendingHits = nil

	p.handles = make(map[string]*AlgorithmHandle)
	for _, alg := range p.algorithms {
		p.registerHandle(alg.Name())
	}
}
