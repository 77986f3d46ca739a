package pandora

// MCParticle is simulation-truth information for one generated particle
// (spec.md §3). Particles may be created empty (uid known, properties not
// yet supplied) and later filled when properties arrive; creation and
// fill are idempotent by uid, mirroring MCManager.CreateMCParticle's
// overloads in the original source.
type MCParticle struct {
	UID Identifier

	filled bool

	Energy     float64
	Momentum   CartesianVector
	Vertex     CartesianVector
	Endpoint   CartesianVector
	InnerRadius float64
	OuterRadius float64
	ParticleID int

	pfoTarget *MCParticle

	arena *mcArena
	self  mcHandle
}

type mcHandle int

// mcArena owns every MCParticle created within an event and the edges of
// their parent/daughter DAG, following the same arena-index pattern as
// trackArena (spec.md §9).
type mcArena struct {
	byUID     map[Identifier]mcHandle
	particles []*MCParticle
	parents   map[mcHandle][]mcHandle
	daughters map[mcHandle][]mcHandle
}

func newMCArena() *mcArena {
	return &mcArena{
		byUID:     make(map[Identifier]mcHandle),
		parents:   make(map[mcHandle][]mcHandle),
		daughters: make(map[mcHandle][]mcHandle),
	}
}

func (a *mcArena) reset() {
	a.byUID = make(map[Identifier]mcHandle)
	a.particles = nil
	a.parents = make(map[mcHandle][]mcHandle)
	a.daughters = make(map[mcHandle][]mcHandle)
}

// GetOrCreate returns the MCParticle for uid, creating an empty one if it
// does not yet exist, so creation is idempotent by uid; Fill is then
// called on the particle it returns.
func (a *mcArena) GetOrCreate(uid Identifier) *MCParticle {
	if h, ok := a.byUID[uid]; ok {
		return a.particles[h]
	}
	mc := &MCParticle{UID: uid, arena: a}
	mc.self = mcHandle(len(a.particles))
	a.particles = append(a.particles, mc)
	a.byUID[uid] = mc.self
	return mc
}

// Fill supplies the particle's properties. Idempotent: filling an already
// filled particle with identical properties is a no-op success; filling
// with different properties is rejected so a uid cannot silently change
// meaning mid-event.
func (mc *MCParticle) Fill(energy float64, momentum, vertex, endpoint CartesianVector, innerRadius, outerRadius float64, particleID int) error {
	if mc.filled {
		if mc.Energy == energy && mc.Momentum == momentum && mc.Vertex == vertex && mc.Endpoint == endpoint &&
			mc.InnerRadius == innerRadius && mc.OuterRadius == outerRadius && mc.ParticleID == particleID {
			return nil
		}
		return NewStatusError(StatusAlreadyPresent, "MC particle already filled with different properties")
	}
	mc.Energy = energy
	mc.Momentum = momentum
	mc.Vertex = vertex
	mc.Endpoint = endpoint
	mc.InnerRadius = innerRadius
	mc.OuterRadius = outerRadius
	mc.ParticleID = particleID
	mc.filled = true
	return nil
}

// IsFilled reports whether properties have been supplied for this particle.
func (mc *MCParticle) IsFilled() bool { return mc.filled }

// AddDaughter records child as a daughter of mc.
func (mc *MCParticle) AddDaughter(child *MCParticle) error {
	if mc.arena != child.arena {
		return NewStatusError(StatusInvalidParameter, "daughter particle belongs to a different event")
	}
	for _, h := range mc.arena.daughters[mc.self] {
		if h == child.self {
			return nil
		}
	}
	mc.arena.daughters[mc.self] = append(mc.arena.daughters[mc.self], child.self)
	mc.arena.parents[child.self] = append(mc.arena.parents[child.self], mc.self)
	return nil
}

// Parents returns mc's direct parent particles.
func (mc *MCParticle) Parents() []*MCParticle { return mc.arena.resolve(mc.arena.parents[mc.self]) }

// Daughters returns mc's direct daughter particles.
func (mc *MCParticle) Daughters() []*MCParticle {
	return mc.arena.resolve(mc.arena.daughters[mc.self])
}

func (a *mcArena) resolve(handles []mcHandle) []*MCParticle {
	if len(handles) == 0 {
		return nil
	}
	out := make([]*MCParticle, len(handles))
	for i, h := range handles {
		out[i] = a.particles[h]
	}
	return out
}

// PFOTarget returns the ancestor MC particle chosen to represent this
// particle's subtree when attributing reconstructed energy (spec.md
// GLOSSARY: "MC target").
func (mc *MCParticle) PFOTarget() *MCParticle { return mc.pfoTarget }

// SetPFOTarget assigns mc's PFO target. Called by SelectPFOTargets during
// ingest (spec.md §6).
func (mc *MCParticle) SetPFOTarget(target *MCParticle) { mc.pfoTarget = target }

// SelectPFOTargets walks every root particle (one with no parents) in
// particles and assigns that root as PFO target to itself and to every
// descendant. This is a direct, simplified rendering of the "select PFO
// targets" ingest step in spec.md §6. A descendant reachable from several
// roots ends with the root that comes last in particles.
func SelectPFOTargets(particles []*MCParticle) {
	for _, mc := range particles {
		if len(mc.Parents()) == 0 {
			assignTargetToSubtree(mc, mc)
		}
	}
}

func assignTargetToSubtree(mc, target *MCParticle) {
	mc.SetPFOTarget(target)
	for _, d := range mc.Daughters() {
		assignTargetToSubtree(d, target)
	}
}
