package pandora

// Track represents a reconstructed charged-particle track (spec.md §3). A
// track is created once per event and persists until event reset; it is
// effectively read-only after ingest except for the cluster association
// and MC back-reference, each set exactly once (spec.md §5).
type Track struct {
	id Identifier

	D0, Z0      float64
	ParticleID  int
	ChargeSign  int
	Mass        float64
	Momentum    CartesianVector
	Position    CartesianVector // at point of closest approach

	Start       TrackState
	End         TrackState
	Calorimeter TrackState

	CanFormPFO           bool
	CanFormClusterlessPFO bool

	cluster    *Cluster
	mcParticle *MCParticle
	address    Address

	arena *trackArena
	self  trackHandle
}

// trackHandle is an arena-index reference to a Track, used for the
// parent/sibling/daughter family DAG instead of owning pointers (spec.md
// §9: "Cyclic graphs ... Store relations as arena-index edges rather than
// owning pointers; nodes owned by a per-event arena freed as a unit at
// event end. Prevents double-frees and enables cheap graph traversal
// without reference counting.").
type trackHandle int

// trackArena owns every Track created within an event and the edges of
// their family DAG (parent -> daughters, plus a separate sibling set).
// The arena is freed as a unit at event reset.
type trackArena struct {
	tracks    []*Track
	parents   map[trackHandle][]trackHandle
	daughters map[trackHandle][]trackHandle
	siblings  map[trackHandle][]trackHandle
}

func newTrackArena() *trackArena {
	return &trackArena{
		parents:   make(map[trackHandle][]trackHandle),
		daughters: make(map[trackHandle][]trackHandle),
		siblings:  make(map[trackHandle][]trackHandle),
	}
}

// NewTrack allocates a Track in the arena and returns it.
func (a *trackArena) NewTrack(id Identifier, address Address) *Track {
	t := &Track{id: id, address: address, arena: a}
	t.self = trackHandle(len(a.tracks))
	a.tracks = append(a.tracks, t)
	return t
}

// NewStandaloneTrack constructs a Track outside of any event's arena, for
// callers that decode a track from a file (internal/pandora/serialize)
// rather than ingesting it through Pandora. Family-DAG methods
// (Parents/Daughters/Siblings/AddParent/AddSibling) are not valid on a
// standalone track.
func NewStandaloneTrack(id Identifier, address Address) *Track {
	return &Track{id: id, address: address}
}

// reset discards every track and edge owned by the arena, matching
// spec.md §5's "next event reset tears them down" guarantee for any
// state left dangling by a misbehaving algorithm.
func (a *trackArena) reset() {
	a.tracks = nil
	a.parents = make(map[trackHandle][]trackHandle)
	a.daughters = make(map[trackHandle][]trackHandle)
	a.siblings = make(map[trackHandle][]trackHandle)
}

// ID returns the track's framework identifier.
func (t *Track) ID() Identifier { return t.id }

// Address returns the opaque back-reference to the embedding application.
func (t *Track) Address() Address { return t.address }

// Cluster returns the track's associated cluster, or nil.
func (t *Track) Cluster() *Cluster { return t.cluster }

// SetCluster sets the track's cluster association exactly once.
func (t *Track) SetCluster(c *Cluster) error {
	if t.cluster != nil {
		return NewStatusError(StatusAlreadyPresent, "track already has a cluster association")
	}
	t.cluster = c
	return nil
}

// MCParticle returns the track's MC-truth back-reference, or nil.
func (t *Track) MCParticle() *MCParticle { return t.mcParticle }

// SetMCParticle sets the track's MC-truth back-reference exactly once.
func (t *Track) SetMCParticle(mc *MCParticle) error {
	if t.mcParticle != nil {
		return NewStatusError(StatusAlreadyPresent, "track already has an MC association")
	}
	t.mcParticle = mc
	return nil
}

// AddParent records t as a daughter of parent. Duplicate edges are
// tolerated silently per spec.md §9's Open Question: "Sibling/daughter
// track relation de-duplication tolerates duplicates silently
// (ALREADY_PRESENT treated as success)."
func (t *Track) AddParent(parent *Track) error {
	if t.arena != parent.arena {
		return NewStatusError(StatusInvalidParameter, "parent track belongs to a different event")
	}
	for _, h := range t.arena.parents[t.self] {
		if h == parent.self {
			return nil // ALREADY_PRESENT treated as success.
		}
	}
	t.arena.parents[t.self] = append(t.arena.parents[t.self], parent.self)
	t.arena.daughters[parent.self] = append(t.arena.daughters[parent.self], t.self)
	return nil
}

// AddSibling declares t and sibling pairwise related, independent of any
// shared parent (spec.md §3: "siblings share a parent relationship but may
// be declared pairwise"). Duplicate edges are tolerated silently.
func (t *Track) AddSibling(sibling *Track) error {
	if t.arena != sibling.arena {
		return NewStatusError(StatusInvalidParameter, "sibling track belongs to a different event")
	}
	if t.self == sibling.self {
		return NewStatusError(StatusInvalidParameter, "a track cannot be its own sibling")
	}
	for _, h := range t.arena.siblings[t.self] {
		if h == sibling.self {
			return nil
		}
	}
	t.arena.siblings[t.self] = append(t.arena.siblings[t.self], sibling.self)
	t.arena.siblings[sibling.self] = append(t.arena.siblings[sibling.self], t.self)
	return nil
}

// Parents returns t's direct parent tracks.
func (t *Track) Parents() []*Track { return t.arena.resolve(t.arena.parents[t.self]) }

// Daughters returns t's direct daughter tracks.
func (t *Track) Daughters() []*Track { return t.arena.resolve(t.arena.daughters[t.self]) }

// Siblings returns tracks declared pairwise-sibling with t.
func (t *Track) Siblings() []*Track { return t.arena.resolve(t.arena.siblings[t.self]) }

func (a *trackArena) resolve(handles []trackHandle) []*Track {
	if len(handles) == 0 {
		return nil
	}
	out := make([]*Track, len(handles))
	for i, h := range handles {
		out[i] = a.tracks[h]
	}
	return out
}
