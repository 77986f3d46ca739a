package pandora

// InputObjectManager wraps Manager for kinds whose objects are created
// outside algorithms, at event ingest, then grouped into the Input list
// (spec.md §4.1: "Algorithms may only view these lists and compose
// temporaries by reference."). CaloHitManager and TrackManager are its
// two instances.
type InputObjectManager[T any] struct {
	*Manager[T]
}

func newInputObjectManager[T any](kindPrefix string) *InputObjectManager[T] {
	return &InputObjectManager[T]{Manager: NewManager[T](kindPrefix)}
}

// Ingest inserts obj into the Input list. Called only by the ingest API
// (spec.md §6), before processEvent runs any algorithm.
func (m *InputObjectManager[T]) Ingest(obj *T) error {
	return m.ingestInsert(obj)
}

// AlgorithmObjectManager wraps Manager for kinds algorithms create during
// Run: new objects go into the algorithm's current temporary list
// (spec.md §4.1). ClusterManager and PFOManager are its two instances.
type AlgorithmObjectManager[T any] struct {
	*Manager[T]
}

func newAlgorithmObjectManager[T any](kindPrefix string) *AlgorithmObjectManager[T] {
	return &AlgorithmObjectManager[T]{Manager: NewManager[T](kindPrefix)}
}

// Create admits obj into the manager's current temporary list, subject to
// the create-enabled gate (spec.md §4.1 invariant 3).
func (m *AlgorithmObjectManager[T]) Create(obj *T) error {
	return m.createObject(obj)
}

// CaloHitManager is the Input-object manager for CaloHit.
type CaloHitManager = InputObjectManager[CaloHit]

// NewCaloHitManager constructs a CaloHitManager.
func NewCaloHitManager() *CaloHitManager { return newInputObjectManager[CaloHit]("CaloHitList") }

// TrackManager is the Input-object manager for Track.
type TrackManager = InputObjectManager[Track]

// NewTrackManager constructs a TrackManager.
func NewTrackManager() *TrackManager { return newInputObjectManager[Track]("TrackList") }

// ClusterManager is the Algorithm-object manager for Cluster.
type ClusterManager = AlgorithmObjectManager[Cluster]

// NewClusterManager constructs a ClusterManager.
func NewClusterManager() *ClusterManager { return newAlgorithmObjectManager[Cluster]("ClusterList") }

// PFOManager is the Algorithm-object manager for ParticleFlowObject.
type PFOManager = AlgorithmObjectManager[ParticleFlowObject]

// NewPFOManager constructs a PFOManager.
func NewPFOManager() *PFOManager {
	return newAlgorithmObjectManager[ParticleFlowObject]("PfoList")
}
