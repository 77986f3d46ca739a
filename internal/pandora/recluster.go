package pandora

import "log"

// reclusterFrame is one entry in a reclustering candidate stack: an
// availability tableau plus the ordered sequence of fragment
// replacements that produced it (spec.md §4.2).
type reclusterFrame struct {
	availability map[*CaloHit]bool
	replacements []FragmentReplacement
}

func newReclusterFrame() *reclusterFrame {
	return &reclusterFrame{availability: make(map[*CaloHit]bool)}
}

// update replays other's fragment replacements into f, then layers in
// other's availability entries. Stale entries — an old hit absent from
// f's own tableau — are tolerated: the replacement is still applied and
// a diagnostic is emitted, per spec.md §9's resolution of the "imperfect
// replacements" open question ("accept partial, emit a diagnostic, do
// not treat as a failure").
func (f *reclusterFrame) update(other *reclusterFrame, logger *log.Logger) {
	for _, rec := range other.replacements {
		missing := false
		for _, old := range rec.Old {
			if _, ok := f.availability[old]; !ok {
				missing = true
			}
			delete(f.availability, old)
		}
		for _, nw := range rec.New {
			f.availability[nw] = true
		}
		if missing && logger != nil {
			logger.Printf("imperfect calo hit replacements")
		}
		f.replacements = append(f.replacements, rec)
	}
	for hit, avail := range other.availability {
		f.availability[hit] = avail
	}
}

// reclusterContext is one (cluster-list -> hits-union) snapshot opened by
// InitializeReclustering, together with every candidate frame prepared
// above it (spec.md §4.2).
type reclusterContext struct {
	alg          *AlgorithmHandle
	originalName ListName
	hits         *OrderedCaloHitList
	base         *reclusterFrame
	candidates   map[ListName]*reclusterFrame
	active       *reclusterFrame
}

// ReclusterManager is the reclustering substrate: a stack of
// reclusterContexts, LIFO at the context level (spec.md §4.2, §5).
type ReclusterManager struct {
	logger *log.Logger
	stack  []*reclusterContext
}

// NewReclusterManager constructs a ReclusterManager. logger may be nil, in
// which case "imperfect calo hit replacements" diagnostics are dropped.
func NewReclusterManager(logger *log.Logger) *ReclusterManager {
	return &ReclusterManager{logger: logger}
}

// InitializeReclustering captures the hits covered by existingClusters,
// opens a new frame marking every covered hit unavailable, and names it
// originalName (spec.md §4.2). Returns a snapshot of the covered hits for
// the caller to hand to a fresh clustering pass.
func (rm *ReclusterManager) InitializeReclustering(alg *AlgorithmHandle, existingClusters []*Cluster, originalName ListName) (*OrderedCaloHitList, error) {
	hits := NewOrderedCaloHitList()
	for _, c := range existingClusters {
		hits.AddList(c.Hits())
	}
	base := newReclusterFrame()
	for _, h := range hits.Flatten() {
		base.availability[h] = false
	}
	ctx := &reclusterContext{
		alg:          alg,
		originalName: originalName,
		hits:         hits,
		base:         base,
		candidates:   make(map[ListName]*reclusterFrame),
		active:       base,
	}
	rm.stack = append(rm.stack, ctx)
	return hits, nil
}

func (rm *ReclusterManager) top() (*reclusterContext, error) {
	if len(rm.stack) == 0 {
		return nil, NewStatusError(StatusFailure, "reclustering stack underflow")
	}
	return rm.stack[len(rm.stack)-1], nil
}

// PrepareForClustering opens a fresh candidate frame above the current
// context, marking every hit covered by the context available, so a
// clustering algorithm can run against a clean slate (spec.md §4.2).
func (rm *ReclusterManager) PrepareForClustering(alg *AlgorithmHandle, newName ListName) error {
	ctx, err := rm.top()
	if err != nil {
		return err
	}
	if ctx.alg != alg {
		return NewStatusError(StatusNotAllowed, "reclustering context owned by a different algorithm")
	}
	if newName == ctx.originalName {
		return NewStatusError(StatusAlreadyPresent, "candidate name collides with the original candidate")
	}
	if _, exists := ctx.candidates[newName]; exists {
		return NewStatusError(StatusAlreadyPresent, "candidate name already in use")
	}
	candidate := newReclusterFrame()
	for _, h := range ctx.hits.Flatten() {
		candidate.availability[h] = true
	}
	ctx.candidates[newName] = candidate
	ctx.active = candidate
	return nil
}

// IsAvailable reports hit's availability. Outside any reclustering frame
// it reads hit.available directly; inside, it resolves against the top
// frame only (spec.md §8).
func (rm *ReclusterManager) IsAvailable(hit *CaloHit) (bool, error) {
	if hit == nil {
		return false, NewStatusError(StatusNotFound, "nil hit")
	}
	if len(rm.stack) == 0 {
		return hit.available, nil
	}
	ctx := rm.stack[len(rm.stack)-1]
	avail, ok := ctx.active.availability[hit]
	if !ok {
		return false, NewStatusError(StatusNotFound, "hit not present in current reclustering frame")
	}
	return avail, nil
}

// SetAvailable writes hit's availability through the same resolution rule
// as IsAvailable.
func (rm *ReclusterManager) SetAvailable(hit *CaloHit, available bool) error {
	if hit == nil {
		return NewStatusError(StatusNotFound, "nil hit")
	}
	if len(rm.stack) == 0 {
		hit.available = available
		return nil
	}
	ctx := rm.stack[len(rm.stack)-1]
	if _, ok := ctx.active.availability[hit]; !ok {
		return NewStatusError(StatusNotFound, "hit not present in current reclustering frame")
	}
	ctx.active.availability[hit] = available
	return nil
}

// Fragment records a split or merge against the current frame: old hits
// are dropped, new hits are inserted (available by default), and the
// (old, new) pair is appended to the frame's replacement sequence
// (spec.md §4.2, §3). Fragmenting a hit absent from the current
// context's hit set is rejected.
func (rm *ReclusterManager) Fragment(old, new []*CaloHit) error {
	ctx, err := rm.top()
	if err != nil {
		return err
	}
	for _, h := range old {
		if _, ok := ctx.active.availability[h]; !ok {
			return NewStatusError(StatusNotAllowed, "fragmenting a hit not in the current list")
		}
	}
	for _, h := range old {
		delete(ctx.active.availability, h)
		ctx.hits.Remove(h)
	}
	for _, h := range new {
		ctx.active.availability[h] = true
		ctx.hits.Add(h)
	}
	ctx.active.replacements = append(ctx.active.replacements, FragmentReplacement{Old: old, New: new})
	return nil
}

// EndReclustering pops the current context, promoting the selected
// candidate frame (or the original, if selected == originalName) into
// the frame below — or into the hits themselves once the stack empties
// (spec.md §4.2). The caller must pass the alg that opened the context;
// a mismatch is a stack-discipline violation (spec.md §5) and fails.
func (rm *ReclusterManager) EndReclustering(alg *AlgorithmHandle, selected ListName) error {
	ctx, err := rm.top()
	if err != nil {
		return err
	}
	if ctx.alg != alg {
		return NewStatusError(StatusFailure, "endReclustering does not match the most recent initializeReclustering")
	}
	var chosen *reclusterFrame
	if selected == ctx.originalName {
		chosen = ctx.base
	} else {
		var ok bool
		chosen, ok = ctx.candidates[selected]
		if !ok {
			return NewStatusErrorf(StatusNotFound, "candidate %q not found", selected)
		}
	}
	rm.stack = rm.stack[:len(rm.stack)-1]

	if len(rm.stack) == 0 {
		for hit, avail := range chosen.availability {
			hit.available = avail
		}
		return nil
	}
	parent := rm.stack[len(rm.stack)-1]
	parent.active.update(chosen, rm.logger)
	return nil
}

// Depth returns the number of open reclustering contexts, used by
// event-reset teardown to detect algorithms that terminated with frames
// still open (spec.md §5).
func (rm *ReclusterManager) Depth() int { return len(rm.stack) }

// TeardownAll force-closes every open context without promoting any
// candidate, discarding all fragment bookkeeping. Called by event reset
// when an algorithm terminates with frames still open (spec.md §5).
func (rm *ReclusterManager) TeardownAll() {
	rm.stack = nil
}
