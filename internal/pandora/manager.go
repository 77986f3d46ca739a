package pandora

// namedList is one entry in a kind's named-list namespace (spec.md §3,
// §4.1). saved distinguishes persistent lists (participating in
// name-based swap) from speculative temporaries owned by owner.
type namedList[T any] struct {
	name    ListName
	objects map[*T]struct{}
	saved   bool
	owner   *AlgorithmHandle // nil for Input, NullList and saved non-temporaries
}

func newNamedList[T any](name ListName, saved bool, owner *AlgorithmHandle) *namedList[T] {
	return &namedList[T]{name: name, objects: make(map[*T]struct{}), saved: saved, owner: owner}
}

// Manager is the generic scoped-list substrate described in spec.md §4.1:
// a named-list namespace for objects of type T, with scoped temporary
// lists and save/move semantics. T is one of CaloHit, Track, Cluster or
// ParticleFlowObject; InputObjectManager and AlgorithmObjectManager below
// add the two kind-specific access disciplines spec.md §4.1 calls for.
type Manager[T any] struct {
	kindPrefix string

	lists   map[ListName]*namedList[T]
	current *namedList[T]

	// createEnabled gates CreateObject: true only while current is a
	// temporary list and no temporarilyReplaceCurrentList has intervened
	// (spec.md §4.1 invariant 3).
	createEnabled bool

	// objectIndex is the inverse of list membership, kept in lockstep so
	// that "x ∈ L ⇔ objectIndex[x] == L" (spec.md §8) holds by
	// construction rather than by convention.
	objectIndex map[*T]*namedList[T]

	registered    map[*AlgorithmHandle]bool
	algParentList map[*AlgorithmHandle]ListName
}

// NewManager constructs a Manager with the two reserved lists (Input,
// NullList) present and current pointing at NullList.
func NewManager[T any](kindPrefix string) *Manager[T] {
	m := &Manager[T]{
		kindPrefix:    kindPrefix,
		lists:         make(map[ListName]*namedList[T]),
		objectIndex:   make(map[*T]*namedList[T]),
		registered:    make(map[*AlgorithmHandle]bool),
		algParentList: make(map[*AlgorithmHandle]ListName),
	}
	m.resetLists()
	return m
}

func (m *Manager[T]) resetLists() {
	m.lists = map[ListName]*namedList[T]{
		InputListName: newNamedList[T](InputListName, true, nil),
		NullListName:  newNamedList[T](NullListName, true, nil),
	}
	m.objectIndex = make(map[*T]*namedList[T])
	m.current = m.lists[NullListName]
	m.createEnabled = false
}

// CurrentListName returns the name of the manager's current list.
func (m *Manager[T]) CurrentListName() ListName { return m.current.name }

// List returns the (unordered) contents of the named list, or NOT_FOUND.
func (m *Manager[T]) List(name ListName) ([]*T, error) {
	l, ok := m.lists[name]
	if !ok {
		return nil, NewStatusErrorf(StatusNotFound, "list %q not found", name)
	}
	out := make([]*T, 0, len(l.objects))
	for o := range l.objects {
		out = append(out, o)
	}
	return out, nil
}

// CurrentList returns the contents of the manager's current list.
func (m *Manager[T]) CurrentList() []*T {
	out := make([]*T, 0, len(m.current.objects))
	for o := range m.current.objects {
		out = append(out, o)
	}
	return out
}

// ListOf returns the name of the list currently containing obj, or
// NOT_FOUND if obj is not tracked by this manager.
func (m *Manager[T]) ListOf(obj *T) (ListName, error) {
	l, ok := m.objectIndex[obj]
	if !ok {
		return "", NewStatusError(StatusNotFound, "object not tracked by this manager")
	}
	return l.name, nil
}

// RegisterAlgorithm records the manager's current list as alg's parent
// list (spec.md §4.1).
func (m *Manager[T]) RegisterAlgorithm(alg *AlgorithmHandle) error {
	if m.registered[alg] {
		return NewStatusError(StatusAlreadyPresent, "algorithm already registered")
	}
	m.registered[alg] = true
	m.algParentList[alg] = m.current.name
	return nil
}

func (m *Manager[T]) requireRegistered(alg *AlgorithmHandle) error {
	if !m.registered[alg] {
		return NewStatusError(StatusNotAllowed, "algorithm not registered with this manager")
	}
	return nil
}

// CreateTemporaryList creates a fresh, uniquely-named temporary list,
// makes it current, and enables object creation (spec.md §4.1).
func (m *Manager[T]) CreateTemporaryList(alg *AlgorithmHandle) (ListName, error) {
	if err := m.requireRegistered(alg); err != nil {
		return "", err
	}
	name := newTemporaryListName(m.kindPrefix)
	m.lists[name] = newNamedList[T](name, false, alg)
	m.current = m.lists[name]
	m.createEnabled = true
	return name, nil
}

// MoveObjectsToTemporaryList moves subset out of src into a fresh
// temporary list, which becomes current (spec.md §4.1).
func (m *Manager[T]) MoveObjectsToTemporaryList(alg *AlgorithmHandle, src ListName, subset []*T) (ListName, error) {
	if err := m.requireRegistered(alg); err != nil {
		return "", err
	}
	if len(subset) == 0 {
		return "", NewStatusError(StatusInvalidParameter, "empty subset")
	}
	srcList, ok := m.lists[src]
	if !ok {
		return "", NewStatusErrorf(StatusNotFound, "source list %q not found", src)
	}
	for _, o := range subset {
		if _, in := srcList.objects[o]; !in {
			return "", NewStatusError(StatusNotFound, "subset object not present in source list")
		}
	}

	name := newTemporaryListName(m.kindPrefix)
	newList := newNamedList[T](name, false, alg)
	for _, o := range subset {
		delete(srcList.objects, o)
		newList.objects[o] = struct{}{}
		m.objectIndex[o] = newList
	}
	m.discardIfEmptyTemporary(srcList)

	m.lists[name] = newList
	m.current = newList
	m.createEnabled = true
	return name, nil
}

// SaveObjects moves objects from source into target, marking target
// saved. If subset is nil, every object in source is moved. If source
// empties out and was a temporary, it is discarded (spec.md §4.1).
func (m *Manager[T]) SaveObjects(target, source ListName, subset []*T) error {
	srcList, ok := m.lists[source]
	if !ok {
		return NewStatusErrorf(StatusNotFound, "source list %q not found", source)
	}
	toMove := subset
	if toMove == nil {
		toMove = make([]*T, 0, len(srcList.objects))
		for o := range srcList.objects {
			toMove = append(toMove, o)
		}
	}

	targetList, ok := m.lists[target]
	if !ok {
		targetList = newNamedList[T](target, true, nil)
		m.lists[target] = targetList
	}
	for _, o := range toMove {
		if _, dup := targetList.objects[o]; dup {
			return NewStatusError(StatusAlreadyPresent, "object already present in target list")
		}
	}

	for _, o := range toMove {
		delete(srcList.objects, o)
		targetList.objects[o] = struct{}{}
		m.objectIndex[o] = targetList
	}
	targetList.saved = true
	m.discardIfEmptyTemporary(srcList)
	return nil
}

func (m *Manager[T]) discardIfEmptyTemporary(l *namedList[T]) {
	if l.name == InputListName || l.name == NullListName {
		return
	}
	if !l.saved && len(l.objects) == 0 {
		delete(m.lists, l.name)
		if m.current == l {
			m.current = m.lists[NullListName]
		}
	}
}

// ReplaceCurrentAndAlgorithmInputLists retargets current and alg's parent
// list pointer to name, which must already be saved (spec.md §4.1).
func (m *Manager[T]) ReplaceCurrentAndAlgorithmInputLists(alg *AlgorithmHandle, name ListName) error {
	if err := m.requireRegistered(alg); err != nil {
		return err
	}
	l, ok := m.lists[name]
	if !ok {
		return NewStatusErrorf(StatusNotFound, "list %q not found", name)
	}
	if !l.saved {
		return NewStatusErrorf(StatusNotAllowed, "list %q is not saved", name)
	}
	m.current = l
	m.algParentList[alg] = name
	m.createEnabled = false
	return nil
}

// TemporarilyReplaceCurrentList switches current for view-only use,
// disabling new-object creation until the next CreateTemporaryList /
// MoveObjectsToTemporaryList call (spec.md §4.1 invariant 3).
func (m *Manager[T]) TemporarilyReplaceCurrentList(name ListName) error {
	l, ok := m.lists[name]
	if !ok {
		return NewStatusErrorf(StatusNotFound, "list %q not found", name)
	}
	m.current = l
	m.createEnabled = false
	return nil
}

// DropCurrentList clears the current designation and disallows
// new-object creation (spec.md §4.1).
func (m *Manager[T]) DropCurrentList() {
	m.current = m.lists[NullListName]
	m.createEnabled = false
}

// DeleteObject destroys obj and removes it from list (spec.md §4.1).
func (m *Manager[T]) DeleteObject(obj *T, list ListName) error {
	l, ok := m.lists[list]
	if !ok {
		return NewStatusErrorf(StatusNotFound, "list %q not found", list)
	}
	if _, in := l.objects[obj]; !in {
		return NewStatusError(StatusNotFound, "object not present in list")
	}
	delete(l.objects, obj)
	delete(m.objectIndex, obj)
	m.discardIfEmptyTemporary(l)
	return nil
}

// DeleteObjects destroys every object in objs, all drawn from list.
func (m *Manager[T]) DeleteObjects(objs []*T, list ListName) error {
	for _, o := range objs {
		if err := m.DeleteObject(o, list); err != nil {
			return err
		}
	}
	return nil
}

// ResetAlgorithmInfo destroys every temporary list created by alg and any
// objects still in them, then restores current to alg's parent list
// (spec.md §4.1). If finished is true, alg's registration is also dropped.
func (m *Manager[T]) ResetAlgorithmInfo(alg *AlgorithmHandle, finished bool) error {
	if err := m.requireRegistered(alg); err != nil {
		return err
	}
	for name, l := range m.lists {
		if l.owner == alg {
			for o := range l.objects {
				delete(m.objectIndex, o)
			}
			delete(m.lists, name)
		}
	}
	parentName := m.algParentList[alg]
	parentList, ok := m.lists[parentName]
	if !ok {
		parentList = m.lists[NullListName]
	}
	m.current = parentList
	m.createEnabled = false
	if finished {
		delete(m.registered, alg)
		delete(m.algParentList, alg)
	}
	return nil
}

// EraseAllContent destroys every object and every list (spec.md §4.1,
// end-of-event reset).
func (m *Manager[T]) EraseAllContent() {
	m.resetLists()
	m.registered = make(map[*AlgorithmHandle]bool)
	m.algParentList = make(map[*AlgorithmHandle]ListName)
}

// createObject is the single admission point for new objects, gated by
// invariant 3: current must be a temporary and createEnabled must be set.
// Exposed to algorithm-object managers only; input-object managers insert
// directly into the Input list during ingest instead.
func (m *Manager[T]) createObject(obj *T) error {
	if m.current.saved || !m.createEnabled {
		return NewStatusError(StatusNotAllowed, "object creation not permitted against the current list")
	}
	m.current.objects[obj] = struct{}{}
	m.objectIndex[obj] = m.current
	return nil
}

// ingestInsert inserts obj directly into the Input list, bypassing the
// createEnabled gate. Used only during the ingest API (spec.md §6),
// before any algorithm has run.
func (m *Manager[T]) ingestInsert(obj *T) error {
	input := m.lists[InputListName]
	if _, dup := input.objects[obj]; dup {
		return NewStatusError(StatusAlreadyPresent, "object already present in Input list")
	}
	input.objects[obj] = struct{}{}
	m.objectIndex[obj] = input
	return nil
}
