package pandora

import "sort"

// OrderedCaloHitList is an ordered mapping from pseudolayer to a set of
// hits (spec.md §3). Invariant: any hit appears at most once, and only in
// its own pseudolayer bucket.
type OrderedCaloHitList struct {
	byLayer map[int]map[*CaloHit]struct{}
	layerOf map[*CaloHit]int
}

// NewOrderedCaloHitList returns an empty OrderedCaloHitList.
func NewOrderedCaloHitList() *OrderedCaloHitList {
	return &OrderedCaloHitList{
		byLayer: make(map[int]map[*CaloHit]struct{}),
		layerOf: make(map[*CaloHit]int),
	}
}

// Add inserts hit into its own pseudolayer bucket. Re-adding a hit already
// present is a no-op (preserves the at-most-once invariant).
func (l *OrderedCaloHitList) Add(hit *CaloHit) {
	if _, ok := l.layerOf[hit]; ok {
		return
	}
	layer := hit.Pseudolayer
	bucket, ok := l.byLayer[layer]
	if !ok {
		bucket = make(map[*CaloHit]struct{})
		l.byLayer[layer] = bucket
	}
	bucket[hit] = struct{}{}
	l.layerOf[hit] = layer
}

// AddList adds every hit in other to l.
func (l *OrderedCaloHitList) AddList(other *OrderedCaloHitList) {
	for hit := range other.layerOf {
		l.Add(hit)
	}
}

// Remove removes hit from its bucket. Removing an absent hit is a no-op.
// An empty bucket is pruned so that every remaining pseudolayer bucket is
// non-empty (spec.md §8).
func (l *OrderedCaloHitList) Remove(hit *CaloHit) {
	layer, ok := l.layerOf[hit]
	if !ok {
		return
	}
	delete(l.byLayer[layer], hit)
	if len(l.byLayer[layer]) == 0 {
		delete(l.byLayer, layer)
	}
	delete(l.layerOf, hit)
}

// RemoveList removes every hit in other from l.
func (l *OrderedCaloHitList) RemoveList(other *OrderedCaloHitList) {
	for hit := range other.layerOf {
		l.Remove(hit)
	}
}

// Contains reports whether hit is present in the list.
func (l *OrderedCaloHitList) Contains(hit *CaloHit) bool {
	_, ok := l.layerOf[hit]
	return ok
}

// Layer returns the (unordered) set of hits in the given pseudolayer.
func (l *OrderedCaloHitList) Layer(pseudolayer int) []*CaloHit {
	bucket := l.byLayer[pseudolayer]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*CaloHit, 0, len(bucket))
	for h := range bucket {
		out = append(out, h)
	}
	return out
}

// Pseudolayers returns the occupied pseudolayers in ascending order.
func (l *OrderedCaloHitList) Pseudolayers() []int {
	layers := make([]int, 0, len(l.byLayer))
	for layer := range l.byLayer {
		layers = append(layers, layer)
	}
	sort.Ints(layers)
	return layers
}

// Flatten returns every hit in the list, ordered by ascending pseudolayer
// (ties broken arbitrarily within a layer, since layer membership is
// semantically unordered per spec.md §5).
func (l *OrderedCaloHitList) Flatten() []*CaloHit {
	out := make([]*CaloHit, 0, len(l.layerOf))
	for _, layer := range l.Pseudolayers() {
		out = append(out, l.Layer(layer)...)
	}
	return out
}

// Len returns the total number of hits across all pseudolayers.
func (l *OrderedCaloHitList) Len() int { return len(l.layerOf) }
