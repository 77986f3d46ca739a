package pandora

// FitResult is the outcome of a linear 3-D fit (see internal/pandora/fit),
// cached on a Cluster after a fit-to-all-hits pass.
type FitResult struct {
	Direction      CartesianVector
	Intercept      CartesianVector
	ChiSquaredPerDOF float64
	RMS            float64
	RadialCosine   float64
}

// Cluster is a mutable aggregate of hits and associated tracks,
// hypothesised to come from one shower (spec.md §3). A cluster has ≥1 hit
// OR ≥1 associated track; its energy sums equal the sum over its hits; its
// centroid cache is invalidated on any hit add/remove. A cluster is owned
// by exactly one current list at a time.
type Cluster struct {
	id Identifier

	hits          *OrderedCaloHitList
	isolatedHits  *OrderedCaloHitList
	tracks        map[*Track]struct{}

	electromagneticEnergy float64
	hadronicEnergy        float64

	fit *FitResult // cached fit-to-all-hits result, nil until computed

	centroids map[int]CartesianVector // per-pseudolayer centroid cache

	FixedPhoton   bool
	FixedElectron bool
	FixedMuon     bool
	photonFastCache *bool
}

// NewCluster returns an empty cluster. An empty cluster with no tracks
// violates the "≥1 hit OR ≥1 associated track" invariant until the first
// AddHit/AddTrack call; callers must populate it before it is saved into a
// persistent list.
func NewCluster(id Identifier) *Cluster {
	return &Cluster{
		id:           id,
		hits:         NewOrderedCaloHitList(),
		isolatedHits: NewOrderedCaloHitList(),
		tracks:       make(map[*Track]struct{}),
		centroids:    make(map[int]CartesianVector),
	}
}

// ID returns the cluster's framework identifier.
func (c *Cluster) ID() Identifier { return c.id }

// AddHit adds hit to the cluster's ordered hit list, invalidating the
// centroid cache and updating the cached energy sums.
func (c *Cluster) AddHit(hit *CaloHit) {
	if c.hits.Contains(hit) {
		return
	}
	c.hits.Add(hit)
	c.electromagneticEnergy += hit.ElectromagneticEnergy
	c.hadronicEnergy += hit.HadronicEnergy
	c.invalidateCaches()
}

// RemoveHit removes hit from the cluster, invalidating the centroid cache
// and updating the cached energy sums. Removing an absent hit is a no-op.
func (c *Cluster) RemoveHit(hit *CaloHit) {
	if !c.hits.Contains(hit) {
		return
	}
	c.hits.Remove(hit)
	c.electromagneticEnergy -= hit.ElectromagneticEnergy
	c.hadronicEnergy -= hit.HadronicEnergy
	c.invalidateCaches()
}

// AddIsolatedHit adds hit to the cluster's separate isolated-hits list.
// Isolated hits do not contribute to the cached energy sums, matching the
// original source's treatment of isolated hits as excluded from the main
// shower shape.
func (c *Cluster) AddIsolatedHit(hit *CaloHit) {
	c.isolatedHits.Add(hit)
}

// RemoveIsolatedHit removes hit from the isolated-hits list.
func (c *Cluster) RemoveIsolatedHit(hit *CaloHit) {
	c.isolatedHits.Remove(hit)
}

// AddTrack associates track with the cluster.
func (c *Cluster) AddTrack(track *Track) {
	c.tracks[track] = struct{}{}
}

// RemoveTrack dissociates track from the cluster.
func (c *Cluster) RemoveTrack(track *Track) {
	delete(c.tracks, track)
}

// Hits returns the cluster's ordered-by-pseudolayer hit list.
func (c *Cluster) Hits() *OrderedCaloHitList { return c.hits }

// IsolatedHits returns the cluster's isolated-hits list.
func (c *Cluster) IsolatedHits() *OrderedCaloHitList { return c.isolatedHits }

// Tracks returns the cluster's associated tracks.
func (c *Cluster) Tracks() []*Track {
	out := make([]*Track, 0, len(c.tracks))
	for t := range c.tracks {
		out = append(out, t)
	}
	return out
}

// ElectromagneticEnergy returns the cached sum of hit electromagnetic
// energies.
func (c *Cluster) ElectromagneticEnergy() float64 { return c.electromagneticEnergy }

// HadronicEnergy returns the cached sum of hit hadronic energies.
func (c *Cluster) HadronicEnergy() float64 { return c.hadronicEnergy }

// IsValid reports whether the cluster satisfies the "≥1 hit OR ≥1
// associated track" invariant (spec.md §3).
func (c *Cluster) IsValid() bool {
	return c.hits.Len() > 0 || len(c.tracks) > 0
}

// Fit returns the cached fit-to-all-hits result, or nil if none has been
// computed yet.
func (c *Cluster) Fit() *FitResult { return c.fit }

// SetFit caches a fit result, computed externally by the fit package
// (kept out of Cluster to avoid an import cycle between the object model
// and the numerical kernels).
func (c *Cluster) SetFit(f *FitResult) { c.fit = f }

// Centroid returns the cached centroid for pseudolayer, computing and
// caching it on first access.
func (c *Cluster) Centroid(pseudolayer int) (CartesianVector, bool) {
	if centroid, ok := c.centroids[pseudolayer]; ok {
		return centroid, true
	}
	hits := c.hits.Layer(pseudolayer)
	if len(hits) == 0 {
		return CartesianVector{}, false
	}
	var sum CartesianVector
	for _, h := range hits {
		sum = sum.Add(h.Position)
	}
	centroid := sum.Scale(1 / float64(len(hits)))
	c.centroids[pseudolayer] = centroid
	return centroid, true
}

// InnerLayerCentroid returns the centroid of the cluster's lowest occupied
// pseudolayer, used as the 2-D projection origin by the transverse
// profile peak finder (spec.md §4.4).
func (c *Cluster) InnerLayerCentroid() (CartesianVector, bool) {
	layers := c.hits.Pseudolayers()
	if len(layers) == 0 {
		return CartesianVector{}, false
	}
	return c.Centroid(layers[0])
}

// PhotonFastCache caches the outcome of a cheap photon-likelihood
// pre-check so repeat calls within the same event avoid recomputation.
// The zero value (nil) means "not yet computed".
func (c *Cluster) PhotonFastCache() (value bool, ok bool) {
	if c.photonFastCache == nil {
		return false, false
	}
	return *c.photonFastCache, true
}

// SetPhotonFastCache records the outcome of the photon-fast pre-check.
func (c *Cluster) SetPhotonFastCache(value bool) { c.photonFastCache = &value }

func (c *Cluster) invalidateCaches() {
	c.centroids = make(map[int]CartesianVector)
	c.fit = nil
	c.photonFastCache = nil
}
