// Package profile implements the two shower-profile kernels of spec.md
// §4.4 (2-D transverse peak finder) and §4.5 (longitudinal EM profile
// comparator). Both are grounded in the same "weighted grid, breadth-first
// region growth" numerical style the teacher uses for DBSCAN clustering
// (internal/lidar/dbscan_clusterer.go), adapted from a point-cloud
// neighbourhood search to a fixed 2-D energy grid.
package profile

import (
	"math"

	"github.com/hep-reco/pandora/internal/pandora"
)

const (
	transverseGridSize = 41
	gridCenter         = transverseGridSize / 2
)

// Peak is one local maximum found in the transverse energy grid
// (spec.md §4.4): its position in grid cells from the projection origin,
// its total energy, and the derived shower-shape statistics.
type Peak struct {
	GridU, GridV int
	Energy       float64
	DMin         float64 // distance from the projection origin, in the length units of cellWidth
	RMS          float64
	Depth25      float64 // depth along the cluster direction to reach 25% of the peak's energy
	Depth90      float64 // depth along the cluster direction to reach 90% of the peak's energy
}

// TransverseResult is the full output of the 2-D transverse profile
// analysis: every peak found, most energetic first.
type TransverseResult struct {
	Peaks []Peak
}

// gridCell is one occupied bin of the 41x41 transverse energy grid.
type gridCell struct {
	u, vv  int
	energy float64
}

// axes builds an orthonormal (U, V) basis for the transverse projection
// plane from the cluster direction, following spec.md §4.4's
// "cross product of the inner-layer centroid with the fit direction"
// construction.
func axes(direction, innerCentroid pandora.CartesianVector) (u, v pandora.CartesianVector) {
	u = direction.Cross(innerCentroid).Unit()
	if u.Magnitude() == 0 {
		u = pandora.CartesianVector{X: 1}
	}
	v = direction.Cross(u).Unit()
	return u, v
}

// Analyze runs the 2-D transverse shower-profile peak finder described in
// spec.md §4.4 over hits projected into the plane transverse to
// direction, centred on innerCentroid, with grid cells sized cellWidth.
func Analyze(hits []*pandora.CaloHit, direction, innerCentroid pandora.CartesianVector, cellWidth, lowPulseFractionCut float64) (*TransverseResult, error) {
	if cellWidth <= 0 {
		return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "cell width must be positive")
	}
	u, v := axes(direction, innerCentroid)

	grid := make(map[[2]int]*gridCell)
	var totalEnergy float64
	for _, h := range hits {
		rel := h.Position.Sub(innerCentroid)
		cu := int(math.Round(rel.Dot(u)/cellWidth)) + gridCenter
		cv := int(math.Round(rel.Dot(v)/cellWidth)) + gridCenter
		if cu < 0 || cu >= transverseGridSize || cv < 0 || cv >= transverseGridSize {
			continue
		}
		key := [2]int{cu, cv}
		c, ok := grid[key]
		if !ok {
			c = &gridCell{u: cu, vv: cv}
			grid[key] = c
		}
		e := h.ElectromagneticEnergy + h.HadronicEnergy
		c.energy += e
		totalEnergy += e
	}
	if totalEnergy <= 0 {
		return &TransverseResult{}, nil
	}
	lowPulseThreshold := lowPulseFractionCut * totalEnergy

	// Deterministic scan order: highest-energy cell first, so the
	// "central cell owns its neighbours" rule in spec.md §4.4 has a
	// stable tie-break regardless of map iteration order.
	keys := make([][2]int, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sortKeysByEnergyDesc(grid, keys)

	visited := make(map[[2]int]bool)
	var peaks []Peak
	for _, k := range keys {
		if visited[k] {
			continue
		}
		c := grid[k]
		if c.energy < lowPulseThreshold {
			continue
		}
		region := growRegion(grid, visited, k, c.energy)
		peaks = append(peaks, summarizePeak(region, innerCentroid, direction, hits, u, v, cellWidth))
	}

	sortPeaksByEnergyDesc(peaks)
	return &TransverseResult{Peaks: peaks}, nil
}

func sortKeysByEnergyDesc(grid map[[2]int]*gridCell, keys [][2]int) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && grid[keys[j]].energy > grid[keys[j-1]].energy; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// growRegion performs the breadth-first peak growth of spec.md §4.4: a
// neighbour joins the current peak's region only while its energy does
// not exceed twice the seed cell's energy, preventing one peak from
// swallowing an unrelated, more energetic neighbour.
func growRegion(grid map[[2]int]*gridCell, visited map[[2]int]bool, seed [2]int, seedEnergy float64) []*gridCell {
	queue := [][2]int{seed}
	visited[seed] = true
	var region []*gridCell
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		region = append(region, grid[k])
		for du := -1; du <= 1; du++ {
			for dv := -1; dv <= 1; dv++ {
				if du == 0 && dv == 0 {
					continue
				}
				nk := [2]int{k[0] + du, k[1] + dv}
				if visited[nk] {
					continue
				}
				n, ok := grid[nk]
				if !ok {
					continue
				}
				if n.energy > 2*seedEnergy {
					continue
				}
				visited[nk] = true
				queue = append(queue, nk)
			}
		}
	}
	return region
}

func summarizePeak(region []*gridCell, innerCentroid, direction pandora.CartesianVector, hits []*pandora.CaloHit, u, v pandora.CartesianVector, cellWidth float64) Peak {
	var energy, sumU, sumV float64
	for _, c := range region {
		energy += c.energy
		sumU += c.energy * float64(c.u-gridCenter)
		sumV += c.energy * float64(c.vv-gridCenter)
	}
	meanU := sumU / energy
	meanV := sumV / energy

	var sumSqDev float64
	for _, c := range region {
		du := float64(c.u-gridCenter) - meanU
		dv := float64(c.vv-gridCenter) - meanV
		sumSqDev += c.energy * (du*du + dv*dv)
	}
	rms := math.Sqrt(sumSqDev/energy) * cellWidth

	dmin := math.Hypot(meanU, meanV) * cellWidth

	depth25, depth90 := layerDepths(hits, innerCentroid, direction, u, v, meanU*cellWidth, meanV*cellWidth, cellWidth)

	return Peak{
		GridU:   gridCenter + int(math.Round(meanU)),
		GridV:   gridCenter + int(math.Round(meanV)),
		Energy:  energy,
		DMin:    dmin,
		RMS:     rms,
		Depth25: depth25,
		Depth90: depth90,
	}
}

type depthSample struct {
	depth  float64
	energy float64
}

// layerDepths walks hits in order of distance along direction from
// innerCentroid, accumulating energy within one cell width of the peak's
// (u, v) position until 25% and 90% of the peak's total energy has been
// seen, reporting the depth at which each threshold is crossed
// (spec.md §4.4).
func layerDepths(hits []*pandora.CaloHit, innerCentroid, direction, u, v pandora.CartesianVector, peakU, peakV, cellWidth float64) (depth25, depth90 float64) {
	var samples []depthSample
	var total float64
	for _, h := range hits {
		rel := h.Position.Sub(innerCentroid)
		hu := rel.Dot(u)
		hv := rel.Dot(v)
		if math.Hypot(hu-peakU, hv-peakV) > cellWidth {
			continue
		}
		e := h.ElectromagneticEnergy + h.HadronicEnergy
		samples = append(samples, depthSample{depth: rel.Dot(direction), energy: e})
		total += e
	}
	if total <= 0 {
		return 0, 0
	}
	sortSamplesByDepth(samples)
	var cum float64
	found25, found90 := false, false
	for _, s := range samples {
		cum += s.energy
		if !found25 && cum >= 0.25*total {
			depth25, found25 = s.depth, true
		}
		if !found90 && cum >= 0.90*total {
			depth90, found90 = s.depth, true
		}
	}
	return depth25, depth90
}

func sortSamplesByDepth(samples []depthSample) {
	for i := 1; i < len(samples); i++ {
		for j := i; j > 0 && samples[j].depth < samples[j-1].depth; j-- {
			samples[j], samples[j-1] = samples[j-1], samples[j]
		}
	}
}

func sortPeaksByEnergyDesc(peaks []Peak) {
	for i := 1; i < len(peaks); i++ {
		for j := i; j > 0 && peaks[j].Energy > peaks[j-1].Energy; j-- {
			peaks[j], peaks[j-1] = peaks[j-1], peaks[j]
		}
	}
}
