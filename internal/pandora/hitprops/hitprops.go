// Package hitprops implements the per-hit property calculator of
// spec.md §4.6: density weight, surrounding energy, isolation, and the
// possible-MIP flag. Its use of gonum.org/v1/gonum/floats for the
// neighbour-energy sum mirrors the teacher's own reach for a gonum
// numerical package (internal/db/db.go uses gonum/stat) rather than a
// hand-rolled accumulator.
package hitprops

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hep-reco/pandora/internal/pandora"
)

// DensityWeightExponent is the power n in the 1/r^n neighbour-contribution
// falloff spec.md §4.6 calls for.
const DensityWeightExponent = 3.0

// perpendicularDistance returns the perpendicular distance from other's
// position to the line through the origin and hit's position:
// |hit.Position × (hit.Position − other.Position)| / |hit.Position|
// (CaloHitHelper.cc:128-132, :211) — not the straight-line distance between
// the two hits.
func perpendicularDistance(hit, other *pandora.CaloHit) float64 {
	positionMagnitude := hit.Position.Magnitude()
	crossProduct := hit.Position.Cross(hit.Position.Sub(other.Position))
	return crossProduct.Magnitude() / positionMagnitude
}

// layerWindow returns every hit within n pseudolayers (inclusive) of centre,
// clamped at pseudolayer 0 (CaloHitHelper.cc:466-470).
func layerWindow(list *pandora.OrderedCaloHitList, centre, n int) []*pandora.CaloHit {
	min := centre - n
	if min < 0 {
		min = 0
	}
	var out []*pandora.CaloHit
	for layer := min; layer <= centre+n; layer++ {
		out = append(out, list.Layer(layer)...)
	}
	return out
}

// DensityWeight computes hit's density weight: the sum, over every other
// hit in candidates within maxSeparationCm, of that hit's energy divided by
// its perpendicular distance to hit raised to DensityWeightExponent
// (spec.md §4.6; CaloHitHelper.cc:111-144).
func DensityWeight(hit *pandora.CaloHit, candidates []*pandora.CaloHit, maxSeparationCm float64) float64 {
	var weight float64
	for _, other := range candidates {
		if other == hit {
			continue
		}
		if hit.Position.Sub(other.Position).Magnitude() > maxSeparationCm {
			continue
		}
		r := perpendicularDistance(hit, other)
		if r <= 0 {
			continue
		}
		weight += (other.ElectromagneticEnergy + other.HadronicEnergy) / math.Pow(r, DensityWeightExponent)
	}
	return weight
}

// boxOffsets reports whether other lies within a region-appropriate cell box
// around hit: cellFactor cell widths in (z, phi) for a barrel hit, or in
// (x, y) for an endcap hit. The same gate GetSurroundingEnergyContribution
// and MipCountNearbyHits both apply (CaloHitHelper.cc:150-178, :227-255).
func boxOffsets(hit, other *pandora.CaloHit, cellFactor float64) bool {
	cellU, cellV := hit.Geometry.PlanarExtent()
	diff := hit.Position.Sub(other.Position)
	if hit.Region == pandora.RegionBarrel {
		dPhi := math.Hypot(diff.X, diff.Y)
		return math.Abs(diff.Z) < cellFactor*cellU && dPhi < cellFactor*cellV
	}
	return math.Abs(diff.X) < cellFactor*cellU && math.Abs(diff.Y) < cellFactor*cellV
}

// SurroundingEnergy sums the hadronic energy of every same-pseudolayer hit
// in sameLayerHits that falls within cellFactor cell widths of hit, after a
// coarse Euclidean max-separation gate (spec.md §4.6; CaloHitHelper.cc:
// 147-178 — GetHadronicEnergy() only, never the electromagnetic component).
func SurroundingEnergy(hit *pandora.CaloHit, sameLayerHits []*pandora.CaloHit, cellFactor, maxSeparationCm float64) float64 {
	var energies []float64
	for _, other := range sameLayerHits {
		if other == hit {
			continue
		}
		if hit.Position.Sub(other.Position).Magnitude() > maxSeparationCm {
			continue
		}
		if boxOffsets(hit, other, cellFactor) {
			energies = append(energies, other.HadronicEnergy)
		}
	}
	if len(energies) == 0 {
		return 0
	}
	return floats.Sum(energies)
}

// Isolation reports whether hit is isolated: strictly fewer than maxHits
// other hits in candidates lie within radiusCm of the line from the origin
// to hit, after a coarse Euclidean max-separation gate (spec.md §4.6;
// CaloHitHelper.cc:183-209, :496 — "isolationNearbyHits < m_isolationMaxNearbyHits").
func Isolation(hit *pandora.CaloHit, candidates []*pandora.CaloHit, radiusCm, maxSeparationCm float64, maxHits int) (isIsolated bool, neighbourCount int) {
	var count int
	for _, other := range candidates {
		if other == hit {
			continue
		}
		if hit.Position.Sub(other.Position).Magnitude() > maxSeparationCm {
			continue
		}
		if perpendicularDistance(hit, other) < radiusCm {
			count++
		}
	}
	return count < maxHits, count
}

// mipCrowdingCount counts the same-pseudolayer hits in sameLayerHits that
// fall within a cellFactor-cell-wide box of hit (CaloHitHelper.cc:220-257).
func mipCrowdingCount(hit *pandora.CaloHit, sameLayerHits []*pandora.CaloHit, cellFactor, maxSeparationCm float64) int {
	var count int
	for _, other := range sameLayerHits {
		if other == hit {
			continue
		}
		if hit.Position.Sub(other.Position).Magnitude() > maxSeparationCm {
			continue
		}
		if boxOffsets(hit, other, cellFactor) {
			count++
		}
	}
	return count
}

// PossibleMIP flags hit as a possible minimum-ionising-particle deposit
// (spec.md §4.6; CaloHitHelper.cc:501-522). A muon-system hit is always
// flagged. Otherwise the hit's MIP-equivalent energy must sit at or below
// the MIP cut scaled by an angular correction for the hit's region — the
// projection factor that accounts for a hit's cell being crossed at an
// angle rather than square-on — or the hit must be digital; and on top of
// that, its same-pseudolayer neighbourhood must not be too crowded.
func PossibleMIP(hit *pandora.CaloHit, sameLayerHits []*pandora.CaloHit, cuts *pandora.CutParams) bool {
	if hit.Type == pandora.HitTypeMuon {
		return true
	}

	positionMagnitude := hit.Position.Magnitude()
	var angularCorrection float64
	if hit.Region == pandora.RegionBarrel {
		angularCorrection = positionMagnitude / math.Hypot(hit.Position.X, hit.Position.Y)
	} else {
		angularCorrection = positionMagnitude / math.Abs(hit.Position.Z)
	}

	mipLike := hit.IsDigital || hit.MIPEnergy <= cuts.MIPEquivalentCutGeV*angularCorrection
	if !mipLike {
		return false
	}
	return cuts.MIPMaxNearbyHits >= mipCrowdingCount(hit, sameLayerHits, cuts.MIPCrowdingCellFactor, cuts.MaxSeparationCm)
}

// Compute populates the density weight, surrounding energy, isolation and
// possible-MIP fields on every hit in hits (spec.md §4.6;
// CaloHitHelper.cc:462-527 CalculateCaloHitProperties). Density weight and
// isolation are each accumulated from a ±N-pseudolayer window around a
// hit's own layer (N = cuts.DensityWeightNLayers / cuts.IsolationNLayers);
// surrounding energy and the MIP flag consider only the hit's own
// pseudolayer. This is the single entry point an ingest or algorithm pass
// calls after pseudolayer assignment has completed.
func Compute(hits []*pandora.CaloHit, ctx *pandora.ReconstructionContext) {
	list := pandora.NewOrderedCaloHitList()
	for _, h := range hits {
		list.Add(h)
	}

	cuts := ctx.Cuts
	for _, h := range hits {
		h.DensityWeight = DensityWeight(h, layerWindow(list, h.Pseudolayer, cuts.DensityWeightNLayers), cuts.MaxSeparationCm)

		sameLayerHits := list.Layer(h.Pseudolayer)
		h.SurroundingEnergy = SurroundingEnergy(h, sameLayerHits, cuts.SurroundingEnergyCellFactor, cuts.MaxSeparationCm)

		isolated, _ := Isolation(h, layerWindow(list, h.Pseudolayer, cuts.IsolationNLayers), cuts.IsolationRadiusCm, cuts.IsolationMaxSeparationCm, cuts.IsolationMaxHits)
		h.IsIsolated = isolated

		h.IsPossibleMIP = PossibleMIP(h, sameLayerHits, cuts)
	}
}
