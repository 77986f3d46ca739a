// Package fit implements the 3-D linear cluster fit described in
// spec.md §4.3: given an ordered sequence of calorimeter hits, find the
// best-fit line through their pseudolayer centroids and report the
// residual statistics a clustering algorithm needs to judge shower
// straightness.
//
// The least-squares core follows the same "build a covariance, read off
// its principal axis" recipe as the teacher's 2-D oriented-bounding-box
// estimator (internal/lidar/obb.go), lifted to 3-D and expressed with
// gonum.org/v1/gonum/mat rather than a closed-form 2x2 eigen formula.
package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hep-reco/pandora/internal/pandora"
)

// Result is the outcome of a linear fit: a unit direction vector, an
// intercept point on the fitted line, and residual statistics
// (spec.md §4.3).
type Result struct {
	Direction        pandora.CartesianVector
	Intercept        pandora.CartesianVector
	ChiSquaredPerDOF float64
	RMS              float64
	RadialCosine     float64
}

// point is one fit input: a centroid position with its contributing cell
// size, used to weight the least-squares residual the way the original
// calorimeter fit weights by transverse cell size.
type point struct {
	pos      pandora.CartesianVector
	cellSize float64
}

// Points collects the layer centroids a fit is run over, in pseudolayer
// order. NewPoints rejects fewer than two points and any point with a
// non-positive cell size before any numerical work starts (spec.md §4.3);
// no other per-point check is made.
type Points []point

// NewPoints validates and wraps a set of (position, cellSize) pairs.
func NewPoints(positions []pandora.CartesianVector, cellSizes []float64) (Points, error) {
	if len(positions) != len(cellSizes) {
		return nil, fmt.Errorf("fit: %d positions but %d cell sizes", len(positions), len(cellSizes))
	}
	if len(positions) < 2 {
		return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "fit requires at least two points")
	}
	pts := make(Points, len(positions))
	for i := range positions {
		if cellSizes[i] <= 0 {
			return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "fit requires a positive cell size for every point")
		}
		pts[i] = point{pos: positions[i], cellSize: cellSizes[i]}
	}
	return pts, nil
}

// Fit performs the 3-D linear least-squares fit described in spec.md
// §4.3: the fitted direction is the principal eigenvector of the
// cell-size-weighted position covariance, the intercept is the weighted
// centroid, and chi-squared/rms/radial-cosine are computed from the
// perpendicular residuals.
func Fit(pts Points) (*Result, error) {
	if len(pts) < 2 {
		return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "fit requires at least two points")
	}

	var sumW, sumX, sumY, sumZ float64
	for _, p := range pts {
		w := 1.0 / (p.cellSize * p.cellSize)
		sumW += w
		sumX += w * p.pos.X
		sumY += w * p.pos.Y
		sumZ += w * p.pos.Z
	}
	if sumW <= 0 {
		return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "fit weights summed to zero")
	}
	mean := pandora.CartesianVector{X: sumX / sumW, Y: sumY / sumW, Z: sumZ / sumW}

	cov := mat.NewSymDense(3, nil)
	for _, p := range pts {
		w := 1.0 / (p.cellSize * p.cellSize)
		dx, dy, dz := p.pos.X-mean.X, p.pos.Y-mean.Y, p.pos.Z-mean.Z
		d := []float64{dx, dy, dz}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				cov.SetSym(i, j, cov.At(i, j)+w*d[i]*d[j])
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, pandora.NewStatusError(pandora.StatusFailure, "eigen decomposition of fit covariance did not converge")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	best := 0
	for i := 1; i < 3; i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	direction := pandora.CartesianVector{
		X: vectors.At(0, best),
		Y: vectors.At(1, best),
		Z: vectors.At(2, best),
	}.Unit()

	// Orient the direction toward increasing radius from the origin so
	// consumers can reason about "outward" without a sign ambiguity
	// (spec.md §4.3).
	if direction.Dot(mean) < 0 {
		direction = direction.Scale(-1)
	}

	var sumSqResidual, sumSqPerp float64
	for _, p := range pts {
		toPoint := p.pos.Sub(mean)
		along := toPoint.Dot(direction)
		perp := toPoint.Sub(direction.Scale(along))
		sumSqPerp += perp.Magnitude() * perp.Magnitude()
		sumSqResidual += perp.Magnitude() * perp.Magnitude() / (p.cellSize * p.cellSize)
	}
	dof := float64(len(pts) - 2)
	chiSquaredPerDOF := 0.0
	if dof > 0 {
		chiSquaredPerDOF = sumSqResidual / dof
	}
	rms := math.Sqrt(sumSqPerp / float64(len(pts)))

	radialUnit := mean.Unit()
	radialCosine := direction.Dot(radialUnit)

	return &Result{
		Direction:        direction,
		Intercept:        mean,
		ChiSquaredPerDOF: chiSquaredPerDOF,
		RMS:              rms,
		RadialCosine:     radialCosine,
	}, nil
}

// pointsFromLayers builds fit Points out of the per-layer centroids of
// hits, weighted by each layer's representative cell size (the mean
// planar extent of its hits), restricted to [startLayer, endLayer]
// inclusive.
func pointsFromLayers(hits *pandora.OrderedCaloHitList, startLayer, endLayer int) (Points, error) {
	var positions []pandora.CartesianVector
	var cellSizes []float64
	for _, layer := range hits.Pseudolayers() {
		if layer < startLayer || layer > endLayer {
			continue
		}
		layerHits := hits.Layer(layer)
		var sum pandora.CartesianVector
		var sumCellSize float64
		for _, h := range layerHits {
			sum = sum.Add(h.Position)
			a, b := h.Geometry.PlanarExtent()
			sumCellSize += (a + b) / 2
		}
		n := float64(len(layerHits))
		positions = append(positions, sum.Scale(1/n))
		cellSizes = append(cellSizes, sumCellSize/n)
	}
	return NewPoints(positions, cellSizes)
}

// Cluster fits a cluster's hits restricted to the pseudolayer range
// [startLayer, endLayer] (spec.md §4.3's fitStart/fitEnd/fitLayers
// family). When the range covers every occupied pseudolayer, the result is
// also cached on the cluster as its fit-to-all-hits result.
func Cluster(c *pandora.Cluster, startLayer, endLayer int) (*Result, error) {
	pts, err := pointsFromLayers(c.Hits(), startLayer, endLayer)
	if err != nil {
		return nil, err
	}
	result, err := Fit(pts)
	if err != nil {
		return nil, err
	}
	layers := c.Hits().Pseudolayers()
	if startLayer <= layers[0] && endLayer >= layers[len(layers)-1] {
		c.SetFit(&pandora.FitResult{
			Direction:        result.Direction,
			Intercept:        result.Intercept,
			ChiSquaredPerDOF: result.ChiSquaredPerDOF,
			RMS:              result.RMS,
			RadialCosine:     result.RadialCosine,
		})
	}
	return result, nil
}

// FullCluster fits every hit in c, spanning its entire pseudolayer range.
func FullCluster(c *pandora.Cluster) (*Result, error) {
	layers := c.Hits().Pseudolayers()
	if len(layers) == 0 {
		return nil, pandora.NewStatusError(pandora.StatusInvalidParameter, "cluster has no hits to fit")
	}
	return Cluster(c, layers[0], layers[len(layers)-1])
}
