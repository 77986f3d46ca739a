package pandora

import "fmt"

// GeometryParams describes the detector geometry a ReconstructionContext
// is bound to: a subset of spec.md §4.9's geometry facts, carried and
// validated with the context. The fit, profile and hitprops kernels do not
// read it. Modelled on the teacher's
// BackgroundConfig builder (internal/lidar/config.go): a plain struct with
// a Default constructor, With-style setters, and a Validate gate.
type GeometryParams struct {
	RadiationLengthCm   float64 // X0, centimetres, for longitudinal profile binning
	MoliereRadiusCm     float64 // RM, centimetres, for transverse profile binning
	AdditionalPlanarX0  float64 // sampling-layer-to-sampling-layer contribution, in X0
	CoilInnerRadiusCm   float64
	MainTrackerRadiusCm float64
}

// DefaultGeometryParams returns parameters typical of a sampling
// electromagnetic calorimeter.
func DefaultGeometryParams() *GeometryParams {
	return &GeometryParams{
		RadiationLengthCm:   0.56,
		MoliereRadiusCm:     2.0,
		AdditionalPlanarX0:  1.0,
		CoilInnerRadiusCm:   300.0,
		MainTrackerRadiusCm: 150.0,
	}
}

// WithRadiationLength sets RadiationLengthCm and returns g for chaining.
func (g *GeometryParams) WithRadiationLength(x0Cm float64) *GeometryParams {
	g.RadiationLengthCm = x0Cm
	return g
}

// WithMoliereRadius sets MoliereRadiusCm and returns g for chaining.
func (g *GeometryParams) WithMoliereRadius(rmCm float64) *GeometryParams {
	g.MoliereRadiusCm = rmCm
	return g
}

// Validate checks that every geometry parameter is physically sane.
func (g *GeometryParams) Validate() error {
	if g.RadiationLengthCm <= 0 {
		return fmt.Errorf("RadiationLengthCm must be positive, got %f", g.RadiationLengthCm)
	}
	if g.MoliereRadiusCm <= 0 {
		return fmt.Errorf("MoliereRadiusCm must be positive, got %f", g.MoliereRadiusCm)
	}
	if g.AdditionalPlanarX0 < 0 {
		return fmt.Errorf("AdditionalPlanarX0 must be non-negative, got %f", g.AdditionalPlanarX0)
	}
	if g.CoilInnerRadiusCm < 0 {
		return fmt.Errorf("CoilInnerRadiusCm must be non-negative, got %f", g.CoilInnerRadiusCm)
	}
	if g.MainTrackerRadiusCm < 0 {
		return fmt.Errorf("MainTrackerRadiusCm must be non-negative, got %f", g.MainTrackerRadiusCm)
	}
	return nil
}

// CutParams holds the tunable thresholds the per-hit property calculator
// and the shower-profile kernels apply (spec.md §4.6, §4.5).
type CutParams struct {
	MIPEquivalentCutGeV float64
	IsolationRadiusCm   float64
	IsolationMaxHits    int
	LowPulseFractionCut float64 // transverse peak-finder threshold, fraction of the cluster's total energy
	LongitudinalSlackX0 float64 // sliding-offset comparison early-exit slack on the summed fractional discrepancy (dimensionless)

	// MaxSeparationCm is the coarse Euclidean pre-filter applied before the
	// density-weight, surrounding-energy and MIP-crowding calculations
	// (CaloHitHelper.cc: m_caloHitMaxSeparation).
	MaxSeparationCm float64
	// IsolationMaxSeparationCm is the same pre-filter for isolation
	// (CaloHitHelper.cc: m_isolationCaloHitMaxSeparation).
	IsolationMaxSeparationCm float64

	// DensityWeightNLayers is the ±N pseudolayer window the density-weight
	// sum is accumulated over (CaloHitHelper.cc: m_densityWeightNLayers).
	DensityWeightNLayers int
	// IsolationNLayers is the ±N pseudolayer window the isolation count is
	// accumulated over (CaloHitHelper.cc: m_isolationNLayers).
	IsolationNLayers int

	// SurroundingEnergyCellFactor scales the per-axis cell-box gate applied
	// by SurroundingEnergy (CaloHitHelper.cc: the literal 1.5 in
	// GetSurroundingEnergyContribution).
	SurroundingEnergyCellFactor float64
	// MIPCrowdingCellFactor scales the per-axis cell-box gate applied by the
	// MIP-crowding count (CaloHitHelper.cc: m_mipNCellsForNearbyHit + 0.5).
	MIPCrowdingCellFactor float64
	// MIPMaxNearbyHits bounds the same-pseudolayer MIP-crowding count a hit
	// may have and still be flagged a possible MIP (CaloHitHelper.cc:
	// m_mipMaxNearbyHits).
	MIPMaxNearbyHits int
}

// DefaultCutParams returns cut thresholds typical of a PFO reconstruction
// pass over a sampling calorimeter.
func DefaultCutParams() *CutParams {
	return &CutParams{
		MIPEquivalentCutGeV: 0.0015,
		IsolationRadiusCm:   50.0,
		IsolationMaxHits:    2,
		LowPulseFractionCut: 0.025,
		LongitudinalSlackX0: 0.1,

		MaxSeparationCm:          100.0,
		IsolationMaxSeparationCm: 1000.0,

		DensityWeightNLayers: 2,
		IsolationNLayers:     2,

		SurroundingEnergyCellFactor: 1.5,
		MIPCrowdingCellFactor:       2.5,
		MIPMaxNearbyHits:            1,
	}
}

// WithIsolation sets the isolation radius and max-neighbour cut and
// returns c for chaining.
func (c *CutParams) WithIsolation(radiusCm float64, maxHits int) *CutParams {
	c.IsolationRadiusCm = radiusCm
	c.IsolationMaxHits = maxHits
	return c
}

// Validate checks that every cut threshold is within an acceptable range.
func (c *CutParams) Validate() error {
	if c.MIPEquivalentCutGeV <= 0 {
		return fmt.Errorf("MIPEquivalentCutGeV must be positive, got %f", c.MIPEquivalentCutGeV)
	}
	if c.IsolationRadiusCm <= 0 {
		return fmt.Errorf("IsolationRadiusCm must be positive, got %f", c.IsolationRadiusCm)
	}
	if c.IsolationMaxHits < 0 {
		return fmt.Errorf("IsolationMaxHits must be non-negative, got %d", c.IsolationMaxHits)
	}
	if c.LowPulseFractionCut < 0 || c.LowPulseFractionCut > 1 {
		return fmt.Errorf("LowPulseFractionCut must be in [0, 1], got %f", c.LowPulseFractionCut)
	}
	if c.LongitudinalSlackX0 < 0 {
		return fmt.Errorf("LongitudinalSlackX0 must be non-negative, got %f", c.LongitudinalSlackX0)
	}
	if c.MaxSeparationCm <= 0 {
		return fmt.Errorf("MaxSeparationCm must be positive, got %f", c.MaxSeparationCm)
	}
	if c.IsolationMaxSeparationCm <= 0 {
		return fmt.Errorf("IsolationMaxSeparationCm must be positive, got %f", c.IsolationMaxSeparationCm)
	}
	if c.DensityWeightNLayers < 0 {
		return fmt.Errorf("DensityWeightNLayers must be non-negative, got %d", c.DensityWeightNLayers)
	}
	if c.IsolationNLayers < 0 {
		return fmt.Errorf("IsolationNLayers must be non-negative, got %d", c.IsolationNLayers)
	}
	if c.SurroundingEnergyCellFactor <= 0 {
		return fmt.Errorf("SurroundingEnergyCellFactor must be positive, got %f", c.SurroundingEnergyCellFactor)
	}
	if c.MIPCrowdingCellFactor <= 0 {
		return fmt.Errorf("MIPCrowdingCellFactor must be positive, got %f", c.MIPCrowdingCellFactor)
	}
	if c.MIPMaxNearbyHits < 0 {
		return fmt.Errorf("MIPMaxNearbyHits must be non-negative, got %d", c.MIPMaxNearbyHits)
	}
	return nil
}

// ReconstructionContext is the explicit, passed-by-reference replacement
// for the original framework's process-wide singleton table (spec.md §9
// redesign note): every algorithm and kernel that needs geometry, cuts or
// particle-identification predicates takes one of these rather than
// reaching into global state.
type ReconstructionContext struct {
	Geometry *GeometryParams
	Cuts     *CutParams

	IsPhoton   func(*Cluster) bool
	IsElectron func(*Cluster) bool
	IsMuon     func(*Track) bool
}

// NewReconstructionContext builds a context with the supplied geometry and
// cuts and no particle-identification predicates bound; callers that need
// IsPhoton/IsElectron/IsMuon must assign them before use.
func NewReconstructionContext(geometry *GeometryParams, cuts *CutParams) *ReconstructionContext {
	return &ReconstructionContext{Geometry: geometry, Cuts: cuts}
}

// Validate checks that both the geometry and cut parameter blocks are
// internally consistent.
func (ctx *ReconstructionContext) Validate() error {
	if ctx.Geometry == nil {
		return fmt.Errorf("geometry parameters not set")
	}
	if ctx.Cuts == nil {
		return fmt.Errorf("cut parameters not set")
	}
	if err := ctx.Geometry.Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	if err := ctx.Cuts.Validate(); err != nil {
		return fmt.Errorf("cuts: %w", err)
	}
	return nil
}
