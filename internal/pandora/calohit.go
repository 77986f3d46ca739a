package pandora

// HitType distinguishes the calorimeter subsystem a hit was recorded in.
type HitType int

const (
	HitTypeECAL HitType = iota
	HitTypeHCAL
	HitTypeMuon
)

// Region distinguishes barrel vs endcap geometry for a hit.
type Region int

const (
	RegionBarrel Region = iota
	RegionEndcap
)

// CellGeometryKind tags which variant of CellGeometry is populated.
// Replaces the inheritance-based RectangularCaloHit/PointingCaloHit split
// (spec.md §9) with a tagged variant: operations on cell size dispatch on
// this tag rather than through a virtual call, keeping CaloHit's size
// small and colocating data with code.
type CellGeometryKind int

const (
	CellGeometryRectangular CellGeometryKind = iota
	CellGeometryPointing
)

// CellGeometry is the tagged union of the two cell-shape descriptions a
// CaloHit may carry. Exactly one of the two payloads is meaningful,
// selected by Kind.
type CellGeometry struct {
	Kind CellGeometryKind

	// Rectangular payload: a u,v cell extent with a cell thickness.
	CellSizeU float64
	CellSizeV float64

	// Pointing payload: angular extents with a cell thickness.
	CellSizeEta float64
	CellSizePhi float64

	CellThickness float64
}

// NewRectangularCellGeometry builds a Rectangular CellGeometry.
func NewRectangularCellGeometry(u, v, thickness float64) CellGeometry {
	return CellGeometry{Kind: CellGeometryRectangular, CellSizeU: u, CellSizeV: v, CellThickness: thickness}
}

// NewPointingCellGeometry builds a Pointing CellGeometry.
func NewPointingCellGeometry(eta, phi, thickness float64) CellGeometry {
	return CellGeometry{Kind: CellGeometryPointing, CellSizeEta: eta, CellSizePhi: phi, CellThickness: thickness}
}

// PlanarExtent returns the two in-plane cell dimensions regardless of
// which CellGeometry variant is populated, used by the cluster fit (§4.3)
// and the per-hit property calculator (§4.6) to get a scalar cell size
// without caring which geometry kind backs the hit.
func (g CellGeometry) PlanarExtent() (a, b float64) {
	if g.Kind == CellGeometryPointing {
		return g.CellSizeEta, g.CellSizePhi
	}
	return g.CellSizeU, g.CellSizeV
}

// CaloHit represents one cell deposition (spec.md §3). Hits are created
// only by the framework during ingest and never destroyed by clients;
// their lifetime is the event.
type CaloHit struct {
	id Identifier

	Position          CartesianVector
	ExpectedDirection CartesianVector
	CellNormal        CartesianVector
	Geometry          CellGeometry

	RadiationLengths     float64 // within the cell
	InteractionLengths   float64 // within the cell
	RadiationFromIP      float64
	InteractionFromIP    float64

	Time float64

	InputEnergy    float64
	MIPEnergy      float64
	ElectromagneticEnergy float64
	HadronicEnergy float64

	IsDigital bool
	Type      HitType
	Region    Region

	SourceLayer       int
	IsOuterSamplingLayer bool
	Pseudolayer       int // assigned later, during ingest

	DensityWeight    float64 // computed later
	SurroundingEnergy float64 // computed later
	IsPossibleMIP    bool
	IsIsolated       bool

	available bool

	mcParticle *MCParticle // optional back-reference
	address    Address     // back to the embedding application
}

// NewCaloHit constructs a CaloHit owned by the given embedding-application
// address, available by default (spec.md §3: "availability flag").
func NewCaloHit(id Identifier, address Address) *CaloHit {
	return &CaloHit{id: id, address: address, available: true}
}

// ID returns the hit's framework-assigned identifier.
func (h *CaloHit) ID() Identifier { return h.id }

// Address returns the opaque back-reference to the embedding application.
func (h *CaloHit) Address() Address { return h.address }

// MCParticle returns the hit's MC-truth back-reference, or nil.
func (h *CaloHit) MCParticle() *MCParticle { return h.mcParticle }

// SetMCParticle sets the hit's MC-truth back-reference. Set once, during
// ingest (spec.md §5 mutation discipline).
func (h *CaloHit) SetMCParticle(mc *MCParticle) { h.mcParticle = mc }

// FragmentReplacement captures a split or merge: an (old, new) pair of
// hits whose total weight is conserved (spec.md §3 "Fragmented hits",
// §8 "Total weight conservation"). Recluster frames (recluster.go) record
// these so concurrent speculative views can be reconciled.
type FragmentReplacement struct {
	Old []*CaloHit
	New []*CaloHit
}

// hitWeight is the fraction of the parent hit's energy a fragment carries;
// fragments share the parent's Address so splits/merges can be undone
// without losing the link to the embedding application's original cell.
type hitWeight struct {
	hit    *CaloHit
	weight float64
}

// SplitHit produces two daughter hits from parent, weighted by two positive
// fractions that are normalised by their sum, so the daughters' weights
// add up to the parent's (spec.md §3). The daughters share the parent's
// Address, MC back-reference and geometry; only the energies and the
// newly-minted Identifier differ.
func SplitHit(parent *CaloHit, nextID func() Identifier, fractionA, fractionB float64) (*CaloHit, *CaloHit, error) {
	if fractionA <= 0 || fractionB <= 0 {
		return nil, nil, NewStatusErrorf(StatusInvalidParameter, "split fractions must be positive, got %v/%v", fractionA, fractionB)
	}
	total := fractionA + fractionB
	a := cloneHitWeighted(parent, nextID(), fractionA/total)
	b := cloneHitWeighted(parent, nextID(), fractionB/total)
	return a, b, nil
}

// MergeHits combines daughters that share a parent Address into a single
// hit carrying the summed weight. Returns an error if the daughters do not
// share an Address (spec.md §3: "two daughters with the same parent
// address may be merged").
func MergeHits(daughters []*CaloHit, nextID func() Identifier) (*CaloHit, error) {
	if len(daughters) == 0 {
		return nil, NewStatusError(StatusInvalidParameter, "no daughters to merge")
	}
	addr := daughters[0].address
	for _, d := range daughters[1:] {
		if d.address != addr {
			return nil, NewStatusError(StatusNotAllowed, "cannot merge hits with different parent addresses")
		}
	}
	var sumInput, sumMIP, sumEM, sumHad float64
	for _, d := range daughters {
		sumInput += d.InputEnergy
		sumMIP += d.MIPEnergy
		sumEM += d.ElectromagneticEnergy
		sumHad += d.HadronicEnergy
	}
	merged := cloneHitWeighted(daughters[0], nextID(), 1.0)
	merged.InputEnergy = sumInput
	merged.MIPEnergy = sumMIP
	merged.ElectromagneticEnergy = sumEM
	merged.HadronicEnergy = sumHad
	return merged, nil
}

func cloneHitWeighted(parent *CaloHit, id Identifier, fraction float64) *CaloHit {
	clone := *parent
	clone.id = id
	clone.InputEnergy = parent.InputEnergy * fraction
	clone.MIPEnergy = parent.MIPEnergy * fraction
	clone.ElectromagneticEnergy = parent.ElectromagneticEnergy * fraction
	clone.HadronicEnergy = parent.HadronicEnergy * fraction
	clone.available = true
	return &clone
}
