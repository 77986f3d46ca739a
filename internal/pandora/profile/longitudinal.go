package profile

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hep-reco/pandora/internal/pandora"
)

const (
	longitudinalBins    = 100
	longitudinalDeltaX0 = 0.5
)

// LongitudinalResult is the outcome of comparing an observed longitudinal
// energy profile against the expected electromagnetic shower shape
// (spec.md §4.5).
type LongitudinalResult struct {
	Observed  [longitudinalBins]float64
	Expected  [longitudinalBins]float64
	BestOffsetBins int
	Discrepancy    float64 // summed |observed-expected| at the best offset
}

// expectedProfile samples a Gamma-distributed longitudinal energy density
// at the centre of each bin, matching spec.md §4.5's
// a = 1.25 + 0.5*ln(E/0.08 GeV) shape parameterisation of the EM shower
// maximum. b is fixed at 0.5 per X0, the same scale the original
// longitudinal-profile tables use.
func expectedProfile(energyGeV float64) [longitudinalBins]float64 {
	a := 1.25 + 0.5*math.Log(energyGeV/0.08)
	if a < 0.5 {
		a = 0.5
	}
	g := distuv.Gamma{Alpha: a, Beta: 0.5}

	var out [longitudinalBins]float64
	var sum float64
	for i := 0; i < longitudinalBins; i++ {
		t := (float64(i) + 0.5) * longitudinalDeltaX0
		out[i] = g.Prob(t)
		sum += out[i]
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// observedProfile bins hits by radiation-length depth from the shower
// start, normalized to a fraction of total energy the same way
// expectedProfile is normalized, so the two are directly comparable.
func observedProfile(hits []*pandora.CaloHit, showerStartX0 float64) [longitudinalBins]float64 {
	var out [longitudinalBins]float64
	var total float64
	for _, h := range hits {
		depth := h.RadiationFromIP - showerStartX0
		if depth < 0 {
			continue
		}
		bin := int(depth / longitudinalDeltaX0)
		if bin < 0 || bin >= longitudinalBins {
			continue
		}
		e := h.ElectromagneticEnergy + h.HadronicEnergy
		out[bin] += e
		total += e
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

// CompareLongitudinal implements spec.md §4.5's sliding-offset comparison:
// the observed profile is compared against the expected Gamma-shaped
// profile at a range of bin offsets, and the offset with the lowest
// summed absolute discrepancy is reported. A candidate offset's summation
// stops early, and that offset is dropped, once its running discrepancy
// exceeds the best found so far by more than slack (spec.md §9's
// early-exit resolution); the remaining offsets are still tried.
func CompareLongitudinal(hits []*pandora.CaloHit, totalEnergyGeV, showerStartX0, slack float64) *LongitudinalResult {
	expected := expectedProfile(totalEnergyGeV)
	observed := observedProfile(hits, showerStartX0)

	bestOffset := 0
	bestDiscrepancy := math.Inf(1)
	maxOffset := longitudinalBins / 4
	for offset := -maxOffset; offset <= maxOffset; offset++ {
		discrepancy := 0.0
		exceeded := false
		for i := 0; i < longitudinalBins; i++ {
			j := i + offset
			var exp float64
			if j >= 0 && j < longitudinalBins {
				exp = expected[j]
			}
			discrepancy += math.Abs(observed[i] - exp)
			if discrepancy > bestDiscrepancy+slack {
				exceeded = true
				break
			}
		}
		if exceeded {
			continue
		}
		if discrepancy < bestDiscrepancy {
			bestDiscrepancy = discrepancy
			bestOffset = offset
		}
	}

	return &LongitudinalResult{
		Observed:       observed,
		Expected:       expected,
		BestOffsetBins: bestOffset,
		Discrepancy:    bestDiscrepancy,
	}
}
