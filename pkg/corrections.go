package recon

import "math"

const (
	gevToMeV = 1000.
	cmToMM   = 10.

	// beam energy used for the non-linearity fit when the module has none
	defaultNonLinRefEnergy = 0.55 // GeV
	maxNonLinCorrection    = 0.6

	deadModuleDistance = 1.5 // module sizes
)

// shower depth parameters (cm, GeV) per material
var (
	showerZ0 = map[ModuleType]float64{LeadGlass: 2.67, Crystal: 0.86}
	showerE0 = map[ModuleType]float64{LeadGlass: 2.84e-3, Crystal: 1.1e-3}
)

func (e *ClusterEngine) weight(energy, total float64) float64 {
	if energy <= 0 || total <= 0 {
		return 0
	}
	if e.options.UseDoubleExpWeight {
		return DoubleExpWeight(energy/total, e.options.DoubleExpFreeWeight, e.options.CutOffThreshold)
	}
	return LogWeight(energy/total, e.options.WeightFreePar)
}

// LogWeight is the logarithmic centroid weight of a module carrying the
// fraction y of the cluster energy.
func LogWeight(y, freePar float64) float64 {
	if y <= 0 {
		return 0
	}
	return math.Max(0, freePar+math.Log(y))
}

// DoubleExpWeight weights a module by the inverse of the two component
// lateral profile F(x) = (1-a)exp(-3x) + a exp(-2x/3), so that the module
// holding all the energy weighs 1 and modules below cut weigh 0.
func DoubleExpWeight(y, a, cut float64) float64 {
	if y <= 0 {
		return 0
	}
	xCut := profileInverse(cut, a)
	if xCut == 0 {
		return 0
	}
	norm := 1 - profileInverse(1, a)/xCut
	if norm <= 0 {
		return 0
	}
	return math.Max(0, 1-profileInverse(y, a)/xCut) / norm
}

func profile(x, a float64) float64 {
	return (1-a)*math.Exp(-3*x) + a*math.Exp(-2*x/3)
}

// profileInverse solves profile(x) = y by bisection on [-10, 10].
func profileInverse(y, a float64) float64 {
	lo, hi := -10., 10.
	for hi-lo > 1e-6 {
		mid := 0.5 * (lo + hi)
		if profile(mid, a) > y {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// ShowerDepth is the depth of the shower maximum in cm, measured from the
// crystal front face.
func ShowerDepth(t ModuleType, energy, glassOffset float64) float64 {
	if energy <= 0 {
		return 0
	}
	z := showerZ0[t] * math.Log(1+energy/showerE0[t])
	if t == LeadGlass {
		z += glassOffset
	}
	return z
}

func (e *ClusterEngine) correctNonLinearity(c *Cluster) {
	c.Energy = NonLinearityCorrection(c.Energy, e.geometry.Calib(c.CenterID))
}

// NonLinearityCorrection scales an energy (GeV) by the center module
// response. Corrections of 60% or more are not applied.
func NonLinearityCorrection(energy float64, cc CalibConst) float64 {
	ref := defaultNonLinRefEnergy
	if cc.CalibEnergy > 0 {
		ref = cc.CalibEnergy / gevToMeV
	}
	corr := cc.NonLinearFactor * (energy - ref)
	if math.Abs(corr) < maxNonLinCorrection {
		return energy / (1 + corr)
	}
	return energy
}

// EnergyResolution is the absolute energy resolution in GeV.
func EnergyResolution(energy float64, t ClusterType, center ModuleType) float64 {
	var res float64
	if center == Crystal {
		res = math.Sqrt(0.9*0.9*energy*energy + 2.5*2.5*energy + 1.0)
	} else {
		res = math.Sqrt(2.3*2.3*energy*energy + 5.4*5.4*energy)
	}
	res /= 100
	switch t {
	case TypeCrystalBoundary, TypeGlassBoundary:
		res *= 1.5
	case TypeTransition:
		if center == LeadGlass {
			res *= 0.8
		} else {
			res *= 1.25
		}
	}
	return res
}

// finalize tags a cluster and moves it to the output units and frame.
func (e *ClusterEngine) finalize(c *Cluster) {
	center, _ := e.geometry.Module(c.CenterID)
	if center.Type == Crystal {
		c.Flags.Set(FlagCrystal)
	} else {
		c.Flags.Set(FlagGlass)
	}
	for _, h := range c.Hits {
		if m, ok := e.geometry.Module(h.ID); ok && m.Type != center.Type {
			c.Flags.Set(FlagTransition)
			break
		}
	}
	if center.Boundary {
		if center.Type == Crystal {
			c.Flags.Set(FlagInnerBound)
		} else {
			c.Flags.Set(FlagOuterBound)
		}
	}
	for _, d := range e.dead {
		if math.Hypot(d.X-c.X, d.Y-c.Y)/d.SizeX < deadModuleDistance {
			c.Flags.Set(FlagDeadModule)
			break
		}
	}

	c.Type = clusterType(c.Flags)
	c.EnergyResolution = EnergyResolution(c.Energy, c.Type, center.Type)
	if e.options.DoShowerDepth {
		c.Z = ShowerDepth(center.Type, c.Energy, e.options.ZLGToPWO)
	}
	toLabFrame(c)
}

func clusterType(f ClusterFlag) ClusterType {
	switch {
	case f.Has(FlagTransition):
		return TypeTransition
	case f.Has(FlagInnerBound):
		return TypeCrystalBoundary
	case f.Has(FlagOuterBound):
		return TypeGlassBoundary
	case f.Has(FlagCrystal):
		return TypeCrystal
	default:
		return TypeGlass
	}
}

// toLabFrame converts GeV and cm to MeV and mm; the x axis is reversed.
func toLabFrame(c *Cluster) {
	c.Energy *= gevToMeV
	c.EnergyResolution *= gevToMeV
	c.CenterEnergy *= gevToMeV
	c.X *= -cmToMM
	c.Y *= cmToMM
	c.Z *= cmToMM
	for i := range c.Hits {
		c.Hits[i].Energy *= gevToMeV
		c.Hits[i].X *= -cmToMM
		c.Hits[i].Y *= cmToMM
	}
}
