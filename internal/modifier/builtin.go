package modifier

import (
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
)

const (
	IdentityName     = "Identity"
	EnergyOffsetName = "EnergyOffset"
	EnergyScaleName  = "EnergyScale"
)

func init() {
	Register(IdentityName, newIdentity)
	Register(EnergyOffsetName, newEnergyOffset)
	Register(EnergyScaleName, newEnergyScale)
}

/*──────── Identity ───────*/

// Identity leaves every record untouched.
type Identity struct{}

var noop = CorrectorFunc(func(*electron.Electron) error { return nil })

func (Identity) ForEvent(*event.Event, event.Conditions) (Corrector, error) { return noop, nil }

func newIdentity(Settings, *event.Declarations) (Modifier, error) { return Identity{}, nil }

/*──────── EnergyOffset ───────*/

// EnergyOffset shifts the corrected energy by a fixed amount.
type EnergyOffset struct {
	Offset float64
}

func (m EnergyOffset) ForEvent(*event.Event, event.Conditions) (Corrector, error) {
	return CorrectorFunc(func(ele *electron.Electron) error {
		ele.Energy += m.Offset
		return nil
	}), nil
}

func newEnergyOffset(s Settings, _ *event.Declarations) (Modifier, error) {
	off, err := s.RequireFloat64("offset")
	if err != nil {
		return nil, err
	}
	return EnergyOffset{Offset: off}, nil
}

/*──────── EnergyScale ───────*/

// EnergyScale sets Energy = RawEnergy * k, with k looked up per region in
// the conditions store and optionally shifted by rho-coefficient * rho.
// Records without a positive raw energy are left as they are.
type EnergyScale struct {
	BarrelLabel    string
	EndcapLabel    string
	SigmaLabel     string     // optional: EnergyError = Energy * sigma
	RhoTag         *event.Tag // optional per-event energy density
	RhoCoefficient float64
	ScaleMomentum  bool
}

type scaleCorrector struct {
	kEB, kEE float64
	sigma    float64
	hasSigma bool
	scaleP   bool
}

func (m EnergyScale) ForEvent(ev *event.Event, cond event.Conditions) (Corrector, error) {
	if cond == nil {
		return nil, fmt.Errorf("%s: no conditions available", EnergyScaleName)
	}
	c := &scaleCorrector{scaleP: m.ScaleMomentum}
	var err error
	if c.kEB, err = cond.Lookup(m.BarrelLabel); err != nil {
		return nil, err
	}
	if c.kEE, err = cond.Lookup(m.EndcapLabel); err != nil {
		return nil, err
	}
	if m.SigmaLabel != "" {
		if c.sigma, err = cond.Lookup(m.SigmaLabel); err != nil {
			return nil, err
		}
		c.hasSigma = true
	}
	if m.RhoTag != nil {
		rho, err := ev.Scalar(*m.RhoTag)
		if err != nil {
			return nil, err
		}
		c.kEB += m.RhoCoefficient * rho
		c.kEE += m.RhoCoefficient * rho
	}
	return c, nil
}

func (c *scaleCorrector) Modify(ele *electron.Electron) error {
	if ele.RawEnergy <= 0 {
		return nil
	}
	k := c.kEE
	if ele.IsBarrel() {
		k = c.kEB
	}
	old := ele.Energy
	ele.Energy = ele.RawEnergy * k
	if c.hasSigma {
		ele.EnergyError = ele.Energy * c.sigma
	}
	if c.scaleP && old > 0 {
		r := ele.Energy / old
		ele.P *= r
		ele.Pt *= r
	}
	return nil
}

func newEnergyScale(s Settings, decl *event.Declarations) (Modifier, error) {
	m := EnergyScale{
		SigmaLabel:     s.String("sigma-label"),
		RhoCoefficient: s.Float64("rho-coefficient"),
		ScaleMomentum:  s.Bool("scale-momentum"),
	}
	var err error
	if m.BarrelLabel, err = s.RequireString("barrel-label"); err != nil {
		return nil, err
	}
	if m.EndcapLabel, err = s.RequireString("endcap-label"); err != nil {
		return nil, err
	}
	if raw := s.String("rho-tag"); raw != "" {
		tag, err := event.ParseTag(raw)
		if err != nil {
			return nil, err
		}
		m.RhoTag = &tag
		if decl != nil {
			decl.ConsumesScalar(tag)
		}
	}
	return m, nil
}
