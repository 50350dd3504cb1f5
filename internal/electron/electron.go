// Package electron holds the reconstructed electron record and the ordered
// collections the regression stage reads and publishes.
package electron

import "math"

// barrelEtaMax separates the ECAL barrel (EB) from the endcaps (EE).
const barrelEtaMax = 1.479

// Electron is one reconstructed electron candidate. Records are values:
// copying an Electron yields an independent record.
type Electron struct {
	RawEnergy   float64 `json:"raw_energy"`   // supercluster raw energy
	Energy      float64 `json:"energy"`       // corrected ECAL energy
	EnergyError float64 `json:"energy_error"` // uncertainty on Energy
	TrackChi2   float64 `json:"track_chi2"`   // normalised chi2 of the GSF track
	P           float64 `json:"p"`
	Pt          float64 `json:"pt"`
	Eta         float64 `json:"eta"`
	Phi         float64 `json:"phi"`
	Charge      int     `json:"charge"`
}

// IsBarrel reports whether the electron's supercluster sits in the barrel.
func (e Electron) IsBarrel() bool { return math.Abs(e.Eta) < barrelEtaMax }

// Collection is an ordered sequence of electrons. Order mirrors the
// reconstruction order and is significant.
type Collection []Electron

// Clone returns an independent copy of c. A nil collection clones to an
// empty, non-nil one so encoders emit [] rather than null.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}
