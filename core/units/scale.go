// Copyright (c) 2018-2022 California Institute of Technology (“Caltech”). U.S.
// Government sponsorship acknowledged.
// All rights reserved.
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
// * Redistributions of source code must retain the above copyright notice, this
//   list of conditions and the following disclaimer.
// * Redistributions in binary form must reproduce the above copyright notice,
//   this list of conditions and the following disclaimer in the documentation
//   and/or other materials provided with the distribution.
// * Neither the name of Caltech nor its operating division, the Jet Propulsion
//   Laboratory, nor the names of its contributors may be used to endorse or
//   promote products derived from this software without specific prior written
//   permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT OWNER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Scale values and unit conversion for electron microscope calibrations.
// Diffraction scales live in reciprocal length (1/Å, 1/nm) or as scattering
// angles (rad, mrad, deg), image scales in real-space length per pixel.
// Converting between reciprocal length and angle goes through the
// relativistic electron wavelength, so it needs the acceleration voltage.
package units

import (
	"fmt"
	"math"
)

type Unit int

const (
	InverseAngstrom Unit = iota
	InverseNanometre
	Angstrom
	Nanometre
	Micrometre
	NanometrePerPixel
	Radian
	Milliradian
	Degree
)

type unitFamily int

const (
	familyReciprocal unitFamily = iota
	familyRealSpace
	familyAngular
)

var unitNames = map[Unit]string{
	InverseAngstrom:   "1/Å",
	InverseNanometre:  "1/nm",
	Angstrom:          "Å",
	Nanometre:         "nm",
	Micrometre:        "µm",
	NanometrePerPixel: "nm/px",
	Radian:            "rad",
	Milliradian:       "mrad",
	Degree:            "deg",
}

var unitFamilies = map[Unit]unitFamily{
	InverseAngstrom:   familyReciprocal,
	InverseNanometre:  familyReciprocal,
	Angstrom:          familyRealSpace,
	Nanometre:         familyRealSpace,
	Micrometre:        familyRealSpace,
	NanometrePerPixel: familyRealSpace,
	Radian:            familyAngular,
	Milliradian:       familyAngular,
	Degree:            familyAngular,
}

// Factors to the canonical unit of each family: 1/Å for reciprocal space,
// nm for real space, rad for angles.
var unitToCanonical = map[Unit]float64{
	InverseAngstrom:   1,
	InverseNanometre:  0.1,
	Angstrom:          0.1,
	Nanometre:         1,
	Micrometre:        1000,
	NanometrePerPixel: 1,
	Radian:            1,
	Milliradian:       1e-3,
	Degree:            math.Pi / 180,
}

func (u Unit) String() string {
	name, ok := unitNames[u]
	if !ok {
		return fmt.Sprintf("Unit(%v)", int(u))
	}
	return name
}

// ParseUnit - parses a unit name as it appears in calibration table column
// headers. Accepts the ASCII spellings too, spreadsheets mangle Å and µ.
func ParseUnit(name string) (Unit, error) {
	switch name {
	case "1/Å", "1/A":
		return InverseAngstrom, nil
	case "1/nm":
		return InverseNanometre, nil
	case "Å", "A":
		return Angstrom, nil
	case "nm":
		return Nanometre, nil
	case "µm", "um":
		return Micrometre, nil
	case "nm/px":
		return NanometrePerPixel, nil
	case "rad":
		return Radian, nil
	case "mrad":
		return Milliradian, nil
	case "deg", "°":
		return Degree, nil
	}
	return InverseAngstrom, fmt.Errorf("Unrecognised unit: \"%v\"", name)
}

// MissingContextError - returned when a conversion needs the acceleration
// voltage (reciprocal length to angle or back) and none was supplied
type MissingContextError struct {
	From Unit
	To   Unit
	Need string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("Cannot convert %v to %v: %v required", e.From, e.To, e.Need)
}

// Scale - a calibration scale: so many units per pixel (or per step).
// Immutable, Convert returns a new Scale.
type Scale struct {
	Value float64
	Unit  Unit
}

func (s Scale) String() string {
	return fmt.Sprintf("%v %v", s.Value, s.Unit)
}

// Convert - converts to another unit. accelerationVoltage is in volts and
// only consulted when crossing between reciprocal length and angle; pass
// NaN when it is not known.
func (s Scale) Convert(to Unit, accelerationVoltage float64) (Scale, error) {
	fromFamily := unitFamilies[s.Unit]
	toFamily := unitFamilies[to]

	if fromFamily == toFamily {
		canonical := s.Value * unitToCanonical[s.Unit]
		return Scale{Value: canonical / unitToCanonical[to], Unit: to}, nil
	}

	// Reciprocal length <-> scattering angle via the electron wavelength
	if fromFamily == familyReciprocal && toFamily == familyAngular {
		if math.IsNaN(accelerationVoltage) {
			return Scale{}, &MissingContextError{From: s.Unit, To: to, Need: "acceleration voltage"}
		}
		perAngstrom := s.Value * unitToCanonical[s.Unit]
		radians := perAngstrom * ElectronWavelength(accelerationVoltage)
		return Scale{Value: radians / unitToCanonical[to], Unit: to}, nil
	}

	if fromFamily == familyAngular && toFamily == familyReciprocal {
		if math.IsNaN(accelerationVoltage) {
			return Scale{}, &MissingContextError{From: s.Unit, To: to, Need: "acceleration voltage"}
		}
		radians := s.Value * unitToCanonical[s.Unit]
		perAngstrom := radians / ElectronWavelength(accelerationVoltage)
		return Scale{Value: perAngstrom / unitToCanonical[to], Unit: to}, nil
	}

	return Scale{}, fmt.Errorf("Cannot convert %v to %v", s.Unit, to)
}

// Physical constants (SI)
const (
	electronRestMass = 9.1093837015e-31
	elementaryCharge = 1.60217662e-19
	planckConstant   = 6.62607004e-34
	speedOfLight     = 299792458.0
)

// ElectronWavelength - relativistic electron wavelength in Å for the given
// acceleration voltage in volts. At 200 kV this is about 0.0251 Å.
func ElectronWavelength(accelerationVoltage float64) float64 {
	energy := elementaryCharge * accelerationVoltage
	momentum := math.Sqrt(2 * electronRestMass * energy * (1 + energy/(2*electronRestMass*speedOfLight*speedOfLight)))
	return planckConstant / momentum * 1e10
}

// CalculateCameraLength - inverts scale = pixelSize / (wavelength * cameralength)
// to recover the effective cameralength in cm from a measured diffraction
// scale. pixelSize is the physical detector pixel pitch in metres.
func CalculateCameraLength(scale Scale, accelerationVoltage float64, pixelSize float64) (float64, error) {
	if math.IsNaN(accelerationVoltage) {
		return math.NaN(), &MissingContextError{From: scale.Unit, To: scale.Unit, Need: "acceleration voltage"}
	}

	perAngstrom, err := scale.Convert(InverseAngstrom, accelerationVoltage)
	if err != nil {
		return math.NaN(), err
	}

	if perAngstrom.Value == 0 {
		return math.NaN(), fmt.Errorf("Cannot calculate cameralength from zero scale")
	}

	metres := pixelSize / (ElectronWavelength(accelerationVoltage) * perAngstrom.Value)
	return metres * 100, nil
}
