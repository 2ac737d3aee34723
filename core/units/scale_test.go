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

package units

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const voltage200kV = 200000.0

func TestElectronWavelength(t *testing.T) {
	// Known value for a 200 kV instrument
	wavelength := ElectronWavelength(voltage200kV)
	if !scalar.EqualWithinRel(wavelength, 0.0250793, 1e-4) {
		t.Errorf("Wavelength at 200 kV: %v", wavelength)
	}

	// Higher voltage, shorter wavelength
	if ElectronWavelength(300000) >= wavelength {
		t.Errorf("Wavelength should shrink with voltage")
	}
}

func TestConvertWithinFamily(t *testing.T) {
	type conversion struct {
		from     Scale
		to       Unit
		expected float64
	}

	conversions := []conversion{
		{Scale{1, InverseNanometre}, InverseAngstrom, 0.1},
		{Scale{0.5, InverseAngstrom}, InverseNanometre, 5},
		{Scale{12, Angstrom}, Nanometre, 1.2},
		{Scale{2.5, Micrometre}, Nanometre, 2500},
		{Scale{1.5, NanometrePerPixel}, Angstrom, 15},
		{Scale{math.Pi, Radian}, Degree, 180},
		{Scale{2, Milliradian}, Radian, 0.002},
	}

	for _, c := range conversions {
		// No voltage needed within a family
		got, err := c.from.Convert(c.to, math.NaN())
		if err != nil {
			t.Errorf("Convert %v to %v: %v", c.from, c.to, err)
			continue
		}
		if !scalar.EqualWithinRel(got.Value, c.expected, 1e-9) {
			t.Errorf("Convert %v to %v: got %v, want %v", c.from, c.to, got.Value, c.expected)
		}
		if got.Unit != c.to {
			t.Errorf("Convert %v to %v: wrong unit %v", c.from, c.to, got.Unit)
		}
	}
}

func TestConvertReciprocalToAngle(t *testing.T) {
	// SAD pattern calibrated at 0.013535 1/Å on a 200 kV instrument
	scale := Scale{0.013535, InverseAngstrom}

	mrad, err := scale.Convert(Milliradian, voltage200kV)
	if err != nil {
		t.Fatalf("Convert to mrad: %v", err)
	}
	if !scalar.EqualWithinRel(mrad.Value, 0.339449, 1e-4) {
		t.Errorf("mrad: %v", mrad.Value)
	}

	deg, err := scale.Convert(Degree, voltage200kV)
	if err != nil {
		t.Fatalf("Convert to deg: %v", err)
	}
	if !scalar.EqualWithinRel(deg.Value, 0.019449, 1e-4) {
		t.Errorf("deg: %v", deg.Value)
	}

	// And back
	back, err := deg.Convert(InverseAngstrom, voltage200kV)
	if err != nil {
		t.Fatalf("Convert back: %v", err)
	}
	if !scalar.EqualWithinRel(back.Value, scale.Value, 1e-9) {
		t.Errorf("Round trip: %v != %v", back.Value, scale.Value)
	}
}

func TestConvertReciprocalToAngleMonotonic(t *testing.T) {
	// A larger reciprocal scale always means a larger scattering angle
	// at fixed voltage
	previous := 0.0
	for _, k := range []float64{0.001, 0.013535, 0.05, 0.2} {
		mrad, err := Scale{k, InverseAngstrom}.Convert(Milliradian, voltage200kV)
		if err != nil {
			t.Fatalf("Convert %v 1/Å to mrad: %v", k, err)
		}
		if mrad.Value <= previous {
			t.Errorf("Angle not increasing: %v 1/Å gave %v mrad after %v", k, mrad.Value, previous)
		}
		previous = mrad.Value
	}
}

func TestConvertMissingVoltage(t *testing.T) {
	scale := Scale{0.013535, InverseAngstrom}

	_, err := scale.Convert(Milliradian, math.NaN())
	if err == nil {
		t.Fatalf("Expected error converting to angle without voltage")
	}

	var missing *MissingContextError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingContextError, got: %v", err)
	}
	if missing.Need != "acceleration voltage" {
		t.Errorf("Wrong context: %v", missing.Need)
	}

	// Within-family conversion must still work without voltage
	_, err = scale.Convert(InverseNanometre, math.NaN())
	if err != nil {
		t.Errorf("Within-family conversion should not need voltage: %v", err)
	}
}

func TestConvertAcrossIncompatibleFamilies(t *testing.T) {
	_, err := Scale{2.5, Nanometre}.Convert(Milliradian, voltage200kV)
	if err == nil {
		t.Errorf("Real space to angle should fail")
	}

	_, err = Scale{0.01, InverseAngstrom}.Convert(Nanometre, voltage200kV)
	if err == nil {
		t.Errorf("Reciprocal to real space should fail")
	}
}

func TestCalculateCameraLength(t *testing.T) {
	// Merlin pixel pitch 55 µm, nominal 8 cm cameralength on the 2100F
	const merlinPitch = 55e-6

	cameralength, err := CalculateCameraLength(Scale{0.013535, InverseAngstrom}, voltage200kV, merlinPitch)
	if err != nil {
		t.Fatalf("CalculateCameraLength: %v", err)
	}
	if !scalar.EqualWithinRel(cameralength, 16.202673, 1e-4) {
		t.Errorf("cameralength: %v", cameralength)
	}

	// mrad scale must give the same answer through the conversion
	mradScale, _ := Scale{0.013535, InverseAngstrom}.Convert(Milliradian, voltage200kV)
	cameralength2, err := CalculateCameraLength(mradScale, voltage200kV, merlinPitch)
	if err != nil {
		t.Fatalf("CalculateCameraLength from mrad: %v", err)
	}
	if !scalar.EqualWithinRel(cameralength2, cameralength, 1e-9) {
		t.Errorf("cameralength mismatch: %v vs %v", cameralength2, cameralength)
	}

	_, err = CalculateCameraLength(Scale{0.013535, InverseAngstrom}, math.NaN(), merlinPitch)
	if err == nil {
		t.Errorf("Expected error without voltage")
	}
}

func Example_parseUnit() {
	for _, name := range []string{"1/Å", "1/A", "nm/px", "um", "deg", "furlong"} {
		unit, err := ParseUnit(name)
		if err != nil {
			fmt.Printf("%v\n", err)
			continue
		}
		fmt.Printf("%v\n", unit)
	}

	// Output:
	// 1/Å
	// 1/Å
	// nm/px
	// µm
	// deg
	// Unrecognised unit: "furlong"
}
