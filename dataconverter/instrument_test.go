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

package dataconverter

import (
	"testing"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
)

const testProfileYAML = `microscope: 2100F
camera: Merlin
detector:
  name: Merlin
  pixelsX: 256
  pixelsY: 256
  pixelSizeX: 55.0e-6
  pixelSizeY: 55.0e-6
defaultAccelerationVoltage: 200000
`

func TestParseInstrumentProfile(t *testing.T) {
	profile, err := ParseInstrumentProfile([]byte(testProfileYAML))
	if err != nil {
		t.Fatalf("ParseInstrumentProfile: %v", err)
	}

	if profile.Microscope != "2100F" || profile.Camera != "Merlin" {
		t.Errorf("Profile names: %v, %v", profile.Microscope, profile.Camera)
	}

	det := profile.MakeDetector()
	if det.PixelsX != 256 || det.PixelSizeX != 55e-6 {
		t.Errorf("Detector geometry: %+v", det)
	}

	_, err = ParseInstrumentProfile([]byte("camera: Merlin\n"))
	if err == nil {
		t.Errorf("Expected error for profile without microscope")
	}
}

func TestProfileApply(t *testing.T) {
	profile, err := ParseInstrumentProfile([]byte(testProfileYAML))
	if err != nil {
		t.Fatalf("ParseInstrumentProfile: %v", err)
	}

	params := calibration.NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(300000)

	profile.Apply(params)

	if params.Microscope.Value().Text() != "2100F" {
		t.Errorf("Microscope not applied: %v", params.Microscope.Value())
	}
	// Session value wins over the profile default
	if params.AccelerationVoltage.Value().Number() != 300000 {
		t.Errorf("Profile overwrote session voltage: %v", params.AccelerationVoltage.Value())
	}
}
