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
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/fileaccess"
)

// InstrumentProfile - one microscope/camera pairing as installed in a lab.
// Conversion jobs name a profile instead of re-typing the same instrument
// facts every session.
type InstrumentProfile struct {
	Microscope string `yaml:"microscope"`
	Camera     string `yaml:"camera"`

	Detector struct {
		Name       string  `yaml:"name"`
		PixelsX    int     `yaml:"pixelsX"`
		PixelsY    int     `yaml:"pixelsY"`
		PixelSizeX float64 `yaml:"pixelSizeX"`
		PixelSizeY float64 `yaml:"pixelSizeY"`
	} `yaml:"detector"`

	DefaultAccelerationVoltage float64 `yaml:"defaultAccelerationVoltage"`
}

func LoadInstrumentProfile(fs fileaccess.FileAccess, bucket string, path string) (*InstrumentProfile, error) {
	data, err := fs.ReadObject(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("Failed to read instrument profile \"%v\": %v", path, err)
	}
	return ParseInstrumentProfile(data)
}

func ParseInstrumentProfile(data []byte) (*InstrumentProfile, error) {
	profile := &InstrumentProfile{}
	err := yaml.Unmarshal(data, profile)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse instrument profile: %v", err)
	}

	if profile.Microscope == "" {
		return nil, fmt.Errorf("Instrument profile has no microscope name")
	}

	return profile, nil
}

// MakeDetector - the profile's detector geometry, falling back to the
// Merlin single-chip layout when the profile doesn't spell it out
func (p *InstrumentProfile) MakeDetector() calibration.Detector {
	det := calibration.MerlinEM
	if p.Detector.Name != "" {
		det = calibration.Detector{
			Name:       p.Detector.Name,
			PixelsX:    p.Detector.PixelsX,
			PixelsY:    p.Detector.PixelsY,
			PixelSizeX: p.Detector.PixelSizeX,
			PixelSizeY: p.Detector.PixelSizeY,
		}
	}
	return det
}

// Apply - fills instrument facts into microscope parameters, without
// overwriting anything the session already set
func (p *InstrumentProfile) Apply(params *calibration.MicroscopeParameters) {
	if !params.Microscope.IsDefined() {
		params.Microscope.SetText(p.Microscope)
	}
	if !params.Camera.IsDefined() && p.Camera != "" {
		params.Camera.SetText(p.Camera)
	}
	if !params.AccelerationVoltage.IsDefined() && p.DefaultAccelerationVoltage > 0 {
		params.AccelerationVoltage.SetNumber(p.DefaultAccelerationVoltage)
	}
}
